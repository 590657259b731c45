package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	progressDomain "linggo_sync/internal/domain/progress"
	errs "linggo_sync/internal/errors"
)

const storageTimeout = 5 * time.Second

type ProgressStorage struct {
	log   *zap.SugaredLogger
	mongo *mongo.Database
}

func NewProgressStorage(log *zap.SugaredLogger, mongo *mongo.Database) *ProgressStorage {
	return &ProgressStorage{
		log:   log,
		mongo: mongo,
	}
}

// EnsureIndexes creates the unique uid index on every given collection.
func (p *ProgressStorage) EnsureIndexes(ctx context.Context, collections ...string) error {
	for _, c := range collections {
		if err := ensureUIDIndex(ctx, p.mongo.Collection(c)); err != nil {
			return err
		}
	}
	return nil
}

func ensureUIDIndex(ctx context.Context, collection *mongo.Collection) error {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: progressDomain.FieldUID, Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create uid index on %s: %w", collection.Name(), err)
	}
	return nil
}

func (p *ProgressStorage) FindByUID(ctx context.Context, collection, uid string) (progressDomain.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	var doc bson.M
	err := p.mongo.Collection(collection).FindOne(ctx, bson.M{progressDomain.FieldUID: uid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s in %s: %w", uid, collection, err)
	}
	return progressDomain.Document(doc), nil
}

func (p *ProgressStorage) Create(ctx context.Context, collection string, doc progressDomain.Document) (progressDomain.Document, error) {
	coll := p.mongo.Collection(collection)
	// language and module collections appear on first write
	if err := ensureUIDIndex(ctx, coll); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	res, err := coll.InsertOne(ctx, bson.M(doc))
	if mongo.IsDuplicateKeyError(err) {
		return nil, errs.ErrAlreadyExists
	}
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", collection, err)
	}

	created := progressDomain.Clone(doc)
	created[progressDomain.FieldObjectID] = res.InsertedID
	p.log.Infof("created %s document for uid %v", collection, doc[progressDomain.FieldUID])
	return created, nil
}

func (p *ProgressStorage) Overwrite(ctx context.Context, collection, uid string, fields progressDomain.Document) (progressDomain.Document, error) {
	doc, err := p.findAndUpdate(ctx, collection, bson.M{progressDomain.FieldUID: uid}, bson.M{"$set": bson.M(fields)})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound
	}
	return doc, err
}

func (p *ProgressStorage) AdvanceMarker(ctx context.Context, collection, uid string, m progressDomain.Marker) (progressDomain.Document, bool, error) {
	doc, err := p.findAndUpdate(ctx, collection, markerFilter(uid, m), bson.M{"$set": markerSet(m, nil)})
	return p.guarded(ctx, collection, uid, doc, err)
}

func (p *ProgressStorage) OverwriteIfNewer(ctx context.Context, collection, uid string, fields progressDomain.Document, m progressDomain.Marker) (progressDomain.Document, bool, error) {
	doc, err := p.findAndUpdate(ctx, collection, markerFilter(uid, m), bson.M{"$set": markerSet(m, fields)})
	return p.guarded(ctx, collection, uid, doc, err)
}

func (p *ProgressStorage) EnsureShell(ctx context.Context, collection, uid string, shell progressDomain.Document) (bool, error) {
	coll := p.mongo.Collection(collection)
	if err := ensureUIDIndex(ctx, coll); err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	onInsert := bson.M{}
	for k, v := range shell {
		if k != progressDomain.FieldUID {
			onInsert[k] = v
		}
	}

	res, err := coll.UpdateOne(ctx,
		bson.M{progressDomain.FieldUID: uid},
		bson.M{"$setOnInsert": onInsert},
		options.Update().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		// a concurrent request inserted the shell first
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ensure %s document for %s: %w", collection, uid, err)
	}
	return res.UpsertedCount > 0, nil
}

func (p *ProgressStorage) UpsertElement(ctx context.Context, collection, uid, array string, id any, element progressDomain.Document) (progressDomain.Document, error) {
	doc, applied, err := p.upsertElement(ctx, collection, bson.M{progressDomain.FieldUID: uid}, array, id, element, nil)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, errs.ErrNotFound
	}
	return doc, nil
}

func (p *ProgressStorage) UpsertElementIfNewer(ctx context.Context, collection, uid, array string, id any, element progressDomain.Document, m progressDomain.Marker) (progressDomain.Document, bool, error) {
	doc, applied, err := p.upsertElement(ctx, collection, markerFilter(uid, m), array, id, element, markerSet(m, nil))
	if err != nil {
		return nil, false, err
	}
	if !applied {
		current, err := p.FindByUID(ctx, collection, uid)
		return current, false, err
	}
	return doc, true, nil
}

// upsertElement replaces the element with the given id in place, or pushes it
// when no element carries that id. Both updates are single document atomic
// operations; a push that loses a race against an identical id is retried as a
// replace. extra is merged into either update's $set.
func (p *ProgressStorage) upsertElement(ctx context.Context, collection string, filter bson.M, array string, id any, element progressDomain.Document, extra bson.M) (progressDomain.Document, bool, error) {
	idPath := array + "." + progressDomain.FieldID

	replace := func() (progressDomain.Document, error) {
		set := bson.M{array + ".$": bson.M(element)}
		for k, v := range extra {
			set[k] = v
		}
		return p.findAndUpdate(ctx, collection, with(filter, idPath, id), bson.M{"$set": set})
	}

	doc, err := replace()
	if err == nil {
		return doc, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, err
	}

	update := bson.M{"$push": bson.M{array: bson.M(element)}}
	if len(extra) > 0 {
		update["$set"] = extra
	}
	doc, err = p.findAndUpdate(ctx, collection, with(filter, idPath, bson.M{"$ne": id}), update)
	if err == nil {
		return doc, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, err
	}

	doc, err = replace()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func (p *ProgressStorage) findAndUpdate(ctx context.Context, collection string, filter, update bson.M) (progressDomain.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	var doc bson.M
	err := p.mongo.Collection(collection).
		FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", collection, err)
	}
	return progressDomain.Document(doc), nil
}

// guarded turns a failed marker guard into the current stored document.
func (p *ProgressStorage) guarded(ctx context.Context, collection, uid string, doc progressDomain.Document, err error) (progressDomain.Document, bool, error) {
	if err == nil {
		return doc, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, err
	}
	current, err := p.FindByUID(ctx, collection, uid)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

// markerFilter matches uid's document only while every submitted marker
// field is newer than the stored one, or not stored at all.
func markerFilter(uid string, m progressDomain.Marker) bson.M {
	conds := bson.A{olderOrMissing(progressDomain.FieldUpdated, m.Updated)}
	if m.HasTimeStamp() {
		conds = append(conds, olderOrMissing(progressDomain.FieldTimeStamp, m.TimeStamp))
	}
	return bson.M{
		progressDomain.FieldUID: uid,
		"$and":                  conds,
	}
}

func olderOrMissing(field string, value int64) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{field: bson.M{"$lt": value}},
		bson.M{field: bson.M{"$exists": false}},
	}}
}

func markerSet(m progressDomain.Marker, fields progressDomain.Document) bson.M {
	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}
	set[progressDomain.FieldUpdated] = m.Updated
	if m.HasTimeStamp() {
		set[progressDomain.FieldTimeStamp] = m.TimeStamp
	}
	return set
}

func with(filter bson.M, key string, value any) bson.M {
	out := make(bson.M, len(filter)+1)
	for k, v := range filter {
		out[k] = v
	}
	out[key] = value
	return out
}
