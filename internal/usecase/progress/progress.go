package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	progressDomain "linggo_sync/internal/domain/progress"
	errs "linggo_sync/internal/errors"
)

const (
	ModeStrict = "strict"
	ModeLegacy = "legacy"
)

type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	// OutcomeMarkerHeld: the body was overwritten but the marker did not advance.
	OutcomeMarkerHeld Outcome = "marker_held"
	// OutcomeRejected: nothing was written, Document is the stored state.
	OutcomeRejected Outcome = "rejected"
)

type Result struct {
	Outcome  Outcome
	Document progressDomain.Document
}

// ResourceStore persists resource documents keyed by uid. Methods ending in
// IfNewer and AdvanceMarker apply their write only while the stored marker is
// older than the submitted one, atomically; when the guard fails they return
// the current stored document and false.
type ResourceStore interface {
	FindByUID(ctx context.Context, collection, uid string) (progressDomain.Document, error)
	Create(ctx context.Context, collection string, doc progressDomain.Document) (progressDomain.Document, error)
	Overwrite(ctx context.Context, collection, uid string, fields progressDomain.Document) (progressDomain.Document, error)
	AdvanceMarker(ctx context.Context, collection, uid string, m progressDomain.Marker) (progressDomain.Document, bool, error)
	OverwriteIfNewer(ctx context.Context, collection, uid string, fields progressDomain.Document, m progressDomain.Marker) (progressDomain.Document, bool, error)
	EnsureShell(ctx context.Context, collection, uid string, shell progressDomain.Document) (created bool, err error)
	UpsertElement(ctx context.Context, collection, uid, array string, id any, element progressDomain.Document) (progressDomain.Document, error)
	UpsertElementIfNewer(ctx context.Context, collection, uid, array string, id any, element progressDomain.Document, m progressDomain.Marker) (progressDomain.Document, bool, error)
}

type Engine struct {
	store ResourceStore
	log   *zap.SugaredLogger
	mode  string
	skew  time.Duration
	now   func() time.Time
}

func NewEngine(store ResourceStore, log *zap.SugaredLogger, mode string, skew time.Duration) *Engine {
	if mode != ModeLegacy {
		mode = ModeStrict
	}
	return &Engine{
		store: store,
		log:   log,
		mode:  mode,
		skew:  skew,
		now:   time.Now,
	}
}

// WithClock replaces the wall clock used for the future marker check.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

func (e *Engine) Mode() string {
	return e.mode
}

// Upsert creates the document of uid from payload or merges payload into the
// existing one according to the engine mode.
func (e *Engine) Upsert(ctx context.Context, target progressDomain.Target, uid string, payload progressDomain.Document, m progressDomain.Marker) (Result, error) {
	if uid == "" {
		return Result{}, fmt.Errorf("%w: uid is required", errs.ErrValidationFailed)
	}
	payload = NormalizePayload(target.Kind, progressDomain.Clone(payload))
	if err := target.Kind.Validate(payload, m); err != nil {
		return Result{}, fmt.Errorf("%w: %v", errs.ErrValidationFailed, err)
	}

	_, err := e.store.FindByUID(ctx, target.Collection, uid)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		if err := e.checkCreateMarker(m); err != nil {
			return Result{}, err
		}
		created, err := e.store.Create(ctx, target.Collection, target.Kind.NewDocument(uid, payload, m))
		if err == nil {
			return Result{Outcome: OutcomeCreated, Document: Migrate(target.Kind, created)}, nil
		}
		if !errors.Is(err, errs.ErrAlreadyExists) {
			return Result{}, err
		}
		e.log.Infof("Upsert: %s %s for uid %s created concurrently, merging", target.Kind.Name, target.Collection, uid)
	case err != nil:
		return Result{}, err
	}

	fields := target.Kind.Pick(payload)
	fields[progressDomain.FieldSchemaVersion] = progressDomain.SchemaVersion

	if e.mode == ModeLegacy {
		doc, err := e.store.Overwrite(ctx, target.Collection, uid, fields)
		if err != nil {
			return Result{}, err
		}
		return e.advanceMarker(ctx, target, uid, doc, m)
	}

	if InFuture(m, e.now(), e.skew) {
		return e.reject(ctx, target, uid)
	}
	doc, applied, err := e.store.OverwriteIfNewer(ctx, target.Collection, uid, fields, m)
	if err != nil {
		return Result{}, err
	}
	if !applied {
		return Result{Outcome: OutcomeRejected, Document: Migrate(target.Kind, doc)}, nil
	}
	return Result{Outcome: OutcomeUpdated, Document: Migrate(target.Kind, doc)}, nil
}

// UpsertElement adds element to the array of uid's document, or replaces the
// element carrying the same id, creating an empty document first if needed.
func (e *Engine) UpsertElement(ctx context.Context, target progressDomain.Target, uid string, array progressDomain.ElementArray, id any, element progressDomain.Document, m progressDomain.Marker) (Result, error) {
	element, err := validateElement(uid, array, id, element, m)
	if err != nil {
		return Result{}, err
	}

	if e.mode == ModeStrict && InFuture(m, e.now(), e.skew) {
		if _, err := e.store.FindByUID(ctx, target.Collection, uid); errors.Is(err, errs.ErrNotFound) {
			return Result{}, e.checkCreateMarker(m)
		}
		return e.reject(ctx, target, uid)
	}

	shell := target.Kind.Shell(uid)
	m.Apply(shell)
	created, err := e.store.EnsureShell(ctx, target.Collection, uid, shell)
	if err != nil {
		return Result{}, err
	}

	if created {
		doc, err := e.store.UpsertElement(ctx, target.Collection, uid, array.Path, id, element)
		if err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeCreated, Document: Migrate(target.Kind, doc)}, nil
	}

	if e.mode == ModeLegacy {
		doc, err := e.store.UpsertElement(ctx, target.Collection, uid, array.Path, id, element)
		if err != nil {
			return Result{}, err
		}
		return e.advanceMarker(ctx, target, uid, doc, m)
	}

	doc, applied, err := e.store.UpsertElementIfNewer(ctx, target.Collection, uid, array.Path, id, element, m)
	if err != nil {
		return Result{}, err
	}
	if !applied {
		return Result{Outcome: OutcomeRejected, Document: Migrate(target.Kind, doc)}, nil
	}
	return Result{Outcome: OutcomeUpdated, Document: Migrate(target.Kind, doc)}, nil
}

func (e *Engine) Fetch(ctx context.Context, target progressDomain.Target, uid string) (progressDomain.Document, error) {
	doc, err := e.store.FindByUID(ctx, target.Collection, uid)
	if err != nil {
		return nil, err
	}
	return Migrate(target.Kind, doc), nil
}

func (e *Engine) FetchUpdated(ctx context.Context, target progressDomain.Target, uid string) (int64, error) {
	doc, err := e.Fetch(ctx, target, uid)
	if err != nil {
		return 0, err
	}
	return progressDomain.MarkerOf(doc).Updated, nil
}

// FetchField returns a single top level field of uid's document.
func (e *Engine) FetchField(ctx context.Context, target progressDomain.Target, uid, field string) (any, error) {
	doc, err := e.Fetch(ctx, target, uid)
	if err != nil {
		return nil, err
	}
	v, ok := doc[field]
	if !ok || v == nil || v == "" {
		return nil, fmt.Errorf("%w: %s is null", errs.ErrNotFound, field)
	}
	return v, nil
}

// advanceMarker is the second, separate step of a legacy merge.
func (e *Engine) advanceMarker(ctx context.Context, target progressDomain.Target, uid string, doc progressDomain.Document, m progressDomain.Marker) (Result, error) {
	if InFuture(m, e.now(), e.skew) {
		e.log.Warnf("Upsert: %s marker %d of uid %s is in the future, holding", target.Kind.Name, m.Updated, uid)
		return Result{Outcome: OutcomeMarkerHeld, Document: Migrate(target.Kind, doc)}, nil
	}
	advanced, applied, err := e.store.AdvanceMarker(ctx, target.Collection, uid, m)
	if err != nil {
		return Result{}, err
	}
	if !applied {
		return Result{Outcome: OutcomeMarkerHeld, Document: Migrate(target.Kind, advanced)}, nil
	}
	return Result{Outcome: OutcomeUpdated, Document: Migrate(target.Kind, advanced)}, nil
}

func (e *Engine) reject(ctx context.Context, target progressDomain.Target, uid string) (Result, error) {
	doc, err := e.store.FindByUID(ctx, target.Collection, uid)
	if err != nil {
		return Result{}, err
	}
	return Result{Outcome: OutcomeRejected, Document: Migrate(target.Kind, doc)}, nil
}

// checkCreateMarker refuses to seed a new document with a future marker in
// strict mode, since such a document could never be updated again.
func (e *Engine) checkCreateMarker(m progressDomain.Marker) error {
	if e.mode == ModeStrict && InFuture(m, e.now(), e.skew) {
		return fmt.Errorf("%w: %s %d is in the future", errs.ErrValidationFailed, progressDomain.FieldUpdated, m.Updated)
	}
	return nil
}

func validateElement(uid string, array progressDomain.ElementArray, id any, element progressDomain.Document, m progressDomain.Marker) (progressDomain.Document, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: uid is required", errs.ErrValidationFailed)
	}
	if m.Updated <= 0 {
		return nil, fmt.Errorf("%w: %s is required", errs.ErrValidationFailed, progressDomain.FieldUpdated)
	}
	if element == nil {
		return nil, fmt.Errorf("%w: element body is required", errs.ErrValidationFailed)
	}
	if array.NumericID {
		if _, ok := progressDomain.Int64(id); !ok {
			return nil, fmt.Errorf("%w: %s id must be numeric", errs.ErrValidationFailed, array.Path)
		}
	} else if s, ok := id.(string); !ok || s == "" {
		return nil, fmt.Errorf("%w: %s id is required", errs.ErrValidationFailed, array.Path)
	}

	element = progressDomain.Clone(element)
	if bodyID, ok := element[progressDomain.FieldID]; ok && bodyID != nil {
		if !progressDomain.SameID(bodyID, id) {
			return nil, fmt.Errorf("%w: body id does not match path id", errs.ErrValidationFailed)
		}
	}
	element[progressDomain.FieldID] = id
	return element, nil
}
