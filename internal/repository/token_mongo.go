package repo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	tokenDomain "linggo_sync/internal/domain/token"
	errs "linggo_sync/internal/errors"
)

const TokenCollection = "UserToken"

type TokenStorage struct {
	log   *zap.SugaredLogger
	mongo *mongo.Database
}

func NewTokenStorage(log *zap.SugaredLogger, mongo *mongo.Database) *TokenStorage {
	return &TokenStorage{
		log:   log,
		mongo: mongo,
	}
}

func (t *TokenStorage) collection() *mongo.Collection {
	return t.mongo.Collection(TokenCollection)
}

func (t *TokenStorage) FindByUID(ctx context.Context, uid string) (tokenDomain.UserToken, error) {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	var found tokenDomain.UserToken
	err := t.collection().FindOne(ctx, bson.M{"uid": uid}).Decode(&found)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return tokenDomain.UserToken{}, errs.ErrNotFound
	}
	if err != nil {
		return tokenDomain.UserToken{}, fmt.Errorf("find token of %s: %w", uid, err)
	}
	return found, nil
}

func (t *TokenStorage) PullToken(ctx context.Context, token, keepUID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	filter := bson.M{"fcmTokens": token}
	if keepUID != "" {
		filter["uid"] = bson.M{"$ne": keepUID}
	}
	res, err := t.collection().UpdateMany(ctx, filter, bson.M{"$pull": bson.M{"fcmTokens": token}})
	if err != nil {
		return 0, fmt.Errorf("pull fcm token: %w", err)
	}
	return res.ModifiedCount, nil
}

func (t *TokenStorage) AddToken(ctx context.Context, uid, token string, prefs tokenDomain.Preferences) (tokenDomain.UserToken, error) {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	update := bson.M{"$addToSet": bson.M{"fcmTokens": token}}
	if set := preferencesSet(prefs); len(set) > 0 {
		update["$set"] = set
	}

	var stored tokenDomain.UserToken
	err := t.collection().FindOneAndUpdate(ctx,
		bson.M{"uid": uid},
		update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&stored)
	if err != nil {
		return tokenDomain.UserToken{}, fmt.Errorf("add fcm token for %s: %w", uid, err)
	}
	return stored, nil
}

func (t *TokenStorage) RemoveToken(ctx context.Context, uid, token string) error {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	res, err := t.collection().UpdateOne(ctx, bson.M{"uid": uid}, bson.M{"$pull": bson.M{"fcmTokens": token}})
	if err != nil {
		return fmt.Errorf("remove fcm token of %s: %w", uid, err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (t *TokenStorage) ListReviewEnabled(ctx context.Context) ([]tokenDomain.UserToken, error) {
	return t.list(ctx, bson.M{
		"reviewNotificationsOn": true,
		"fcmTokens.0":           bson.M{"$exists": true},
	})
}

func (t *TokenStorage) ListLastLoginBetween(ctx context.Context, from, to int64) ([]tokenDomain.UserToken, error) {
	return t.list(ctx, bson.M{
		"lastLoginTime": bson.M{"$gte": from, "$lte": to},
		"fcmTokens.0":   bson.M{"$exists": true},
	})
}

func (t *TokenStorage) list(ctx context.Context, filter bson.M) ([]tokenDomain.UserToken, error) {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	cursor, err := t.collection().Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer cursor.Close(ctx)

	var out []tokenDomain.UserToken
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode tokens: %w", err)
	}
	return out, nil
}

func preferencesSet(p tokenDomain.Preferences) bson.M {
	set := bson.M{}
	if p.ReviewNotificationsOn != nil {
		set["reviewNotificationsOn"] = *p.ReviewNotificationsOn
	}
	if p.ReviewNotificationsTime != nil {
		set["reviewNotificationsTime"] = *p.ReviewNotificationsTime
	}
	if p.TimeZone != nil {
		set["timeZone"] = *p.TimeZone
	}
	if p.LastLoginTime != nil {
		set["lastLoginTime"] = *p.LastLoginTime
	}
	return set
}
