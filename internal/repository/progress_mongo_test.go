package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.uber.org/zap"

	progressDomain "linggo_sync/internal/domain/progress"
	errs "linggo_sync/internal/errors"
)

func newProgressStorage(mt *mtest.T) *ProgressStorage {
	return NewProgressStorage(zap.NewNop().Sugar(), mt.DB)
}

func findAndModifyResponse(doc bson.D) bson.D {
	if doc == nil {
		return mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil})
	}
	return mtest.CreateSuccessResponse(bson.E{Key: "value", Value: doc})
}

func TestProgressStorage_FindByUID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		ns := mt.DB.Name() + ".UserDataGlobal"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "uid", Value: "u1"},
			{Key: "username", Value: "ann"},
			{Key: "updated", Value: int64(10)},
		}))

		doc, err := newProgressStorage(mt).FindByUID(context.Background(), "UserDataGlobal", "u1")
		require.NoError(t, err)
		assert.Equal(t, "ann", doc["username"])
		assert.Equal(t, int64(10), progressDomain.MarkerOf(doc).Updated)
	})

	mt.Run("not found", func(mt *mtest.T) {
		ns := mt.DB.Name() + ".UserDataGlobal"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := newProgressStorage(mt).FindByUID(context.Background(), "UserDataGlobal", "u1")
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	mt.Run("server error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad query"}))

		_, err := newProgressStorage(mt).FindByUID(context.Background(), "UserDataGlobal", "u1")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, errs.ErrNotFound)
	})
}

func TestProgressStorage_Create(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("inserted", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(), mtest.CreateSuccessResponse())

		doc, err := newProgressStorage(mt).Create(context.Background(), "DailyEXP", progressDomain.Document{"uid": "u1", "updated": int64(1)})
		require.NoError(t, err)
		assert.Equal(t, "u1", doc["uid"])
		assert.NotNil(t, doc["_id"])
	})

	mt.Run("duplicate uid", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"}),
		)

		_, err := newProgressStorage(mt).Create(context.Background(), "DailyEXP", progressDomain.Document{"uid": "u1"})
		assert.ErrorIs(t, err, errs.ErrAlreadyExists)
	})
}

func TestProgressStorage_OverwriteIfNewer(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("guard passes", func(mt *mtest.T) {
		mt.AddMockResponses(findAndModifyResponse(bson.D{
			{Key: "uid", Value: "u1"},
			{Key: "coins", Value: int64(5)},
			{Key: "updated", Value: int64(20)},
		}))

		doc, applied, err := newProgressStorage(mt).OverwriteIfNewer(context.Background(), "UserDataGlobal", "u1",
			progressDomain.Document{"coins": int64(5)}, progressDomain.Marker{Updated: 20})
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, int64(5), doc["coins"])
	})

	mt.Run("guard fails returns stored document", func(mt *mtest.T) {
		ns := mt.DB.Name() + ".UserDataGlobal"
		mt.AddMockResponses(
			findAndModifyResponse(nil),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
				{Key: "uid", Value: "u1"},
				{Key: "coins", Value: int64(1)},
				{Key: "updated", Value: int64(30)},
			}),
		)

		doc, applied, err := newProgressStorage(mt).OverwriteIfNewer(context.Background(), "UserDataGlobal", "u1",
			progressDomain.Document{"coins": int64(5)}, progressDomain.Marker{Updated: 20})
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Equal(t, int64(1), doc["coins"])
	})
}

func TestProgressStorage_AdvanceMarkerMissingDocument(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("not found", func(mt *mtest.T) {
		ns := mt.DB.Name() + ".DailyEXP"
		mt.AddMockResponses(findAndModifyResponse(nil), mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, applied, err := newProgressStorage(mt).AdvanceMarker(context.Background(), "DailyEXP", "u1", progressDomain.Marker{Updated: 2})
		assert.False(t, applied)
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})
}

func TestProgressStorage_EnsureShell(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("inserted", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(
				bson.E{Key: "n", Value: 1},
				bson.E{Key: "nModified", Value: 0},
				bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: "x"}}}},
			),
		)

		created, err := newProgressStorage(mt).EnsureShell(context.Background(), "Chinese", "u1", progressDomain.LanguageContent.Shell("u1"))
		require.NoError(t, err)
		assert.True(t, created)
	})

	mt.Run("already there", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 0}),
		)

		created, err := newProgressStorage(mt).EnsureShell(context.Background(), "Chinese", "u1", progressDomain.LanguageContent.Shell("u1"))
		require.NoError(t, err)
		assert.False(t, created)
	})
}

func TestProgressStorage_UpsertElement(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("replace in place", func(mt *mtest.T) {
		mt.AddMockResponses(findAndModifyResponse(bson.D{
			{Key: "uid", Value: "u1"},
			{Key: "words", Value: bson.A{bson.D{{Key: "id", Value: int64(1)}, {Key: "isLocked", Value: false}}}},
		}))

		doc, err := newProgressStorage(mt).UpsertElement(context.Background(), "Chinese", "u1", "words", int64(1), progressDomain.Document{"id": int64(1), "isLocked": false})
		require.NoError(t, err)
		words, ok := progressDomain.AsSlice(doc["words"])
		require.True(t, ok)
		assert.Len(t, words, 1)
	})

	mt.Run("append when absent", func(mt *mtest.T) {
		mt.AddMockResponses(
			findAndModifyResponse(nil),
			findAndModifyResponse(bson.D{
				{Key: "uid", Value: "u1"},
				{Key: "words", Value: bson.A{
					bson.D{{Key: "id", Value: int64(1)}},
					bson.D{{Key: "id", Value: int64(2)}},
				}},
			}),
		)

		doc, err := newProgressStorage(mt).UpsertElement(context.Background(), "Chinese", "u1", "words", int64(2), progressDomain.Document{"id": int64(2)})
		require.NoError(t, err)
		words, _ := progressDomain.AsSlice(doc["words"])
		assert.Len(t, words, 2)
	})

	mt.Run("guarded write rejected", func(mt *mtest.T) {
		ns := mt.DB.Name() + ".Chinese"
		mt.AddMockResponses(
			findAndModifyResponse(nil),
			findAndModifyResponse(nil),
			findAndModifyResponse(nil),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
				{Key: "uid", Value: "u1"},
				{Key: "updated", Value: int64(50)},
			}),
		)

		doc, applied, err := newProgressStorage(mt).UpsertElementIfNewer(context.Background(), "Chinese", "u1", "words", int64(2),
			progressDomain.Document{"id": int64(2)}, progressDomain.Marker{Updated: 10})
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Equal(t, int64(50), doc["updated"])
	})
}

func TestMarkerFilter(t *testing.T) {
	f := markerFilter("u1", progressDomain.Marker{Updated: 5})
	assert.Equal(t, "u1", f["uid"])
	assert.Len(t, f["$and"], 1)

	f = markerFilter("u1", progressDomain.Marker{Updated: 5, TimeStamp: 4})
	assert.Len(t, f["$and"], 2)
}

func TestMarkerSet(t *testing.T) {
	set := markerSet(progressDomain.Marker{Updated: 9}, progressDomain.Document{"coins": int64(1)})
	assert.Equal(t, bson.M{"coins": int64(1), "updated": int64(9)}, set)
}
