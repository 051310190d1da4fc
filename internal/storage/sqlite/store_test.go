package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexa-dashboard/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestMigrateIsRepeatable(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Migrate(context.Background()))
}

func TestCloseTwice(t *testing.T) {
	store, err := New(":memory:")
	require.NoError(t, err)

	require.NoError(t, store.Close(context.Background()))
	assert.NoError(t, store.Close(context.Background()))
}

func TestFindOneAndSetUpserts(t *testing.T) {
	ctx := context.Background()
	coll := newTestStore(t).Collection(storage.CollectionModeration)

	update := storage.Update{
		Set:         map[string]any{"mode_roles": []string{"r1"}},
		SetOnInsert: map[string]any{"created_at": "2024-01-01T00:00:00Z"},
	}
	doc, err := coll.FindOneAndSet(ctx, storage.Filter{"guild_id": "g1"}, update, true)
	require.NoError(t, err)
	created, err := storage.DecodeMap(doc)
	require.NoError(t, err)
	assert.Equal(t, "g1", created["guild_id"])
	assert.Equal(t, "2024-01-01T00:00:00Z", created["created_at"])
	id, _ := created["_id"].(string)
	assert.True(t, storage.ValidID(id), "expected generated id, got %q", id)

	update = storage.Update{
		Set:         map[string]any{"is_moderation_settings_enabled": true},
		SetOnInsert: map[string]any{"created_at": "2030-01-01T00:00:00Z"},
	}
	doc, err = coll.FindOneAndSet(ctx, storage.Filter{"guild_id": "g1"}, update, true)
	require.NoError(t, err)
	updated, err := storage.DecodeMap(doc)
	require.NoError(t, err)
	assert.Equal(t, id, updated["_id"])
	assert.Equal(t, "2024-01-01T00:00:00Z", updated["created_at"])
	assert.Equal(t, true, updated["is_moderation_settings_enabled"])

	docs, err := coll.Find(ctx, storage.Filter{"guild_id": "g1"})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestFindOneAndSetWithoutUpsert(t *testing.T) {
	coll := newTestStore(t).Collection(storage.CollectionCommands)

	_, err := coll.FindOneAndSet(context.Background(),
		storage.Filter{"guild_id": "g1", "command": "ping"},
		storage.Update{Set: map[string]any{"enabled": false}},
		false,
	)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestInsertEnforcesUniqueIndexes(t *testing.T) {
	ctx := context.Background()
	coll := newTestStore(t).Collection(storage.CollectionEmbeds)

	_, err := coll.Insert(ctx, map[string]any{"guild_id": "g1", "name": "welcome"})
	require.NoError(t, err)
	_, err = coll.Insert(ctx, map[string]any{"guild_id": "g2", "name": "welcome"})
	require.NoError(t, err)

	_, err = coll.Insert(ctx, map[string]any{"guild_id": "g1", "name": "welcome"})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestFindFiltersOnBooleans(t *testing.T) {
	ctx := context.Background()
	coll := newTestStore(t).Collection(storage.CollectionUsers)

	_, err := coll.Insert(ctx, map[string]any{"discord_id": "u1", "is_premium": true, "premium_guild_id": "g1"})
	require.NoError(t, err)
	_, err = coll.Insert(ctx, map[string]any{"discord_id": "u2", "is_premium": false, "premium_guild_id": "g2"})
	require.NoError(t, err)

	_, err = coll.FindOne(ctx, storage.Filter{"premium_guild_id": "g1", "is_premium": true})
	assert.NoError(t, err)
	_, err = coll.FindOne(ctx, storage.Filter{"premium_guild_id": "g2", "is_premium": true})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFindFiltersOnTimeRanges(t *testing.T) {
	ctx := context.Background()
	coll := newTestStore(t).Collection(storage.CollectionAuditLogs)
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// the fractional second makes this sort before "12:00:00Z" as plain text
	for _, at := range []time.Time{start, start.Add(500 * time.Millisecond), start.Add(time.Hour)} {
		_, err := coll.Insert(ctx, map[string]any{"guild_id": "g1", "created_at": at})
		require.NoError(t, err)
	}
	_, err := coll.Insert(ctx, map[string]any{"guild_id": "g2", "created_at": start.Add(time.Hour)})
	require.NoError(t, err)

	docs, err := coll.Find(ctx, storage.Filter{"guild_id": "g1", "created_at": storage.Range{Gte: start.Add(100 * time.Millisecond)}})
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = coll.Find(ctx, storage.Filter{"guild_id": "g1", "created_at": storage.Range{Gte: start, Lt: start.Add(time.Hour)}})
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = coll.Find(ctx, storage.Filter{"created_at": storage.Range{Gte: start.Add(time.Hour)}})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestDeleteManyRemovesMatches(t *testing.T) {
	ctx := context.Background()
	coll := newTestStore(t).Collection(storage.CollectionAuditLogs)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		_, err := coll.Insert(ctx, map[string]any{"guild_id": "g1", "created_at": start.AddDate(0, 0, i)})
		require.NoError(t, err)
	}

	deleted, err := coll.DeleteMany(ctx, storage.Filter{"created_at": storage.Range{Lt: start.AddDate(0, 0, 2)}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	docs, err := coll.Find(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	deleted, err = coll.DeleteMany(ctx, storage.Filter{"guild_id": "none"})
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestUpdateAndDeleteByID(t *testing.T) {
	ctx := context.Background()
	coll := newTestStore(t).Collection(storage.CollectionEmbeds)

	id, err := coll.Insert(ctx, map[string]any{"guild_id": "g1", "name": "rules", "title": "Rules"})
	require.NoError(t, err)

	require.NoError(t, coll.UpdateByID(ctx, id, storage.Update{Set: map[string]any{"title": "Server rules"}}))
	doc, err := coll.FindOne(ctx, storage.Filter{"_id": id})
	require.NoError(t, err)
	body, err := storage.DecodeMap(doc)
	require.NoError(t, err)
	assert.Equal(t, "Server rules", body["title"])
	assert.Equal(t, "rules", body["name"])

	require.NoError(t, coll.DeleteByID(ctx, id))
	assert.ErrorIs(t, coll.DeleteByID(ctx, id), storage.ErrNotFound)
	assert.ErrorIs(t, coll.UpdateByID(ctx, id, storage.Update{}), storage.ErrNotFound)
	assert.ErrorIs(t, coll.DeleteByID(ctx, "nope"), storage.ErrInvalidID)
}

func TestUnknownCollection(t *testing.T) {
	_, err := newTestStore(t).Collection("sessions").Find(context.Background(), nil)
	assert.ErrorIs(t, err, storage.ErrUnknownCollection)
}

func TestFindReturnsEmptySlice(t *testing.T) {
	docs, err := newTestStore(t).Collection(storage.CollectionCommands).Find(context.Background(), storage.Filter{"guild_id": "none"})
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}
