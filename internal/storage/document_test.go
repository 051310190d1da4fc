package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyUpdateReplacesSubDocument(t *testing.T) {
	doc := map[string]any{
		"guild_id": "g1",
		"filters": map[string]any{
			"spam": map[string]any{"enabled": false, "timeout_duration": float64(60)},
			"links": map[string]any{"enabled": true},
		},
	}

	err := ApplyUpdate(doc, Update{
		Set: map[string]any{"filters.spam": map[string]any{"enabled": true}},
	}, false)
	require.NoError(t, err)

	spam, ok := LookupPath(doc, "filters.spam")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"enabled": true}, spam)

	links, ok := LookupPath(doc, "filters.links.enabled")
	require.True(t, ok)
	assert.Equal(t, true, links)
}

func TestApplyUpdateSetOnInsertOnlyWhenInserting(t *testing.T) {
	update := Update{
		Set:         map[string]any{"mode_roles": []string{"r1"}},
		SetOnInsert: map[string]any{"created_at": "2024-01-01T00:00:00Z"},
	}

	existing := map[string]any{}
	require.NoError(t, ApplyUpdate(existing, update, false))
	_, ok := existing["created_at"]
	assert.False(t, ok)
	assert.Equal(t, []any{"r1"}, existing["mode_roles"])

	inserted := map[string]any{}
	require.NoError(t, ApplyUpdate(inserted, update, true))
	assert.Equal(t, "2024-01-01T00:00:00Z", inserted["created_at"])
}

func TestSetPathCreatesIntermediateObjects(t *testing.T) {
	doc := map[string]any{"channels": "legacy"}
	require.NoError(t, SetPath(doc, "channels.log_channel", "c1"))
	assert.Equal(t, map[string]any{"log_channel": "c1"}, doc["channels"])
}

func TestSetPathRejectsInvalidKeys(t *testing.T) {
	for _, key := range []string{"", "a..b", "$where", "a.b'", ".a"} {
		err := SetPath(map[string]any{}, key, 1)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestNewFromFilter(t *testing.T) {
	doc, err := NewFromFilter(Filter{"guild_id": "g1", "command": "ping"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"guild_id": "g1", "command": "ping"}, doc)

	doc, err = NewFromFilter(Filter{"guild_id": "g1", "created_at": Range{Gte: "2024-01-01"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"guild_id": "g1"}, doc)
}

func TestIDs(t *testing.T) {
	id := NewID()
	assert.Len(t, id, 24)
	assert.True(t, ValidID(id))
	assert.False(t, ValidID("not-an-id"))
}

func TestApplyUpdateUnsetsPaths(t *testing.T) {
	doc := map[string]any{
		"title":  "Rules",
		"footer": map[string]any{"text": "bye", "icon_url": "https://cdn.example.com/i.png"},
	}

	err := ApplyUpdate(doc, Update{
		Set:   map[string]any{"name": "rules"},
		Unset: []string{"title", "footer.icon_url", "image", "missing.deep"},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name":   "rules",
		"footer": map[string]any{"text": "bye"},
	}, doc)

	assert.ErrorIs(t, UnsetPath(doc, "_id"), ErrInvalidKey)
	assert.ErrorIs(t, UnsetPath(doc, "$bad"), ErrInvalidKey)
}
