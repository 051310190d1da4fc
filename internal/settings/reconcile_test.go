package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReconcileStoredWins(t *testing.T) {
	defaults := map[string]any{"enabled": false, "timeout_duration": float64(60)}
	stored := map[string]any{"enabled": true}

	merged := Reconcile(defaults, stored)
	assert.Equal(t, map[string]any{"enabled": true, "timeout_duration": float64(60)}, merged)
}

func TestReconcileMergesNestedObjects(t *testing.T) {
	defaults := map[string]any{
		"filters": map[string]any{
			"spam":  map[string]any{"enabled": false, "custom_config": map[string]any{}},
			"links": map[string]any{"enabled": false},
		},
	}
	stored := map[string]any{
		"filters": map[string]any{
			"spam": map[string]any{"enabled": true},
		},
	}

	merged := Reconcile(defaults, stored)
	assert.Equal(t, map[string]any{
		"filters": map[string]any{
			"spam":  map[string]any{"enabled": true, "custom_config": map[string]any{}},
			"links": map[string]any{"enabled": false},
		},
	}, merged)
}

func TestReconcileListsAreAtomic(t *testing.T) {
	defaults := map[string]any{"actions": []any{"block", "warn"}}
	stored := map[string]any{"actions": []any{"ban"}}

	assert.Equal(t, []any{"ban"}, Reconcile(defaults, stored)["actions"])
}

func TestReconcileNullIsAbsent(t *testing.T) {
	defaults := map[string]any{"mode_roles": []any{}, "premium_guild_id": nil}
	stored := map[string]any{"mode_roles": nil, "extra": nil}

	merged := Reconcile(defaults, stored)
	assert.Equal(t, []any{}, merged["mode_roles"])
	assert.Contains(t, merged, "premium_guild_id")
	assert.Contains(t, merged, "extra")
	assert.Nil(t, merged["extra"])
}

func TestReconcileKeepsUnknownStoredKeys(t *testing.T) {
	merged := Reconcile(map[string]any{"a": float64(1)}, map[string]any{"legacy": "x"})
	assert.Equal(t, map[string]any{"a": float64(1), "legacy": "x"}, merged)
}

func TestReconcileDoesNotMutateInputs(t *testing.T) {
	defaults := map[string]any{"global": map[string]any{"is_enabled": false, "ignored_roles": []any{}}}
	stored := map[string]any{"global": map[string]any{"is_enabled": true}}

	merged := Reconcile(defaults, stored)
	merged["global"].(map[string]any)["ignored_roles"] = []any{"r1"}
	merged["global"].(map[string]any)["is_enabled"] = "changed"

	assert.Equal(t, map[string]any{"global": map[string]any{"is_enabled": false, "ignored_roles": []any{}}}, defaults)
	assert.Equal(t, map[string]any{"global": map[string]any{"is_enabled": true}}, stored)
}

func TestReconcileIsIdempotent(t *testing.T) {
	defaults := automodDefaults()
	stored := map[string]any{"filters": map[string]any{"spam": map[string]any{"enabled": true}}}

	once := Reconcile(defaults, stored)
	assert.Equal(t, once, Reconcile(defaults, once))
}
