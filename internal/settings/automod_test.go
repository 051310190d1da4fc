package settings

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexa-dashboard/internal/storage"
)

func TestAutoModGetCreatesEveryFilter(t *testing.T) {
	svc, store, _ := newTestService(t)

	got, err := svc.AutoMod.Get(context.Background(), "G1")
	require.NoError(t, err)

	require.Len(t, got.Filters, len(FilterNames))
	for _, name := range FilterNames {
		filter, ok := got.Filters[name]
		require.True(t, ok, name)
		assert.False(t, filter.Enabled, name)
		assert.Equal(t, []string{}, filter.Actions, name)
		assert.Equal(t, DefaultTimeoutDuration, filter.TimeoutDuration, name)
		assert.Equal(t, []string{}, filter.IgnoredRoles, name)
		assert.Equal(t, []string{}, filter.IgnoredChannels, name)
	}
	assert.Equal(t, map[string]any{"max_mentions": float64(5)}, got.Filters["mass_mention"].CustomConfig)
	assert.Equal(t, map[string]any{"max_caps_percentage": float64(70)}, got.Filters["spammed_caps"].CustomConfig)
	assert.Equal(t, map[string]any{"max_emojis": float64(10)}, got.Filters["emoji_spam"].CustomConfig)
	assert.Equal(t, map[string]any{"bad_words": []any{}}, got.Filters["bad_words"].CustomConfig)
	assert.Equal(t, map[string]any{
		"toxicity_threshold": float64(80),
		"nudity_threshold":   float64(80),
		"gore_threshold":     float64(80),
	}, got.Filters["ai_moderation"].CustomConfig)
	assert.Equal(t, map[string]any{}, got.Filters["links"].CustomConfig)
	assert.Empty(t, got.Rules)
	assert.False(t, got.Global.IsEnabled)

	stored := rawDocument(t, store, storage.CollectionAutoMod, storage.Filter{"guild_id": "G1"})
	assert.Len(t, stored["filters"], len(FilterNames))
}

func TestAutoModGetBackfillsMissingFiltersWithoutWriting(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	_, err := store.Collection(storage.CollectionAutoMod).Insert(ctx, map[string]any{
		"guild_id": "G1",
		"filters": map[string]any{
			"spam":      map[string]any{"enabled": true, "actions": []string{"warn"}, "timeout_duration": 30},
			"bad_words": map[string]any{"enabled": true, "custom_config": map[string]any{"bad_words": []string{"heck"}}},
		},
	})
	require.NoError(t, err)
	before := rawDocument(t, store, storage.CollectionAutoMod, storage.Filter{"guild_id": "G1"})

	got, err := svc.AutoMod.Get(ctx, "G1")
	require.NoError(t, err)
	require.Len(t, got.Filters, len(FilterNames))

	spam := got.Filters["spam"]
	assert.True(t, spam.Enabled)
	assert.Equal(t, []string{"warn"}, spam.Actions)
	assert.Equal(t, 30, spam.TimeoutDuration)
	assert.Equal(t, []string{}, spam.IgnoredRoles)

	assert.Equal(t, map[string]any{"bad_words": []any{"heck"}}, got.Filters["bad_words"].CustomConfig)
	assert.False(t, got.Filters["links"].Enabled)
	assert.Equal(t, map[string]any{"max_mentions": float64(5)}, got.Filters["mass_mention"].CustomConfig)
	assert.Equal(t, []string{}, got.Global.IgnoredChannels)

	after := rawDocument(t, store, storage.CollectionAutoMod, storage.Filter{"guild_id": "G1"})
	assert.Equal(t, before, after)

	again, err := svc.AutoMod.Get(ctx, "G1")
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestAutoModUpdateFilterReplacesSubDocument(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AutoMod.Get(ctx, "G1")
	require.NoError(t, err)

	got, err := svc.AutoMod.UpdateFilter(ctx, "G1", "mass_mention", FilterConfig{
		Enabled:         true,
		Actions:         []string{"block", "timeout", "block"},
		TimeoutDuration: 120,
		CustomConfig:    map[string]any{"max_mentions": 8},
	})
	require.NoError(t, err)

	filter := got.Filters["mass_mention"]
	assert.True(t, filter.Enabled)
	assert.Equal(t, []string{"block", "timeout"}, filter.Actions)
	assert.Equal(t, 120, filter.TimeoutDuration)
	assert.Equal(t, map[string]any{"max_mentions": float64(8)}, filter.CustomConfig)
	assert.False(t, got.Filters["spam"].Enabled)

	stored := rawDocument(t, store, storage.CollectionAutoMod, storage.Filter{"guild_id": "G1"})
	mention, ok := storage.LookupPath(stored, "filters.mass_mention")
	require.True(t, ok)
	assert.Equal(t, map[string]any{
		"enabled":          true,
		"actions":          []any{"block", "timeout"},
		"timeout_duration": float64(120),
		"ignored_roles":    []any{},
		"ignored_channels": []any{},
		"custom_config":    map[string]any{"max_mentions": float64(8)},
	}, mention)
}

func TestAutoModUpdateFilterValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.AutoMod.Get(ctx, "G1")
	require.NoError(t, err)

	cases := map[string]struct {
		filter string
		config FilterConfig
	}{
		"unknown filter":   {filter: "nsfw", config: FilterConfig{}},
		"unknown action":   {filter: "spam", config: FilterConfig{Actions: []string{"explode"}}},
		"negative timeout": {filter: "spam", config: FilterConfig{TimeoutDuration: -1}},
		"percent range":    {filter: "spammed_caps", config: FilterConfig{CustomConfig: map[string]any{"max_caps_percentage": 101}}},
		"threshold range":  {filter: "ai_moderation", config: FilterConfig{CustomConfig: map[string]any{"gore_threshold": -5}}},
		"fractional count": {filter: "emoji_spam", config: FilterConfig{CustomConfig: map[string]any{"max_emojis": 2.5}}},
		"count overflow":   {filter: "mass_mention", config: FilterConfig{CustomConfig: map[string]any{"max_mentions": 1e19}}},
		"count past int32": {filter: "mass_mention", config: FilterConfig{CustomConfig: map[string]any{"max_mentions": float64(math.MaxInt32) + 1}}},
		"unknown key":      {filter: "links", config: FilterConfig{CustomConfig: map[string]any{"allow": true}}},
		"bad word types":   {filter: "bad_words", config: FilterConfig{CustomConfig: map[string]any{"bad_words": []any{1}}}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.AutoMod.UpdateFilter(ctx, "G1", tc.filter, tc.config)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestAutoModUpdateFilterRequiresDocument(t *testing.T) {
	svc, store, _ := newTestService(t)

	_, err := svc.AutoMod.UpdateFilter(context.Background(), "G1", "spam", FilterConfig{Enabled: true})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, rawCount(t, store, storage.CollectionAutoMod, nil))
}

func TestAutoModUpdateGlobalRequiresDocument(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AutoMod.UpdateGlobal(ctx, "G1", AutoModGlobal{IsEnabled: true})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.AutoMod.Get(ctx, "G1")
	require.NoError(t, err)
	got, err := svc.AutoMod.UpdateGlobal(ctx, "G1", AutoModGlobal{IsEnabled: true, MediaOnlyChannels: []string{"c1"}})
	require.NoError(t, err)
	assert.True(t, got.Global.IsEnabled)
	assert.Equal(t, []string{"c1"}, got.Global.MediaOnlyChannels)
	assert.Equal(t, []string{}, got.Global.IgnoredRoles)
}

func TestAutoModUpdateRulesUpsertsAndKeepsOrder(t *testing.T) {
	svc, store, _ := newTestService(t)

	duration := 600
	zero := 0
	got, err := svc.AutoMod.UpdateRules(context.Background(), "G1", []Rule{
		{Threshold: 5, Action: "ban"},
		{Threshold: 2, Action: "timeout", Duration: &duration},
		{Threshold: 3, Action: "kick", Duration: &zero},
	})
	require.NoError(t, err)

	require.Len(t, got.Rules, 3)
	assert.Equal(t, "ban", got.Rules[0].Action)
	assert.Equal(t, "timeout", got.Rules[1].Action)
	require.NotNil(t, got.Rules[1].Duration)
	assert.Equal(t, 600, *got.Rules[1].Duration)
	assert.Nil(t, got.Rules[2].Duration)
	assert.Len(t, got.Filters, len(FilterNames))

	stored := rawDocument(t, store, storage.CollectionAutoMod, storage.Filter{"guild_id": "G1"})
	assert.ElementsMatch(t, []string{"_id", "guild_id", "automod_rules", "created_at", "updated_at"}, keys(stored))
}

func TestAutoModUpdateRulesValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	negative := -10

	for _, rules := range [][]Rule{
		{{Threshold: 0, Action: "ban"}},
		{{Threshold: 1, Action: "warn"}},
		{{Threshold: 1, Action: "timeout", Duration: &negative}},
	} {
		_, err := svc.AutoMod.UpdateRules(ctx, "G1", rules)
		assert.ErrorIs(t, err, ErrValidation)
	}
}

func TestWholeNumber(t *testing.T) {
	n, ok := wholeNumber(float64(math.MaxInt32))
	assert.True(t, ok)
	assert.Equal(t, math.MaxInt32, n)

	for _, value := range []any{1e19, -1e19, math.Inf(1), math.NaN(), 2.5, "3"} {
		_, ok := wholeNumber(value)
		assert.False(t, ok, "%v", value)
	}
}
