package settings

import (
	"context"
	"math"

	"nexa-dashboard/internal/storage"
)

var percentKeys = []string{"max_caps_percentage", "toxicity_threshold", "nudity_threshold", "gore_threshold"}

var countKeys = []string{"max_mentions", "max_emojis", "max_lines"}

type AutoModeration struct {
	docs documents
}

// Get returns the guild's auto-moderation settings with every filter present.
// Filters missing from the stored document are filled from their defaults on
// read only.
func (a *AutoModeration) Get(ctx context.Context, guildID string) (*AutoModerationSettings, error) {
	if err := requireGuild(guildID); err != nil {
		return nil, err
	}
	var out AutoModerationSettings
	if err := a.docs.getOrCreate(ctx, "get automod settings", storage.Filter{"guild_id": guildID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *AutoModeration) UpdateGlobal(ctx context.Context, guildID string, global AutoModGlobal) (*AutoModerationSettings, error) {
	if err := requireGuild(guildID); err != nil {
		return nil, err
	}
	global.IgnoredChannels = cleanIDs(global.IgnoredChannels)
	global.IgnoredRoles = cleanIDs(global.IgnoredRoles)
	global.MediaOnlyChannels = cleanIDs(global.MediaOnlyChannels)
	global.YoutubeOnlyChannels = cleanIDs(global.YoutubeOnlyChannels)
	global.TwitchOnlyChannels = cleanIDs(global.TwitchOnlyChannels)

	var out AutoModerationSettings
	values := map[string]any{"global": global}
	if err := a.docs.set(ctx, "update automod global", storage.Filter{"guild_id": guildID}, values, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateFilter replaces the whole sub-document of one filter.
func (a *AutoModeration) UpdateFilter(ctx context.Context, guildID, filter string, config FilterConfig) (*AutoModerationSettings, error) {
	if err := requireGuild(guildID); err != nil {
		return nil, err
	}
	if !IsFilterName(filter) {
		return nil, validationf("unknown filter %q", filter)
	}
	normalized, err := normalizeFilter(config)
	if err != nil {
		return nil, err
	}

	var out AutoModerationSettings
	values := map[string]any{"filters." + filter: normalized}
	if err := a.docs.set(ctx, "update automod filter", storage.Filter{"guild_id": guildID}, values, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRules replaces the escalation rules, creating the document when the
// guild has none. Rules keep the caller's order.
func (a *AutoModeration) UpdateRules(ctx context.Context, guildID string, rules []Rule) (*AutoModerationSettings, error) {
	if err := requireGuild(guildID); err != nil {
		return nil, err
	}
	normalized, err := normalizeRules(rules)
	if err != nil {
		return nil, err
	}

	var out AutoModerationSettings
	values := map[string]any{"automod_rules": normalized}
	if err := a.docs.set(ctx, "update automod rules", storage.Filter{"guild_id": guildID}, values, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func normalizeFilter(config FilterConfig) (FilterConfig, error) {
	if config.TimeoutDuration < 0 {
		return FilterConfig{}, validationf("timeout_duration must not be negative")
	}
	actions := cleanIDs(config.Actions)
	for _, action := range actions {
		if !contains(FilterActions, action) {
			return FilterConfig{}, validationf("unknown filter action %q", action)
		}
	}
	custom, err := normalizeCustomConfig(config.CustomConfig)
	if err != nil {
		return FilterConfig{}, err
	}

	return FilterConfig{
		Enabled:         config.Enabled,
		Actions:         actions,
		TimeoutDuration: config.TimeoutDuration,
		IgnoredRoles:    cleanIDs(config.IgnoredRoles),
		IgnoredChannels: cleanIDs(config.IgnoredChannels),
		CustomConfig:    custom,
	}, nil
}

func normalizeCustomConfig(config map[string]any) (map[string]any, error) {
	out := map[string]any{}
	if len(config) == 0 {
		return out, nil
	}
	normalized, err := storage.NormalizeMap(config)
	if err != nil {
		return nil, validationf("custom_config: %v", err)
	}

	for key, value := range normalized {
		switch {
		case key == "bad_words":
			words, err := stringList(value)
			if err != nil {
				return nil, validationf("custom_config.bad_words: %v", err)
			}
			out[key] = words
		case contains(percentKeys, key):
			n, ok := wholeNumber(value)
			if !ok || n < 0 || n > 100 {
				return nil, validationf("custom_config.%s must be a whole number between 0 and 100", key)
			}
			out[key] = n
		case contains(countKeys, key):
			n, ok := wholeNumber(value)
			if !ok || n < 0 {
				return nil, validationf("custom_config.%s must be a whole number of at least 0", key)
			}
			out[key] = n
		default:
			return nil, validationf("unknown custom_config key %q", key)
		}
	}
	return out, nil
}

func normalizeRules(rules []Rule) ([]Rule, error) {
	out := make([]Rule, 0, len(rules))
	for i, rule := range rules {
		if rule.Threshold < 1 {
			return nil, validationf("rule %d: threshold must be at least 1", i)
		}
		if !contains(RuleActions, rule.Action) {
			return nil, validationf("rule %d: unknown action %q", i, rule.Action)
		}
		normalized := Rule{Threshold: rule.Threshold, Action: rule.Action}
		if rule.Action == "timeout" && rule.Duration != nil {
			if *rule.Duration <= 0 {
				return nil, validationf("rule %d: duration must be positive", i)
			}
			duration := *rule.Duration
			normalized.Duration = &duration
		}
		out = append(out, normalized)
	}
	return out, nil
}

func stringList(value any) ([]string, error) {
	if value == nil {
		return []string{}, nil
	}
	items, ok := value.([]any)
	if !ok {
		return nil, validationf("expected a list of strings")
	}
	values := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, validationf("expected a list of strings")
		}
		values = append(values, s)
	}
	return cleanIDs(values), nil
}

// wholeNumber accepts integral values that fit in an int32.
func wholeNumber(value any) (int, bool) {
	f, ok := value.(float64)
	if !ok || f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
