package settings

const (
	DefaultTimeoutDuration     = 60
	DefaultCommandDescription  = "No description available."
	DefaultCommandCategory     = "General"
	DefaultMaxLimit            = 4
	DefaultResponseDeleteDelay = 5
	DefaultEmbedColor          = "#5865F2"
)

// FilterNames is the closed set of auto-moderation filters in display order.
var FilterNames = []string{
	"spam",
	"bad_words",
	"duplicate_text",
	"repeated_messages",
	"discord_invites",
	"links",
	"spammed_caps",
	"emoji_spam",
	"mass_mention",
	"ai_moderation",
}

var FilterActions = []string{"block", "timeout", "mute", "warn", "kick", "ban"}

var RuleActions = []string{"timeout", "kick", "ban"}

func IsFilterName(name string) bool {
	return contains(FilterNames, name)
}

func moderationDefaults() map[string]any {
	return map[string]any{
		"is_moderation_settings_enabled": false,
		"mode_roles":                     []any{},
	}
}

func globalDefaults() map[string]any {
	return map[string]any{
		"is_enabled":            false,
		"ignored_channels":      []any{},
		"ignored_roles":         []any{},
		"media_only_channels":   []any{},
		"youtube_only_channels": []any{},
		"twitch_only_channels":  []any{},
	}
}

func customConfigDefaults(filter string) map[string]any {
	switch filter {
	case "bad_words":
		return map[string]any{"bad_words": []any{}}
	case "spammed_caps":
		return map[string]any{"max_caps_percentage": float64(70)}
	case "emoji_spam":
		return map[string]any{"max_emojis": float64(10)}
	case "mass_mention":
		return map[string]any{"max_mentions": float64(5)}
	case "ai_moderation":
		return map[string]any{
			"toxicity_threshold": float64(80),
			"nudity_threshold":   float64(80),
			"gore_threshold":     float64(80),
		}
	default:
		return map[string]any{}
	}
}

func filterDefaults(filter string) map[string]any {
	return map[string]any{
		"enabled":          false,
		"actions":          []any{},
		"timeout_duration": float64(DefaultTimeoutDuration),
		"ignored_roles":    []any{},
		"ignored_channels": []any{},
		"custom_config":    customConfigDefaults(filter),
	}
}

func automodDefaults() map[string]any {
	filters := make(map[string]any, len(FilterNames))
	for _, name := range FilterNames {
		filters[name] = filterDefaults(name)
	}
	return map[string]any{
		"global":        globalDefaults(),
		"filters":       filters,
		"automod_rules": []any{},
	}
}

func commandDefaults() map[string]any {
	return map[string]any{
		"description":       DefaultCommandDescription,
		"category":          DefaultCommandCategory,
		"enabled":           true,
		"aliases":           []any{},
		"enabled_roles":     []any{},
		"disabled_roles":    []any{},
		"enabled_channels":  []any{},
		"disabled_channels": []any{},
		"roles_skip_limit":  []any{},
		"settings": map[string]any{
			"max_limit":                   float64(DefaultMaxLimit),
			"auto_delete_invocation":      false,
			"auto_delete_response":        false,
			"auto_delete_with_invocation": false,
			"response_delete_delay":       float64(DefaultResponseDeleteDelay),
		},
	}
}

func embedDefaults() map[string]any {
	return map[string]any{
		"color":  DefaultEmbedColor,
		"footer": map[string]any{},
		"fields": []any{},
	}
}

func guildDefaults() map[string]any {
	return map[string]any{
		"is_premium": false,
		"channels":   map[string]any{},
	}
}

func userDefaults() map[string]any {
	return map[string]any{
		"is_premium":       false,
		"premium_guild_id": nil,
	}
}

func contains(values []string, value string) bool {
	for _, candidate := range values {
		if candidate == value {
			return true
		}
	}
	return false
}
