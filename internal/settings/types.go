package settings

import "time"

type ModerationSettings struct {
	ID        string    `json:"_id,omitempty" bson:"_id,omitempty"`
	GuildID   string    `json:"guild_id" bson:"guild_id"`
	Enabled   bool      `json:"is_moderation_settings_enabled" bson:"is_moderation_settings_enabled"`
	ModeRoles []string  `json:"mode_roles" bson:"mode_roles"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// ModerationUpdate carries the fields to set. Nil fields are left untouched.
type ModerationUpdate struct {
	Enabled   *bool    `json:"is_moderation_settings_enabled,omitempty"`
	ModeRoles []string `json:"mode_roles,omitempty"`
}

type AutoModGlobal struct {
	IsEnabled           bool     `json:"is_enabled" bson:"is_enabled"`
	IgnoredChannels     []string `json:"ignored_channels" bson:"ignored_channels"`
	IgnoredRoles        []string `json:"ignored_roles" bson:"ignored_roles"`
	MediaOnlyChannels   []string `json:"media_only_channels" bson:"media_only_channels"`
	YoutubeOnlyChannels []string `json:"youtube_only_channels" bson:"youtube_only_channels"`
	TwitchOnlyChannels  []string `json:"twitch_only_channels" bson:"twitch_only_channels"`
}

type FilterConfig struct {
	Enabled         bool           `json:"enabled" bson:"enabled"`
	Actions         []string       `json:"actions" bson:"actions"`
	TimeoutDuration int            `json:"timeout_duration" bson:"timeout_duration"`
	IgnoredRoles    []string       `json:"ignored_roles" bson:"ignored_roles"`
	IgnoredChannels []string       `json:"ignored_channels" bson:"ignored_channels"`
	CustomConfig    map[string]any `json:"custom_config" bson:"custom_config"`
}

type Rule struct {
	Threshold int    `json:"threshold" bson:"threshold"`
	Action    string `json:"action" bson:"action"`
	Duration  *int   `json:"duration,omitempty" bson:"duration,omitempty"`
}

type AutoModerationSettings struct {
	ID        string                  `json:"_id,omitempty" bson:"_id,omitempty"`
	GuildID   string                  `json:"guild_id" bson:"guild_id"`
	Global    AutoModGlobal           `json:"global" bson:"global"`
	Filters   map[string]FilterConfig `json:"filters" bson:"filters"`
	Rules     []Rule                  `json:"automod_rules" bson:"automod_rules"`
	CreatedAt time.Time               `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time               `json:"updated_at" bson:"updated_at"`
}

type CommandSettings struct {
	MaxLimit                 int  `json:"max_limit" bson:"max_limit"`
	AutoDeleteInvocation     bool `json:"auto_delete_invocation" bson:"auto_delete_invocation"`
	AutoDeleteResponse       bool `json:"auto_delete_response" bson:"auto_delete_response"`
	AutoDeleteWithInvocation bool `json:"auto_delete_with_invocation" bson:"auto_delete_with_invocation"`
	ResponseDeleteDelay      int  `json:"response_delete_delay" bson:"response_delete_delay"`
}

// CommandConfig is a per-guild command record. IsPremium is derived from the
// premium catalogue on every read and never written.
type CommandConfig struct {
	ID               string          `json:"_id,omitempty" bson:"_id,omitempty"`
	GuildID          string          `json:"guild_id" bson:"guild_id"`
	Command          string          `json:"command" bson:"command"`
	Description      string          `json:"description" bson:"description"`
	Category         string          `json:"category" bson:"category"`
	IsPremium        bool            `json:"is_premium" bson:"-"`
	Enabled          bool            `json:"enabled" bson:"enabled"`
	Aliases          []string        `json:"aliases" bson:"aliases"`
	EnabledRoles     []string        `json:"enabled_roles" bson:"enabled_roles"`
	DisabledRoles    []string        `json:"disabled_roles" bson:"disabled_roles"`
	EnabledChannels  []string        `json:"enabled_channels" bson:"enabled_channels"`
	DisabledChannels []string        `json:"disabled_channels" bson:"disabled_channels"`
	RolesSkipLimit   []string        `json:"roles_skip_limit" bson:"roles_skip_limit"`
	Settings         CommandSettings `json:"settings" bson:"settings"`
	CreatedAt        time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" bson:"updated_at"`
}

type CommandUpdate struct {
	Description      *string          `json:"description,omitempty"`
	Category         *string          `json:"category,omitempty"`
	Enabled          *bool            `json:"enabled,omitempty"`
	Aliases          []string         `json:"aliases,omitempty"`
	EnabledRoles     []string         `json:"enabled_roles,omitempty"`
	DisabledRoles    []string         `json:"disabled_roles,omitempty"`
	EnabledChannels  []string         `json:"enabled_channels,omitempty"`
	DisabledChannels []string         `json:"disabled_channels,omitempty"`
	RolesSkipLimit   []string         `json:"roles_skip_limit,omitempty"`
	Settings         *CommandSettings `json:"settings,omitempty"`
}

type EmbedFooter struct {
	Text    string `json:"text,omitempty" bson:"text,omitempty"`
	IconURL string `json:"icon_url,omitempty" bson:"icon_url,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name" bson:"name"`
	Value  string `json:"value" bson:"value"`
	Inline bool   `json:"inline" bson:"inline"`
}

type Embed struct {
	ID          string       `json:"_id,omitempty" bson:"_id,omitempty"`
	GuildID     string       `json:"guild_id" bson:"guild_id"`
	Name        string       `json:"name" bson:"name"`
	Title       string       `json:"title,omitempty" bson:"title,omitempty"`
	Description string       `json:"description,omitempty" bson:"description,omitempty"`
	Color       string       `json:"color" bson:"color"`
	Thumbnail   string       `json:"thumbnail,omitempty" bson:"thumbnail,omitempty"`
	Image       string       `json:"image,omitempty" bson:"image,omitempty"`
	Footer      EmbedFooter  `json:"footer" bson:"footer"`
	Fields      []EmbedField `json:"fields" bson:"fields"`
	CreatedBy   string       `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt   time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" bson:"updated_at"`
}

type Channels struct {
	LogChannel     string `json:"log_channel,omitempty" bson:"log_channel,omitempty"`
	WelcomeChannel string `json:"welcome_channel,omitempty" bson:"welcome_channel,omitempty"`
	LeaveChannel   string `json:"leave_channel,omitempty" bson:"leave_channel,omitempty"`
}

type ChannelsUpdate struct {
	LogChannel     *string `json:"log_channel,omitempty"`
	WelcomeChannel *string `json:"welcome_channel,omitempty"`
	LeaveChannel   *string `json:"leave_channel,omitempty"`
}

type GuildSettings struct {
	ID        string    `json:"_id,omitempty" bson:"_id,omitempty"`
	GuildID   string    `json:"guild_id" bson:"guild_id"`
	IsPremium bool      `json:"is_premium" bson:"is_premium"`
	Channels  Channels  `json:"channels" bson:"channels"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// GuildView is GuildSettings with IsPremium replaced by the effective value.
type GuildView struct {
	GuildSettings
	StoredIsPremium bool `json:"stored_is_premium"`
}

type User struct {
	ID             string    `json:"_id,omitempty" bson:"_id,omitempty"`
	DiscordID      string    `json:"discord_id" bson:"discord_id"`
	IsPremium      bool      `json:"is_premium" bson:"is_premium"`
	PremiumGuildID *string   `json:"premium_guild_id" bson:"premium_guild_id"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at"`
}
