package settings

import (
	"context"

	"nexa-dashboard/internal/storage"
)

type Moderation struct {
	docs documents
}

func (m *Moderation) Get(ctx context.Context, guildID string) (*ModerationSettings, error) {
	if err := requireGuild(guildID); err != nil {
		return nil, err
	}
	var out ModerationSettings
	if err := m.docs.getOrCreate(ctx, "get moderation settings", storage.Filter{"guild_id": guildID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update creates the document when the guild has none. The created document
// only holds the fields being set.
func (m *Moderation) Update(ctx context.Context, guildID string, update ModerationUpdate) (*ModerationSettings, error) {
	if err := requireGuild(guildID); err != nil {
		return nil, err
	}
	values := map[string]any{}
	if update.Enabled != nil {
		values["is_moderation_settings_enabled"] = *update.Enabled
	}
	if update.ModeRoles != nil {
		values["mode_roles"] = cleanIDs(update.ModeRoles)
	}

	var out ModerationSettings
	if err := m.docs.set(ctx, "update moderation settings", storage.Filter{"guild_id": guildID}, values, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
