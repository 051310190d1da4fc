package settings

import (
	"context"
	"strings"

	"nexa-dashboard/internal/storage"
)

type Users struct {
	docs documents
}

// Ensure returns the user's record, creating a non-premium one on first login.
func (u *Users) Ensure(ctx context.Context, discordID string) (*User, error) {
	if strings.TrimSpace(discordID) == "" {
		return nil, validationf("discord id is required")
	}
	var out User
	if err := u.docs.getOrCreate(ctx, "ensure user", storage.Filter{"discord_id": discordID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AssignPremiumGuild points a premium user's subscription at guildID. An empty
// guildID withdraws it.
func (u *Users) AssignPremiumGuild(ctx context.Context, discordID, guildID string) (*User, error) {
	if strings.TrimSpace(discordID) == "" {
		return nil, validationf("discord id is required")
	}

	doc, err := u.docs.coll.FindOne(ctx, storage.Filter{"discord_id": discordID})
	if err != nil {
		return nil, translate("assign premium guild", err)
	}
	var current User
	if err := u.docs.decode("assign premium guild", doc, &current); err != nil {
		return nil, err
	}
	if !current.IsPremium && guildID != "" {
		return nil, validationf("user %s has no premium subscription", discordID)
	}

	var value any
	if guildID != "" {
		value = guildID
	}
	var out User
	values := map[string]any{"premium_guild_id": value}
	if err := u.docs.set(ctx, "assign premium guild", storage.Filter{"discord_id": discordID}, values, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
