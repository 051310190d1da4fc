package settings

import (
	"context"
	"errors"

	"nexa-dashboard/internal/storage"
)

type Guilds struct {
	docs    documents
	premium *Premium
}

func (g *Guilds) Get(ctx context.Context, guildID string) (*GuildView, error) {
	if err := requireGuild(guildID); err != nil {
		return nil, err
	}
	var stored GuildSettings
	if err := g.docs.getOrCreate(ctx, "get guild settings", storage.Filter{"guild_id": guildID}, &stored); err != nil {
		return nil, err
	}
	return g.view(ctx, stored)
}

// UpdateChannels sets the provided channel ids. The stored premium flag is not
// writable from here.
func (g *Guilds) UpdateChannels(ctx context.Context, guildID string, update ChannelsUpdate) (*GuildView, error) {
	if err := requireGuild(guildID); err != nil {
		return nil, err
	}
	values := map[string]any{}
	if update.LogChannel != nil {
		values["channels.log_channel"] = *update.LogChannel
	}
	if update.WelcomeChannel != nil {
		values["channels.welcome_channel"] = *update.WelcomeChannel
	}
	if update.LeaveChannel != nil {
		values["channels.leave_channel"] = *update.LeaveChannel
	}

	var stored GuildSettings
	if err := g.docs.set(ctx, "update guild channels", storage.Filter{"guild_id": guildID}, values, false, &stored); err != nil {
		return nil, err
	}
	return g.view(ctx, stored)
}

func (g *Guilds) view(ctx context.Context, stored GuildSettings) (*GuildView, error) {
	view := &GuildView{GuildSettings: stored, StoredIsPremium: stored.IsPremium}
	if stored.IsPremium {
		return view, nil
	}
	delegated, err := g.premium.delegated(ctx, stored.GuildID)
	if err != nil {
		return nil, err
	}
	view.IsPremium = delegated
	return view, nil
}

// Premium resolves the premium bit actually used for feature gating.
type Premium struct {
	guilds storage.Collection
	users  storage.Collection
}

// IsEffectivelyPremium reports whether the guild is flagged premium or a
// premium user has assigned their subscription to it. It is recomputed on
// every call.
func (p *Premium) IsEffectivelyPremium(ctx context.Context, guildID string) (bool, error) {
	if err := requireGuild(guildID); err != nil {
		return false, err
	}

	doc, err := p.guilds.FindOne(ctx, storage.Filter{"guild_id": guildID})
	switch {
	case err == nil:
		var stored struct {
			IsPremium bool `json:"is_premium"`
		}
		if err := storage.Decode(doc, &stored); err != nil {
			return false, translate("resolve premium", err)
		}
		if stored.IsPremium {
			return true, nil
		}
	case !errors.Is(err, storage.ErrNotFound):
		return false, translate("resolve premium", err)
	}

	return p.delegated(ctx, guildID)
}

func (p *Premium) delegated(ctx context.Context, guildID string) (bool, error) {
	_, err := p.users.FindOne(ctx, storage.Filter{"premium_guild_id": guildID, "is_premium": true})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrNotFound):
		return false, nil
	default:
		return false, translate("resolve premium", err)
	}
}
