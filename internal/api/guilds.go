package api

import (
	"fmt"
	"net/http"

	"github.com/uptrace/bunrouter"

	"nexa-dashboard/internal/audit"
	"nexa-dashboard/internal/discord"
	"nexa-dashboard/internal/settings"
)

type guildOverviewResponse struct {
	Guild           *discord.Overview   `json:"guild"`
	Settings        *settings.GuildView `json:"settings"`
	IsPremium       bool                `json:"is_premium"`
	PremiumFilters  []string            `json:"premium_filters"`
	PremiumCommands []string            `json:"premium_commands"`
}

type guildRolesResponse struct {
	Roles              []discord.Role `json:"roles"`
	BotHighestPosition int            `json:"bot_highest_position"`
}

type premiumGuildRequest struct {
	GuildID string `json:"guild_id"`
}

func (s *Server) listGuilds(w http.ResponseWriter, req bunrouter.Request) error {
	return writeData(w, s.discord.Guilds(req.Context(), tokenFrom(req.Context())))
}

// guildOverview creates the guild's settings document on first visit.
func (s *Server) guildOverview(w http.ResponseWriter, req bunrouter.Request) error {
	ctx := req.Context()
	guildID := req.Param("guildID")

	view, err := s.settings.Guilds.Get(ctx, guildID)
	if err != nil {
		return s.fail(w, req, err)
	}
	return writeData(w, guildOverviewResponse{
		Guild:           s.discord.Overview(ctx, guildID),
		Settings:        view,
		IsPremium:       view.IsPremium,
		PremiumFilters:  s.premium.Filters(),
		PremiumCommands: s.premium.Commands(),
	})
}

func (s *Server) guildRoles(w http.ResponseWriter, req bunrouter.Request) error {
	ctx := req.Context()
	guildID := req.Param("guildID")
	return writeData(w, guildRolesResponse{
		Roles:              s.discord.Roles(ctx, guildID),
		BotHighestPosition: s.discord.BotHighestRolePosition(ctx, guildID),
	})
}

func (s *Server) guildChannels(w http.ResponseWriter, req bunrouter.Request) error {
	return writeData(w, s.discord.Channels(req.Context(), req.Param("guildID")))
}

func (s *Server) getGuildSettings(w http.ResponseWriter, req bunrouter.Request) error {
	view, err := s.settings.Guilds.Get(req.Context(), req.Param("guildID"))
	if err != nil {
		return s.fail(w, req, err)
	}
	return writeData(w, view)
}

func (s *Server) updateGuildSettings(w http.ResponseWriter, req bunrouter.Request) error {
	var update settings.ChannelsUpdate
	if err := decodeBody(w, req, &update); err != nil {
		return s.fail(w, req, err)
	}

	guildID := req.Param("guildID")
	view, err := s.settings.Guilds.UpdateChannels(req.Context(), guildID, update)
	if err != nil {
		return s.fail(w, req, err)
	}
	s.record(req, audit.LevelInfo, guildID, "settings.channels.update", "channels updated")
	return writeData(w, view)
}

// assignPremiumGuild delegates the caller's premium subscription. The target
// guild must be one the caller manages.
func (s *Server) assignPremiumGuild(w http.ResponseWriter, req bunrouter.Request) error {
	var body premiumGuildRequest
	if err := decodeBody(w, req, &body); err != nil {
		return s.fail(w, req, err)
	}

	ctx := req.Context()
	if body.GuildID != "" && !s.discord.CanManage(ctx, tokenFrom(ctx), body.GuildID) {
		return writeError(w, http.StatusForbidden, errForbidden)
	}
	user, err := s.settings.Users.AssignPremiumGuild(ctx, userFrom(ctx).ID, body.GuildID)
	if err != nil {
		return s.fail(w, req, err)
	}

	details := "premium withdrawn"
	if body.GuildID != "" {
		details = fmt.Sprintf("premium assigned to %s", body.GuildID)
	}
	s.record(req, audit.LevelWarn, body.GuildID, "premium.assign", details)
	return writeData(w, user)
}

func (s *Server) requirePremium(req bunrouter.Request, guildID string) error {
	premium, err := s.settings.Premium.IsEffectivelyPremium(req.Context(), guildID)
	if err != nil {
		return err
	}
	if !premium {
		return errPremiumRequired
	}
	return nil
}

func (s *Server) record(req bunrouter.Request, level, guildID, event, details string) {
	if s.audit == nil {
		return
	}
	userID := ""
	if user := userFrom(req.Context()); user != nil {
		userID = user.ID
	}
	s.audit.Log(req.Context(), level, guildID, userID, event, details)
}
