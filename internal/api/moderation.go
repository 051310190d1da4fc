package api

import (
	"fmt"
	"net/http"

	"github.com/uptrace/bunrouter"

	"nexa-dashboard/internal/audit"
	"nexa-dashboard/internal/settings"
)

type autoModResponse struct {
	Settings       *settings.AutoModerationSettings `json:"settings"`
	IsPremium      bool                             `json:"is_premium"`
	PremiumFilters []string                         `json:"premium_filters"`
}

type autoModRulesRequest struct {
	Rules []settings.Rule `json:"automod_rules"`
}

func (s *Server) getModeration(w http.ResponseWriter, req bunrouter.Request) error {
	moderation, err := s.settings.Moderation.Get(req.Context(), req.Param("guildID"))
	if err != nil {
		return s.fail(w, req, err)
	}
	return writeData(w, moderation)
}

func (s *Server) updateModeration(w http.ResponseWriter, req bunrouter.Request) error {
	var update settings.ModerationUpdate
	if err := decodeBody(w, req, &update); err != nil {
		return s.fail(w, req, err)
	}

	guildID := req.Param("guildID")
	moderation, err := s.settings.Moderation.Update(req.Context(), guildID, update)
	if err != nil {
		return s.fail(w, req, err)
	}
	s.record(req, audit.LevelInfo, guildID, "moderation.update",
		fmt.Sprintf("enabled=%t roles=%d", moderation.Enabled, len(moderation.ModeRoles)))
	return writeData(w, moderation)
}

func (s *Server) getAutoMod(w http.ResponseWriter, req bunrouter.Request) error {
	ctx := req.Context()
	guildID := req.Param("guildID")

	automod, err := s.settings.AutoMod.Get(ctx, guildID)
	if err != nil {
		return s.fail(w, req, err)
	}
	premium, err := s.settings.Premium.IsEffectivelyPremium(ctx, guildID)
	if err != nil {
		return s.fail(w, req, err)
	}
	return writeData(w, autoModResponse{
		Settings:       automod,
		IsPremium:      premium,
		PremiumFilters: s.premium.Filters(),
	})
}

func (s *Server) updateAutoModGlobal(w http.ResponseWriter, req bunrouter.Request) error {
	var global settings.AutoModGlobal
	if err := decodeBody(w, req, &global); err != nil {
		return s.fail(w, req, err)
	}

	guildID := req.Param("guildID")
	automod, err := s.settings.AutoMod.UpdateGlobal(req.Context(), guildID, global)
	if err != nil {
		return s.fail(w, req, err)
	}
	s.record(req, audit.LevelInfo, guildID, "automod.global.update", fmt.Sprintf("enabled=%t", automod.Global.IsEnabled))
	return writeData(w, automod)
}

// updateAutoModFilter rejects changes to premium filters on guilds without
// effective premium.
func (s *Server) updateAutoModFilter(w http.ResponseWriter, req bunrouter.Request) error {
	var filter settings.FilterConfig
	if err := decodeBody(w, req, &filter); err != nil {
		return s.fail(w, req, err)
	}

	guildID := req.Param("guildID")
	name := req.Param("filter")
	// a disabled premium filter can always be written
	if filter.Enabled && s.premium.IsPremiumFilter(name) {
		if err := s.requirePremium(req, guildID); err != nil {
			return s.fail(w, req, err)
		}
	}

	automod, err := s.settings.AutoMod.UpdateFilter(req.Context(), guildID, name, filter)
	if err != nil {
		return s.fail(w, req, err)
	}
	s.record(req, audit.LevelInfo, guildID, "automod.filter.update", fmt.Sprintf("%s enabled=%t", name, filter.Enabled))
	return writeData(w, automod)
}

func (s *Server) updateAutoModRules(w http.ResponseWriter, req bunrouter.Request) error {
	var body autoModRulesRequest
	if err := decodeBody(w, req, &body); err != nil {
		return s.fail(w, req, err)
	}

	guildID := req.Param("guildID")
	automod, err := s.settings.AutoMod.UpdateRules(req.Context(), guildID, body.Rules)
	if err != nil {
		return s.fail(w, req, err)
	}
	s.record(req, audit.LevelInfo, guildID, "automod.rules.update", fmt.Sprintf("%d rules", len(automod.Rules)))
	return writeData(w, automod)
}
