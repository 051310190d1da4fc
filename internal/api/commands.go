package api

import (
	"net/http"

	"github.com/uptrace/bunrouter"

	"nexa-dashboard/internal/audit"
	"nexa-dashboard/internal/settings"
)

func (s *Server) listCommands(w http.ResponseWriter, req bunrouter.Request) error {
	commands, err := s.settings.Commands.List(req.Context(), req.Param("guildID"), req.URL.Query().Get("category"))
	if err != nil {
		return s.fail(w, req, err)
	}
	return writeData(w, commands)
}

// updateCommand refuses to enable a premium command on a guild without
// effective premium. Disabling is always allowed.
func (s *Server) updateCommand(w http.ResponseWriter, req bunrouter.Request) error {
	var update settings.CommandUpdate
	if err := decodeBody(w, req, &update); err != nil {
		return s.fail(w, req, err)
	}

	guildID := req.Param("guildID")
	command := req.Param("command")
	if !disablesOnly(update) && s.premium.IsPremiumCommand(command) {
		if err := s.requirePremium(req, guildID); err != nil {
			return s.fail(w, req, err)
		}
	}

	config, err := s.settings.Commands.Update(req.Context(), guildID, command, update)
	if err != nil {
		return s.fail(w, req, err)
	}
	s.record(req, audit.LevelInfo, guildID, "command.update", command)
	return writeData(w, config)
}

// disablesOnly reports whether the update does nothing but turn the command off.
// That is the one change a guild without premium may make to a premium command.
func disablesOnly(update settings.CommandUpdate) bool {
	if update.Enabled == nil || *update.Enabled {
		return false
	}
	return update.Description == nil &&
		update.Category == nil &&
		update.Aliases == nil &&
		update.EnabledRoles == nil &&
		update.DisabledRoles == nil &&
		update.EnabledChannels == nil &&
		update.DisabledChannels == nil &&
		update.RolesSkipLimit == nil &&
		update.Settings == nil
}
