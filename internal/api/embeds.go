package api

import (
	"net/http"

	"github.com/uptrace/bunrouter"

	"nexa-dashboard/internal/audit"
	"nexa-dashboard/internal/settings"
)

func (s *Server) listEmbeds(w http.ResponseWriter, req bunrouter.Request) error {
	embeds, err := s.settings.Embeds.List(req.Context(), req.Param("guildID"))
	if err != nil {
		return s.fail(w, req, err)
	}
	return writeData(w, embeds)
}

func (s *Server) saveEmbed(w http.ResponseWriter, req bunrouter.Request) error {
	var embed settings.Embed
	if err := decodeBody(w, req, &embed); err != nil {
		return s.fail(w, req, err)
	}
	embed.CreatedBy = userFrom(req.Context()).ID

	guildID := req.Param("guildID")
	saved, err := s.settings.Embeds.Save(req.Context(), guildID, embed)
	if err != nil {
		return s.fail(w, req, err)
	}
	s.record(req, audit.LevelInfo, guildID, "embed.save", saved.Name)
	return writeData(w, saved)
}

func (s *Server) deleteEmbed(w http.ResponseWriter, req bunrouter.Request) error {
	guildID := req.Param("guildID")
	embedID := req.Param("embedID")
	if err := s.settings.Embeds.Delete(req.Context(), guildID, embedID); err != nil {
		return s.fail(w, req, err)
	}
	s.record(req, audit.LevelWarn, guildID, "embed.delete", embedID)
	return writeData(w, map[string]string{"_id": embedID})
}
