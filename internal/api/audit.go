package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/uptrace/bunrouter"

	"nexa-dashboard/internal/audit"
)

const defaultAuditWindow = 7 * 24 * time.Hour

type auditResponse struct {
	Entries []audit.Entry `json:"entries"`
	Summary audit.Summary `json:"summary"`
}

// listAudit serves ?since=<RFC3339>&limit=<n>, defaulting to the last week.
func (s *Server) listAudit(w http.ResponseWriter, req bunrouter.Request) error {
	if s.audit == nil {
		return writeData(w, auditResponse{Entries: []audit.Entry{}})
	}
	query := req.URL.Query()

	since := time.Now().Add(-defaultAuditWindow)
	if raw := query.Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return s.fail(w, req, errBadQuery("since must be an RFC3339 timestamp"))
		}
		since = parsed
	}
	limit := audit.DefaultListLimit
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return s.fail(w, req, errBadQuery("limit must be a positive integer"))
		}
		limit = parsed
	}

	ctx := req.Context()
	guildID := req.Param("guildID")
	entries, err := s.audit.List(ctx, guildID, since, limit)
	if err != nil {
		return s.fail(w, req, err)
	}
	summary, err := s.audit.Summary(ctx, guildID, since)
	if err != nil {
		return s.fail(w, req, err)
	}
	return writeData(w, auditResponse{Entries: entries, Summary: summary})
}
