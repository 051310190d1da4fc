package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"

	"nexa-dashboard/internal/settings"
)

var (
	errUnauthorized    = errors.New("unauthorized")
	errForbidden       = errors.New("missing Manage Server permission for this guild")
	errPremiumRequired = errors.New("premium required")
	errBadRequest      = errors.New("invalid request")
)

func errBadQuery(reason string) error {
	return fmt.Errorf("%w: %s", errBadRequest, reason)
}

const maxBodyBytes = 1 << 20

// envelope is the body of every /v1 response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeData(w http.ResponseWriter, data any) error {
	return bunrouter.JSON(w, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, err error) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(envelope{Success: false, Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, settings.ErrValidation), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errForbidden), errors.Is(err, errPremiumRequired):
		return http.StatusForbidden
	case errors.Is(err, settings.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, settings.ErrDuplicateName):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Persistence faults are logged and
// reported without internals.
func (s *Server) fail(w http.ResponseWriter, req bunrouter.Request, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", req.Method),
			zap.String("route", req.Route()),
			zap.Error(err))
		return writeError(w, status, errors.New("internal server error"))
	}
	return writeError(w, status, err)
}

func decodeBody(w http.ResponseWriter, req bunrouter.Request, out any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("%w: body: %v", errBadRequest, err)
	}
	return nil
}
