package app

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/klabast/wb-services/team-kalender/internal/planner"
)

// maxBodySize bounds request bodies, including imports.
const maxBodySize = 16 << 20

// writeJSON encodes v as the response body.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("error encoding response", zap.Error(err))
	}
}

// writeError maps planner errors to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, planner.ErrMalformedPayload):
		http.Error(w, ErrMalformedImport, http.StatusBadRequest)
	case errors.Is(err, planner.ErrImportModeRequired):
		http.Error(w, ErrImportModeMissing, http.StatusConflict)
	case errors.Is(err, planner.ErrMemberNotFound):
		http.Error(w, ErrMemberMissing, http.StatusNotFound)
	case errors.Is(err, planner.ErrInvalidPlacement),
		errors.Is(err, planner.ErrInvalidAllowance),
		errors.Is(err, planner.ErrInvalidStatus),
		errors.Is(err, planner.ErrInvalidDate),
		errors.Is(err, planner.ErrBlankName):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		s.log.Error("request failed", zap.Error(err))
		http.Error(w, ErrInternalServer, http.StatusInternalServerError)
	}
}

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(v)
}

// readBody returns the raw request body.
func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxBodySize))
}

// yearParam parses the {year} URL parameter.
func yearParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1 || year > 9999 {
		http.Error(w, ErrInvalidYear, http.StatusBadRequest)
		return 0, false
	}
	return year, true
}

// monthParam parses the 0-based {month} URL parameter.
func monthParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 0 || month > 11 {
		http.Error(w, ErrInvalidMonth, http.StatusBadRequest)
		return 0, false
	}
	return month, true
}

// indexParam parses the {index} URL parameter.
func indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		http.Error(w, ErrInvalidMember, http.StatusBadRequest)
		return 0, false
	}
	return index, true
}
