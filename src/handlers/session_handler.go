package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/username/loanlens/backend/src/logger"
	"github.com/username/loanlens/backend/src/parsers"
	"github.com/username/loanlens/backend/src/services"
	"github.com/username/loanlens/backend/src/utils"
)

// SessionHeader carries the session ID on every dataset-scoped request.
const SessionHeader = "X-Session-ID"

// SessionIDFromRequest extracts the session ID from the request header.
func SessionIDFromRequest(r *http.Request) (string, bool) {
	id := r.Header.Get(SessionHeader)
	return id, id != ""
}

// MapServiceError translates service-layer errors into JSON responses.
// SchemaError surfaces the offending column name to the user.
func MapServiceError(w http.ResponseWriter, sessionID string, err error) {
	var schemaErr *parsers.SchemaError
	switch {
	case errors.As(err, &schemaErr):
		logger.L.Warn("Upload rejected: schema error", "sessionID", sessionID, "file", schemaErr.File, "column", schemaErr.Column)
		utils.SendJSONError(w, schemaErr.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrParsingFailed),
		errors.Is(err, services.ErrUnknownDatasetKind),
		errors.Is(err, services.ErrUnknownTable),
		errors.Is(err, services.ErrUnknownFormat):
		logger.L.Warn("Request failed with client error", "sessionID", sessionID, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrSessionNotFound):
		utils.SendJSONError(w, "session not found or expired", http.StatusNotFound)
	case errors.Is(err, services.ErrDatasetIncomplete):
		utils.SendJSONError(w, err.Error(), http.StatusConflict)
	default:
		logger.L.Error("Internal error", "sessionID", sessionID, "error", err)
		utils.SendJSONError(w, "An internal error occurred. Please try again later.", http.StatusInternalServerError)
	}
}

type SessionHandler struct {
	analysisService services.AnalysisService
}

func NewSessionHandler(service services.AnalysisService) *SessionHandler {
	return &SessionHandler{analysisService: service}
}

// HandleCreateSession opens a new empty analysis session.
func (h *SessionHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	sessionID := h.analysisService.CreateSession()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(map[string]string{"session_id": sessionID}); err != nil {
		logger.L.Error("Error encoding session creation response", "error", err)
	}
}

// HandleDeleteSession drops the session's dataset and derived results.
func (h *SessionHandler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := SessionIDFromRequest(r)
	if !ok {
		utils.SendJSONError(w, "missing X-Session-ID header", http.StatusBadRequest)
		return
	}
	h.analysisService.ClearSession(sessionID)
	w.WriteHeader(http.StatusNoContent)
}
