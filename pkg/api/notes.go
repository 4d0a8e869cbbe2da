package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"otterseal/pkg/logger"
	"otterseal/pkg/store"
	"otterseal/pkg/telemetry"
	"otterseal/pkg/utils"
	"otterseal/pkg/validation"
)

type createNoteRequest struct {
	Content          string `json:"content"`
	ExpiresAt        *int64 `json:"expiresAt"`
	BurnAfterReading bool   `json:"burnAfterReading"`
}

type readNoteResponse struct {
	Content          string `json:"content"`
	ExpiresAt        *int64 `json:"expiresAt"`
	BurnAfterReading bool   `json:"burnAfterReading"`
}

type peekNoteResponse struct {
	Exists           bool   `json:"exists"`
	ExpiresAt        *int64 `json:"expiresAt"`
	BurnAfterReading bool   `json:"burnAfterReading"`
}

func nowMillis() int64 { return time.Now().UnixMilli() }

// createNote upserts the ciphertext envelope for an id. The response is
// identical for create and overwrite; revealing which would leak whether
// somebody else already used the title.
func createNote(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := validation.ValidateID(id); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req createNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validation.ValidateContent(req.Content); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.PutNote(id, req.Content, req.ExpiresAt, req.BurnAfterReading, nowMillis()); err != nil {
		logger.Error("note_create_failed", "error", err)
		utils.JSONError(w, http.StatusInternalServerError, "server error")
		return
	}
	telemetry.NotesCreated.Inc()
	_ = utils.JSONWrite(w, http.StatusOK, map[string]bool{"success": true})
}

// getNote serves a full read, or a metadata peek with ?peek=1. A full
// read of a burn-after-reading note consumes it; peek never does.
// Absent and lapsed notes answer 404 and 410: the caller's messaging
// differs between "never created" and "was here, gone now".
func getNote(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := validation.ValidateID(id); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	peek := r.URL.Query().Get("peek")
	if peek == "1" || peek == "true" {
		m, err := store.PeekNote(id, nowMillis())
		if err != nil {
			writeLookupError(w, err)
			return
		}
		_ = utils.JSONWrite(w, http.StatusOK, peekNoteResponse{
			Exists:           true,
			ExpiresAt:        m.ExpiresAt,
			BurnAfterReading: m.BurnAfterReading,
		})
		return
	}

	n, err := store.ReadNote(id, nowMillis())
	if err != nil {
		writeLookupError(w, err)
		return
	}
	telemetry.NotesRead.Inc()
	_ = utils.JSONWrite(w, http.StatusOK, readNoteResponse{
		Content:          n.Content,
		ExpiresAt:        n.ExpiresAt,
		BurnAfterReading: n.BurnAfterReading,
	})
}

func writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		utils.JSONError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrExpired):
		utils.JSONError(w, http.StatusGone, "expired")
	default:
		logger.Error("note_lookup_failed", "error", err)
		utils.JSONError(w, http.StatusInternalServerError, "server error")
	}
}
