package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/yacine-dev/attendclass/enrollment"
	"github.com/yacine-dev/attendclass/models"
	"github.com/yacine-dev/attendclass/repository"
)

type EnrollmentHandler struct {
	Controller *enrollment.Controller
}

// StartEnrollment begins a sample capture session for a person.
func (eh *EnrollmentHandler) StartEnrollment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PersonID uint   `json:"person_id"`
		Kind     string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_body", "Invalid request body: "+err.Error())
		return
	}

	kind := models.PersonKind(req.Kind)
	if !kind.Valid() {
		WriteAPIError(w, http.StatusBadRequest, "invalid_kind", "Kind must be \"student\" or \"teacher\"")
		return
	}
	if req.PersonID == 0 {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "Missing required field: person_id")
		return
	}

	session, err := eh.Controller.Begin(req.PersonID, kind)
	if err != nil {
		switch {
		case errors.Is(err, enrollment.ErrSessionActive):
			WriteAPIError(w, http.StatusConflict, "session_active", "Another enrollment session is running")
		case errors.Is(err, repository.ErrPersonNotFound):
			WriteAPIError(w, http.StatusNotFound, "not_found", "Person not found")
		default:
			log.Printf("Error starting enrollment for %s %d: %v", kind, req.PersonID, err)
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to start enrollment")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"session_id": session.ID,
		"person_id":  session.PersonID,
		"kind":       session.Kind,
		"target":     session.Target,
	})
}

// EnrollmentProgress reports capture progress of the active session.
func (eh *EnrollmentHandler) EnrollmentProgress(w http.ResponseWriter, r *http.Request) {
	session := eh.Controller.Current()
	if session == nil {
		WriteAPIError(w, http.StatusNotFound, "no_session", "No enrollment session")
		return
	}

	captured, target := session.Progress()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": session.ID,
		"person_id":  session.PersonID,
		"kind":       session.Kind,
		"captured":   captured,
		"target":     target,
	})
}

// CancelEnrollment stops the active session before completion.
func (eh *EnrollmentHandler) CancelEnrollment(w http.ResponseWriter, r *http.Request) {
	session := eh.Controller.Current()
	if session == nil {
		WriteAPIError(w, http.StatusNotFound, "no_session", "No enrollment session")
		return
	}

	session.Cancel()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Enrollment session cancelled"})
}
