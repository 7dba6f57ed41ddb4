package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/yacine-dev/attendclass/attendance"
	"github.com/yacine-dev/attendclass/repository"
)

type SeanceHandler struct {
	Seances repository.SeanceRepositoryInterface
	Watcher *attendance.Watcher
}

func (sh *SeanceHandler) ListSeances(w http.ResponseWriter, r *http.Request) {
	seances, err := sh.Seances.ListAll()
	if err != nil {
		log.Printf("Error listing seances: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve seances")
		return
	}
	writeJSON(w, http.StatusOK, seances)
}

func (sh *SeanceHandler) GetSeance(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "Seance ID must be a positive integer")
		return
	}

	seance, err := sh.Seances.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Seance not found")
			return
		}
		log.Printf("Error fetching seance %d: %v", id, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve seance")
		return
	}

	decision, derr := attendance.Evaluate(seance, time.Now())
	resp := map[string]interface{}{"seance": seance}
	if derr == nil {
		resp["phase"] = decision.Phase
		if decision.Remaining > 0 {
			resp["remaining"] = attendance.RemainingString(decision.Remaining)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// SelectSeance makes the seance the one watched for attendance.
func (sh *SeanceHandler) SelectSeance(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "Seance ID must be a positive integer")
		return
	}

	if err := sh.Watcher.Select(uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Seance not found")
			return
		}
		log.Printf("Error selecting seance %d: %v", id, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to select seance")
		return
	}

	status, err := sh.Watcher.Status()
	if err != nil {
		log.Printf("Error reading watcher status after select: %v", err)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Seance selected"})
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// WatcherStatus reports the schedule phase of the selected seance.
func (sh *SeanceHandler) WatcherStatus(w http.ResponseWriter, r *http.Request) {
	status, err := sh.Watcher.Status()
	if err != nil {
		if errors.Is(err, attendance.ErrNoSeanceSelected) {
			WriteAPIError(w, http.StatusNotFound, "no_seance", "No seance is selected")
			return
		}
		log.Printf("Error reading watcher status: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to read watcher status")
		return
	}
	writeJSON(w, http.StatusOK, status)
}
