package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/yacine-dev/attendclass/repository"
)

type AttendanceHandler struct {
	Records repository.AttendanceRepositoryInterface
}

// ListBySeance returns the attendance records for a seance.
func (ah *AttendanceHandler) ListBySeance(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "Seance ID must be a positive integer")
		return
	}

	records, err := ah.Records.ListBySeance(uint(id))
	if err != nil {
		log.Printf("Error listing attendance for seance %d: %v", id, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve attendance")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// Summary returns present/absent counts for a seance.
func (ah *AttendanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "Seance ID must be a positive integer")
		return
	}

	summary, err := ah.Records.CountBySeance(uint(id))
	if err != nil {
		log.Printf("Error summarizing attendance for seance %d: %v", id, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to summarize attendance")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
