package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yacine-dev/attendclass/models"
	"github.com/yacine-dev/attendclass/repository"
)

type stubAttendanceRepo struct {
	records []models.AttendanceRecord
	summary repository.AttendanceSummary
}

func (s *stubAttendanceRepo) Upsert(seanceID, personID uint, kind models.PersonKind, status string) error {
	return nil
}

func (s *stubAttendanceRepo) ListBySeance(seanceID uint) ([]models.AttendanceRecord, error) {
	return s.records, nil
}

func (s *stubAttendanceRepo) CountBySeance(seanceID uint) (repository.AttendanceSummary, error) {
	return s.summary, nil
}

func requestWithID(method, target, id string) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestAttendanceListBySeance(t *testing.T) {
	handler := &AttendanceHandler{Records: &stubAttendanceRepo{
		records: []models.AttendanceRecord{
			{SeanceID: 1, PersonID: 7, PersonKind: models.KindStudent, Status: models.StatusPresent},
		},
	}}

	w := httptest.NewRecorder()
	handler.ListBySeance(w, requestWithID(http.MethodGet, "/api/seances/1/attendance", "1"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"person_id":7`)
}

func TestAttendanceListRejectsBadID(t *testing.T) {
	handler := &AttendanceHandler{Records: &stubAttendanceRepo{}}

	w := httptest.NewRecorder()
	handler.ListBySeance(w, requestWithID(http.MethodGet, "/api/seances/abc/attendance", "abc"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttendanceSummaryEndpoint(t *testing.T) {
	handler := &AttendanceHandler{Records: &stubAttendanceRepo{
		summary: repository.AttendanceSummary{Present: 12, Absent: 3, Total: 15},
	}}

	w := httptest.NewRecorder()
	handler.Summary(w, requestWithID(http.MethodGet, "/api/seances/1/attendance/summary", "1"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"present":12`)
}

func TestRequireAPIKeyDisabledWithoutHash(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	RequireAPIKey("")(next).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequireAPIKeyEnforcesHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	guard := RequireAPIKey(string(hash))(next)

	// missing key
	w := httptest.NewRecorder()
	guard.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// wrong key
	w = httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set("X-API-Key", "nope")
	guard.ServeHTTP(w, r)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// correct key
	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set("X-API-Key", "s3cret")
	guard.ServeHTTP(w, r)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
