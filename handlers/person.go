package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/yacine-dev/attendclass/repository"
)

type PersonHandler struct {
	Students repository.StudentRepositoryInterface
	Teachers repository.TeacherRepositoryInterface
}

func (ph *PersonHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := ph.Students.ListAll()
	if err != nil {
		log.Printf("Error listing students: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve students")
		return
	}
	writeJSON(w, http.StatusOK, students)
}

func (ph *PersonHandler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "Student ID must be a positive integer")
		return
	}

	student, err := ph.Students.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Student not found")
			return
		}
		log.Printf("Error fetching student %d: %v", id, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve student")
		return
	}
	writeJSON(w, http.StatusOK, student)
}

func (ph *PersonHandler) ListTeachers(w http.ResponseWriter, r *http.Request) {
	teachers, err := ph.Teachers.ListAll()
	if err != nil {
		log.Printf("Error listing teachers: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve teachers")
		return
	}
	writeJSON(w, http.StatusOK, teachers)
}

func (ph *PersonHandler) GetTeacher(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "Teacher ID must be a positive integer")
		return
	}

	teacher, err := ph.Teachers.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Teacher not found")
			return
		}
		log.Printf("Error fetching teacher %d: %v", id, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve teacher")
		return
	}
	writeJSON(w, http.StatusOK, teacher)
}
