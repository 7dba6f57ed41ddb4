package repository

import (
	"github.com/yacine-dev/attendclass/models"
)

// StudentRepositoryInterface defines the methods for student data operations
type StudentRepositoryInterface interface {
	GetByID(id uint) (*models.Student, error)
	ListAll() ([]models.Student, error)
	UpdatePhotoPath(id uint, photoPath string) error
}

// TeacherRepositoryInterface defines the methods for teacher data operations
type TeacherRepositoryInterface interface {
	GetByID(id uint) (*models.Teacher, error)
	ListAll() ([]models.Teacher, error)
	UpdatePhotoPath(id uint, photoPath string) error
}

// SeanceRepositoryInterface defines the methods for seance data operations
type SeanceRepositoryInterface interface {
	GetByID(id uint) (*models.Seance, error)
	ListAll() ([]models.Seance, error)
}

// AttendanceRepositoryInterface defines the methods for attendance data
// operations. Upsert must be idempotent per (seance, person, kind).
type AttendanceRepositoryInterface interface {
	Upsert(seanceID, personID uint, kind models.PersonKind, status string) error
	ListBySeance(seanceID uint) ([]models.AttendanceRecord, error)
	CountBySeance(seanceID uint) (AttendanceSummary, error)
}

// PersonInfo is the canonical record shape the pipeline works with,
// regardless of which table the person came from. Field mapping from the
// underlying entities happens once, here at the adapter boundary.
type PersonInfo struct {
	ID        uint              `json:"id"`
	Kind      models.PersonKind `json:"kind"`
	Name      string            `json:"name"`
	PhotoPath *string           `json:"photo_path,omitempty"`
}

// PersonStoreInterface is the kind-dispatching lookup facade consumed by
// enrollment, recognition and attendance recording.
type PersonStoreInterface interface {
	GetPerson(id uint, kind models.PersonKind) (*PersonInfo, error)
	SetPhotoReference(id uint, kind models.PersonKind, path string) error
}

// AttendanceSummary holds per-seance aggregate counts.
type AttendanceSummary struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Total   int `json:"total"`
}
