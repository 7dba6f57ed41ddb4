package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yacine-dev/attendclass/models"
)

// ErrPersonNotFound is returned when a lookup by (id, kind) matches no row.
var ErrPersonNotFound = errors.New("person not found")

// PersonStore dispatches person lookups to the student or teacher
// repository depending on kind, and flattens both entities into the
// canonical PersonInfo shape.
type PersonStore struct {
	Students StudentRepositoryInterface
	Teachers TeacherRepositoryInterface
}

// NewPersonStore creates a PersonStore over the two kind repositories
func NewPersonStore(students StudentRepositoryInterface, teachers TeacherRepositoryInterface) *PersonStore {
	return &PersonStore{Students: students, Teachers: teachers}
}

// GetPerson looks up an identity by id within its kind. Returns
// ErrPersonNotFound when the identity does not exist (including when it
// was deleted after a classifier was trained on it).
func (s *PersonStore) GetPerson(id uint, kind models.PersonKind) (*PersonInfo, error) {
	switch kind {
	case models.KindStudent:
		student, err := s.Students.GetByID(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrPersonNotFound
			}
			return nil, err
		}
		return &PersonInfo{ID: student.ID, Kind: models.KindStudent, Name: student.FullName, PhotoPath: student.PhotoPath}, nil
	case models.KindTeacher:
		teacher, err := s.Teachers.GetByID(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrPersonNotFound
			}
			return nil, err
		}
		return &PersonInfo{ID: teacher.ID, Kind: models.KindTeacher, Name: teacher.FullName, PhotoPath: teacher.PhotoPath}, nil
	default:
		return nil, fmt.Errorf("unknown person kind %q", kind)
	}
}

// SetPhotoReference records the representative photo path for an identity
// after enrollment completes.
func (s *PersonStore) SetPhotoReference(id uint, kind models.PersonKind, path string) error {
	switch kind {
	case models.KindStudent:
		return s.Students.UpdatePhotoPath(id, path)
	case models.KindTeacher:
		return s.Teachers.UpdatePhotoPath(id, path)
	default:
		return fmt.Errorf("unknown person kind %q", kind)
	}
}
