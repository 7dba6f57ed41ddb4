package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yacine-dev/attendclass/models"
)

// TeacherRepository handles database operations for Teacher entities
type TeacherRepository struct {
	DB *gorm.DB
}

// NewTeacherRepository creates a new instance of TeacherRepository
func NewTeacherRepository(db *gorm.DB) *TeacherRepository {
	return &TeacherRepository{DB: db}
}

// GetByID retrieves a teacher by their ID
func (r *TeacherRepository) GetByID(id uint) (*models.Teacher, error) {
	var teacher models.Teacher
	err := r.DB.First(&teacher, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get teacher by ID %d: %w", id, err)
	}
	return &teacher, nil
}

// ListAll retrieves all teachers, ordered by full_name
func (r *TeacherRepository) ListAll() ([]models.Teacher, error) {
	var teachers []models.Teacher
	err := r.DB.Order("full_name ASC").Find(&teachers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list teachers: %w", err)
	}
	return teachers, nil
}

// UpdatePhotoPath sets the representative photo for a teacher after a
// completed enrollment run.
func (r *TeacherRepository) UpdatePhotoPath(id uint, photoPath string) error {
	result := r.DB.Model(&models.Teacher{}).Where("id = ?", id).Updates(map[string]interface{}{
		"photo_path": photoPath,
		"updated_at": time.Now().Unix(),
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update photo path for teacher %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
