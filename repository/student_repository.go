package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yacine-dev/attendclass/models"
)

// StudentRepository handles database operations for Student entities
type StudentRepository struct {
	DB *gorm.DB
}

// NewStudentRepository creates a new instance of StudentRepository
func NewStudentRepository(db *gorm.DB) *StudentRepository {
	return &StudentRepository{DB: db}
}

// GetByID retrieves a student by their ID
func (r *StudentRepository) GetByID(id uint) (*models.Student, error) {
	var student models.Student
	err := r.DB.First(&student, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get student by ID %d: %w", id, err)
	}
	return &student, nil
}

// ListAll retrieves all students, ordered by full_name
func (r *StudentRepository) ListAll() ([]models.Student, error) {
	var students []models.Student
	err := r.DB.Order("full_name ASC").Find(&students).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return students, nil
}

// UpdatePhotoPath sets the representative photo for a student after a
// completed enrollment run.
func (r *StudentRepository) UpdatePhotoPath(id uint, photoPath string) error {
	result := r.DB.Model(&models.Student{}).Where("id = ?", id).Updates(map[string]interface{}{
		"photo_path": photoPath,
		"updated_at": time.Now().Unix(),
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update photo path for student %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
