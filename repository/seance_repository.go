package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yacine-dev/attendclass/models"
)

// SeanceRepository handles database operations for Seance entities. The
// attendance core only reads seances; scheduling belongs elsewhere.
type SeanceRepository struct {
	DB *gorm.DB
}

// NewSeanceRepository creates a new instance of SeanceRepository
func NewSeanceRepository(db *gorm.DB) *SeanceRepository {
	return &SeanceRepository{DB: db}
}

// GetByID retrieves a seance by its ID
func (r *SeanceRepository) GetByID(id uint) (*models.Seance, error) {
	var seance models.Seance
	err := r.DB.First(&seance, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get seance by ID %d: %w", id, err)
	}
	return &seance, nil
}

// ListAll retrieves all seances ordered by date then start time
func (r *SeanceRepository) ListAll() ([]models.Seance, error) {
	var seances []models.Seance
	err := r.DB.Order("date ASC, start_time ASC").Find(&seances).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list seances: %w", err)
	}
	return seances, nil
}
