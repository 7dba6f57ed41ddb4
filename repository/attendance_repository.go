package repository

import (
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"

	"github.com/yacine-dev/attendclass/models"
)

// AttendanceRepository handles attendance marks. The upsert runs as raw
// SQL over the underlying connection so the conflict target is explicit;
// the list queries go through GORM like the other repositories.
type AttendanceRepository struct {
	DB *gorm.DB
}

// NewAttendanceRepository creates a new instance of AttendanceRepository
func NewAttendanceRepository(db *gorm.DB) *AttendanceRepository {
	return &AttendanceRepository{DB: db}
}

// Upsert inserts an attendance record or, when one already exists for the
// (seance, person, kind) triple, updates its status and timestamp. Calling
// it any number of times leaves exactly one row for the triple.
func (r *AttendanceRepository) Upsert(seanceID, personID uint, kind models.PersonKind, status string) error {
	if !kind.Valid() {
		return fmt.Errorf("invalid person kind %q", kind)
	}

	sqlDB, err := r.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	queryBuilder := sq.Insert("attendance_records").
		Columns("seance_id", "person_id", "person_kind", "status", "marked_at").
		Values(seanceID, personID, string(kind), status, time.Now().Unix()).
		Suffix("ON CONFLICT(seance_id, person_id, person_kind) DO UPDATE SET status = excluded.status, marked_at = excluded.marked_at")

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL for attendance upsert: %w", err)
	}

	if _, err := sqlDB.Exec(sqlStr, args...); err != nil {
		return fmt.Errorf("failed to upsert attendance (seance %d, %s %d): %w", seanceID, kind, personID, err)
	}
	return nil
}

// ListBySeance returns all attendance records for one seance
func (r *AttendanceRepository) ListBySeance(seanceID uint) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	err := r.DB.Where("seance_id = ?", seanceID).Order("marked_at ASC").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance for seance %d: %w", seanceID, err)
	}
	return records, nil
}

// CountBySeance returns aggregate present/absent counts for one seance
func (r *AttendanceRepository) CountBySeance(seanceID uint) (AttendanceSummary, error) {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return AttendanceSummary{}, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	queryBuilder := sq.Select("status", "COUNT(*)").
		From("attendance_records").
		Where(sq.Eq{"seance_id": seanceID}).
		GroupBy("status")

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return AttendanceSummary{}, fmt.Errorf("failed to build SQL for attendance summary: %w", err)
	}

	rows, err := sqlDB.Query(sqlStr, args...)
	if err != nil {
		return AttendanceSummary{}, fmt.Errorf("failed to query attendance summary for seance %d: %w", seanceID, err)
	}
	defer rows.Close()

	var summary AttendanceSummary
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return AttendanceSummary{}, fmt.Errorf("failed to scan attendance summary row: %w", err)
		}
		switch status {
		case models.StatusPresent:
			summary.Present = count
		case models.StatusAbsent:
			summary.Absent = count
		}
		summary.Total += count
	}
	if err := rows.Err(); err != nil {
		return AttendanceSummary{}, fmt.Errorf("failed reading attendance summary rows: %w", err)
	}
	return summary, nil
}
