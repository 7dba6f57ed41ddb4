package models

// Attendance statuses. The recognizer only ever writes "present";
// "absent" is set by an operator through the HTTP surface.
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
)

// AttendanceRecord is one (seance, person) attendance mark. The unique
// index makes repeated recognition of the same person an update rather
// than a new row.
type AttendanceRecord struct {
	ID         uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	SeanceID   uint       `gorm:"not null;uniqueIndex:idx_attendance_seance_person" json:"seance_id"`
	PersonID   uint       `gorm:"not null;uniqueIndex:idx_attendance_seance_person" json:"person_id"`
	PersonKind PersonKind `gorm:"not null;uniqueIndex:idx_attendance_seance_person" json:"person_kind"`
	Status     string     `gorm:"not null" json:"status"`
	MarkedAt   int64      `gorm:"not null" json:"marked_at"` // Unix timestamp of the last upsert
}

// TableName explicitly sets the table name for GORM.
func (AttendanceRecord) TableName() string {
	return "attendance_records"
}
