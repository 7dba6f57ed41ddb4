package models

// Teacher represents a teacher eligible for enrollment and recognition.
// It corresponds to the 'teachers' table.
type Teacher struct {
	ID        uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	FullName  string  `gorm:"not null" json:"full_name"`
	Email     string  `json:"email"`
	Phone     string  `json:"phone"`
	PhotoPath *string `json:"photo_path,omitempty"` // set once enrollment finalizes
	CreatedAt int64   `gorm:"not null" json:"created_at"`
	UpdatedAt int64   `gorm:"not null" json:"updated_at"`

	// Relationships
	Seances []Seance `gorm:"foreignKey:TeacherID" json:"seances,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (Teacher) TableName() string {
	return "teachers"
}
