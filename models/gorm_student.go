package models

// Student represents a student eligible for enrollment and recognition.
// It corresponds to the 'students' table.
type Student struct {
	ID        uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	FullName  string  `gorm:"not null" json:"full_name"`
	ClassName string  `json:"class_name"`
	Email     string  `json:"email"`
	Phone     string  `json:"phone"`
	PhotoPath *string `json:"photo_path,omitempty"` // set once enrollment finalizes
	CreatedAt int64   `gorm:"not null" json:"created_at"` // Unix timestamp, stored as INTEGER in SQLite
	UpdatedAt int64   `gorm:"not null" json:"updated_at"`
}

// TableName explicitly sets the table name for GORM.
func (Student) TableName() string {
	return "students"
}
