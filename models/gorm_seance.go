package models

// Seance represents one scheduled teaching session. The recognition
// pipeline only reads seances; creation and overlap checking belong to the
// external scheduler.
//
// Date is stored as "2006-01-02", StartTime and EndTime as "15:04:05";
// lexical comparison of the zero-padded time strings matches chronological
// order, which the gate relies on.
type Seance struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string `gorm:"not null" json:"name"`
	Subject   string `json:"subject"`
	TeacherID uint   `gorm:"index" json:"teacher_id"`
	Date      string `gorm:"not null" json:"date"`
	StartTime string `gorm:"not null" json:"start_time"`
	EndTime   string `gorm:"not null" json:"end_time"`
	Location  string `json:"location"`
	CreatedAt int64  `gorm:"not null" json:"created_at"`
	UpdatedAt int64  `gorm:"not null" json:"updated_at"`
}

// TableName explicitly sets the table name for GORM.
func (Seance) TableName() string {
	return "seances"
}
