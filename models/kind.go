package models

// PersonKind distinguishes the two identity populations eligible for
// face-based attendance.
type PersonKind string

const (
	KindStudent PersonKind = "student"
	KindTeacher PersonKind = "teacher"
)

// Valid reports whether k is one of the known kinds.
func (k PersonKind) Valid() bool {
	return k == KindStudent || k == KindTeacher
}

// FolderName returns the dataset subdirectory for this kind.
func (k PersonKind) FolderName() string {
	if k == KindTeacher {
		return "teachers"
	}
	return "students"
}
