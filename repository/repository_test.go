package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yacine-dev/attendclass/database"
	"github.com/yacine-dev/attendclass/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrateModels(db))
	return db
}

func seedPeople(t *testing.T, db *gorm.DB) (*models.Student, *models.Teacher) {
	t.Helper()
	student := &models.Student{FullName: "Amina Benali", ClassName: "CS-2A"}
	require.NoError(t, db.Create(student).Error)
	teacher := &models.Teacher{FullName: "Karim Haddad", Email: "k.haddad@example.edu"}
	require.NoError(t, db.Create(teacher).Error)
	return student, teacher
}

func TestStudentRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStudentRepository(db)
	student, _ := seedPeople(t, db)

	got, err := repo.GetByID(student.ID)
	require.NoError(t, err)
	assert.Equal(t, "Amina Benali", got.FullName)

	_, err = repo.GetByID(9999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	all, err := repo.ListAll()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.UpdatePhotoPath(student.ID, "/dataset/students/1_Amina/1.jpg"))
	got, err = repo.GetByID(student.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PhotoPath)
	assert.Equal(t, "/dataset/students/1_Amina/1.jpg", *got.PhotoPath)

	assert.ErrorIs(t, repo.UpdatePhotoPath(9999, "x.jpg"), gorm.ErrRecordNotFound)
}

func TestPersonStoreDispatch(t *testing.T) {
	db := setupTestDB(t)
	store := NewPersonStore(NewStudentRepository(db), NewTeacherRepository(db))
	student, teacher := seedPeople(t, db)

	info, err := store.GetPerson(student.ID, models.KindStudent)
	require.NoError(t, err)
	assert.Equal(t, models.KindStudent, info.Kind)
	assert.Equal(t, "Amina Benali", info.Name)

	info, err = store.GetPerson(teacher.ID, models.KindTeacher)
	require.NoError(t, err)
	assert.Equal(t, models.KindTeacher, info.Kind)

	_, err = store.GetPerson(9999, models.KindStudent)
	assert.ErrorIs(t, err, ErrPersonNotFound)

	_, err = store.GetPerson(student.ID, models.PersonKind("janitor"))
	assert.Error(t, err)

	require.NoError(t, store.SetPhotoReference(teacher.ID, models.KindTeacher, "/dataset/teachers/1_Karim/1.jpg"))
	info, err = store.GetPerson(teacher.ID, models.KindTeacher)
	require.NoError(t, err)
	require.NotNil(t, info.PhotoPath)
}

func TestSeanceRepositoryOrdering(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSeanceRepository(db)
	_, teacher := seedPeople(t, db)

	seances := []models.Seance{
		{Name: "Late", TeacherID: teacher.ID, Date: "2026-03-11", StartTime: "09:00:00", EndTime: "10:00:00"},
		{Name: "Early", TeacherID: teacher.ID, Date: "2026-03-10", StartTime: "14:00:00", EndTime: "15:30:00"},
		{Name: "Morning", TeacherID: teacher.ID, Date: "2026-03-10", StartTime: "08:00:00", EndTime: "09:30:00"},
	}
	for i := range seances {
		require.NoError(t, db.Create(&seances[i]).Error)
	}

	all, err := repo.ListAll()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Morning", all[0].Name)
	assert.Equal(t, "Early", all[1].Name)
	assert.Equal(t, "Late", all[2].Name)

	got, err := repo.GetByID(seances[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Late", got.Name)
}

func TestAttendanceUpsertIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAttendanceRepository(db)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Upsert(1, 7, models.KindStudent, models.StatusPresent))
	}

	records, err := repo.ListBySeance(1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.StatusPresent, records[0].Status)
	assert.Equal(t, uint(7), records[0].PersonID)
}

func TestAttendanceUpsertUpdatesStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAttendanceRepository(db)

	require.NoError(t, repo.Upsert(1, 7, models.KindStudent, models.StatusAbsent))
	require.NoError(t, repo.Upsert(1, 7, models.KindStudent, models.StatusPresent))

	records, err := repo.ListBySeance(1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.StatusPresent, records[0].Status)
}

func TestAttendanceKindsDoNotCollide(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAttendanceRepository(db)

	// a student and a teacher sharing the numeric id are distinct rows
	require.NoError(t, repo.Upsert(1, 7, models.KindStudent, models.StatusPresent))
	require.NoError(t, repo.Upsert(1, 7, models.KindTeacher, models.StatusPresent))

	records, err := repo.ListBySeance(1)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestAttendanceSummary(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAttendanceRepository(db)

	require.NoError(t, repo.Upsert(1, 7, models.KindStudent, models.StatusPresent))
	require.NoError(t, repo.Upsert(1, 8, models.KindStudent, models.StatusPresent))
	require.NoError(t, repo.Upsert(1, 9, models.KindStudent, models.StatusAbsent))
	require.NoError(t, repo.Upsert(2, 7, models.KindStudent, models.StatusPresent))

	summary, err := repo.CountBySeance(1)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Present)
	assert.Equal(t, 1, summary.Absent)
	assert.Equal(t, 3, summary.Total)

	require.NoError(t, repo.Upsert(1, 9, models.KindStudent, models.StatusPresent))
	summary, err = repo.CountBySeance(1)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Present)
	assert.Equal(t, 0, summary.Absent)
}

func TestAttendanceUpsertRejectsBadKind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAttendanceRepository(db)
	assert.Error(t, repo.Upsert(1, 7, models.PersonKind("janitor"), models.StatusPresent))
}
