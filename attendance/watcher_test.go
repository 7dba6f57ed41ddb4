package attendance

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yacine-dev/attendclass/models"
)

type memSeanceRepo struct {
	seances map[uint]*models.Seance
}

func (m *memSeanceRepo) GetByID(id uint) (*models.Seance, error) {
	if s, ok := m.seances[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memSeanceRepo) ListAll() ([]models.Seance, error) { return nil, nil }

type fakeRunner struct {
	mu      sync.Mutex
	running bool
	starts  []uint
	stops   int
}

func (f *fakeRunner) Start(seanceID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = true
	f.starts = append(f.starts, seanceID)
	return nil
}

func (f *fakeRunner) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
	f.stops++
}

func (f *fakeRunner) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func activeSeance() *models.Seance {
	now := time.Now()
	return &models.Seance{
		ID:        1,
		Name:      "Databases",
		Date:      now.Format("2006-01-02"),
		StartTime: now.Add(-time.Hour).Format("15:04:05"),
		EndTime:   now.Add(time.Hour).Format("15:04:05"),
	}
}

func pastSeance() *models.Seance {
	now := time.Now()
	return &models.Seance{
		ID:        2,
		Name:      "Networks",
		Date:      now.AddDate(0, 0, -1).Format("2006-01-02"),
		StartTime: "09:00:00",
		EndTime:   "10:00:00",
	}
}

func newTestWatcher(seances map[uint]*models.Seance, runner *fakeRunner) *Watcher {
	recorder := NewRecorder(&memPersonStore{}, &memAttendanceRepo{})
	return NewWatcher(&memSeanceRepo{seances: seances}, runner, recorder, time.Hour)
}

func TestSelectActiveSeanceStartsRecognition(t *testing.T) {
	runner := &fakeRunner{}
	w := newTestWatcher(map[uint]*models.Seance{1: activeSeance()}, runner)

	require.NoError(t, w.Select(1))
	assert.Equal(t, []uint{1}, runner.starts)

	status, err := w.Status()
	require.NoError(t, err)
	assert.Equal(t, PhaseDuring, status.Phase)
	assert.True(t, status.Running)
}

func TestSelectPastSeanceDoesNotStart(t *testing.T) {
	runner := &fakeRunner{}
	w := newTestWatcher(map[uint]*models.Seance{2: pastSeance()}, runner)

	require.NoError(t, w.Select(2))
	assert.Empty(t, runner.starts)

	status, err := w.Status()
	require.NoError(t, err)
	assert.Equal(t, PhaseAfter, status.Phase)
	assert.False(t, status.Running)
}

func TestSelectUnknownSeance(t *testing.T) {
	w := newTestWatcher(map[uint]*models.Seance{}, &fakeRunner{})
	assert.Error(t, w.Select(99))
}

func TestReselectStopsPreviousSession(t *testing.T) {
	runner := &fakeRunner{}
	w := newTestWatcher(map[uint]*models.Seance{1: activeSeance(), 2: pastSeance()}, runner)

	require.NoError(t, w.Select(1))
	require.True(t, runner.Running())

	require.NoError(t, w.Select(2))
	assert.Equal(t, 1, runner.stops)
	assert.False(t, runner.Running())
}

func TestStatusWithoutSelection(t *testing.T) {
	w := newTestWatcher(map[uint]*models.Seance{}, &fakeRunner{})
	_, err := w.Status()
	assert.ErrorIs(t, err, ErrNoSeanceSelected)
}

func TestWatcherStopHaltsRecognition(t *testing.T) {
	runner := &fakeRunner{}
	w := newTestWatcher(map[uint]*models.Seance{1: activeSeance()}, runner)
	w.Start()
	require.NoError(t, w.Select(1))
	require.True(t, runner.Running())

	w.Stop()
	assert.False(t, runner.Running())
}
