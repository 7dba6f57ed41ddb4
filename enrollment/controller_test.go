package enrollment

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/yacine-dev/attendclass/config"
	"github.com/yacine-dev/attendclass/models"
	"github.com/yacine-dev/attendclass/repository"
	"github.com/yacine-dev/attendclass/vision"
)

type stubFrames struct {
	mu    sync.Mutex
	frame gocv.Mat
	dead  bool
}

func (s *stubFrames) Start() error { return nil }

func (s *stubFrames) Latest() (gocv.Mat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead || s.frame.Empty() {
		return gocv.Mat{}, false
	}
	return s.frame.Clone(), true
}

func (s *stubFrames) Frames() <-chan gocv.Mat { return nil }

func (s *stubFrames) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.dead
}

func (s *stubFrames) Stop() {}

// kill simulates the capture device dying mid-session.
func (s *stubFrames) kill() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dead = true
}

type stubLocator struct {
	boxes []vision.DetectionResult
}

func (s *stubLocator) Locate(img gocv.Mat) []vision.DetectionResult { return s.boxes }

type stubPersons struct {
	persons map[string]*repository.PersonInfo
	photos  map[string]string
}

func stubKey(id uint, kind models.PersonKind) string { return fmt.Sprintf("%s/%d", kind, id) }

func (s *stubPersons) GetPerson(id uint, kind models.PersonKind) (*repository.PersonInfo, error) {
	if p, ok := s.persons[stubKey(id, kind)]; ok {
		return p, nil
	}
	return nil, repository.ErrPersonNotFound
}

func (s *stubPersons) SetPhotoReference(id uint, kind models.PersonKind, path string) error {
	if s.photos == nil {
		s.photos = make(map[string]string)
	}
	s.photos[stubKey(id, kind)] = path
	return nil
}

func testController(t *testing.T, locator vision.Locator) (*Controller, *stubFrames, *stubPersons, *config.Config) {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		DatasetPath:            root,
		StudentsPath:           filepath.Join(root, "students"),
		TeachersPath:           filepath.Join(root, "teachers"),
		EnrollmentTargetImages: 3,
		SampleImageSize:        64,
		MinFaceSize:            50,
	}

	persons := &stubPersons{persons: map[string]*repository.PersonInfo{
		stubKey(7, models.KindStudent): {ID: 7, Kind: models.KindStudent, Name: "Amina Benali"},
	}}

	frame := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })
	frames := &stubFrames{frame: frame}

	return NewController(cfg, frames, locator, persons), frames, persons, cfg
}

func TestEnrollmentCapturesTargetSamples(t *testing.T) {
	locator := &stubLocator{boxes: []vision.DetectionResult{{X: 40, Y: 40, W: 120, H: 120}}}
	controller, _, persons, cfg := testController(t, locator)

	session, err := controller.Begin(7, models.KindStudent)
	require.NoError(t, err)

	select {
	case err := <-session.Done():
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("enrollment did not complete")
	}

	captured, target := session.Progress()
	assert.Equal(t, target, captured)

	dir := filepath.Join(cfg.StudentsPath, "7_Amina_Benali")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, cfg.EnrollmentTargetImages)

	// samples are numbered from zero and the photo reference points at
	// the first saved crop
	for i := 0; i < cfg.EnrollmentTargetImages; i++ {
		_, err := os.Stat(filepath.Join(dir, fmt.Sprintf("%d.jpg", i)))
		assert.NoError(t, err)
	}
	assert.Equal(t, filepath.Join(dir, "0.jpg"), persons.photos[stubKey(7, models.KindStudent)])
}

func TestEnrollmentAbortsWhenFeedDies(t *testing.T) {
	locator := &stubLocator{boxes: []vision.DetectionResult{{X: 40, Y: 40, W: 120, H: 120}}}
	controller, frames, persons, _ := testController(t, locator)
	controller.Config.EnrollmentTargetImages = 1000 // keep the session running

	session, err := controller.Begin(7, models.KindStudent)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	frames.kill()

	select {
	case err := <-session.Done():
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCancelled)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not abort after the feed died")
	}

	// an aborted session must not finalize a photo reference
	_, ok := persons.photos[stubKey(7, models.KindStudent)]
	assert.False(t, ok)
}

func TestEnrollmentSkipsFacelessFrames(t *testing.T) {
	locator := &stubLocator{} // never finds a face
	controller, _, _, _ := testController(t, locator)

	session, err := controller.Begin(7, models.KindStudent)
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)
	captured, _ := session.Progress()
	assert.Equal(t, 0, captured)

	session.Cancel()
	select {
	case err := <-session.Done():
		assert.ErrorIs(t, err, ErrCancelled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancel was not delivered")
	}
}

func TestEnrollmentRejectsUnusableName(t *testing.T) {
	controller, _, persons, _ := testController(t, &stubLocator{})
	persons.persons[stubKey(8, models.KindStudent)] = &repository.PersonInfo{
		ID: 8, Kind: models.KindStudent, Name: " /:* ",
	}

	_, err := controller.Begin(8, models.KindStudent)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "display name")
}

func TestEnrollmentRejectsUnknownPerson(t *testing.T) {
	controller, _, _, _ := testController(t, &stubLocator{})
	_, err := controller.Begin(99, models.KindStudent)
	assert.ErrorIs(t, err, repository.ErrPersonNotFound)
}

func TestEnrollmentRejectsConcurrentSessions(t *testing.T) {
	locator := &stubLocator{} // keep the first session running
	controller, _, _, _ := testController(t, locator)

	session, err := controller.Begin(7, models.KindStudent)
	require.NoError(t, err)
	defer session.Cancel()

	_, err = controller.Begin(7, models.KindStudent)
	assert.ErrorIs(t, err, ErrSessionActive)
}

func TestEnrollmentRejectsInvalidKind(t *testing.T) {
	controller, _, _, _ := testController(t, &stubLocator{})
	_, err := controller.Begin(7, models.PersonKind("janitor"))
	assert.Error(t, err)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "Amina_Benali", sanitizeName("Amina Benali"))
	assert.Equal(t, "ab", sanitizeName(" a/b:*? "))
	assert.Equal(t, "Jean-Pierre", sanitizeName("Jean-Pierre"))
}
