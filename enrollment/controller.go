// Package enrollment captures face sample images for a person and stores
// them in the dataset directory used by training.
package enrollment

import (
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/yacine-dev/attendclass/config"
	"github.com/yacine-dev/attendclass/models"
	"github.com/yacine-dev/attendclass/repository"
	"github.com/yacine-dev/attendclass/vision"
)

// ErrSessionActive is returned when Begin is called while another
// enrollment session is still capturing.
var ErrSessionActive = errors.New("an enrollment session is already running")

// ErrCancelled is delivered on Done when the session was cancelled before
// reaching its sample target.
var ErrCancelled = errors.New("enrollment session cancelled")

// sanitizeName makes a person's name safe for use in a directory name.
func sanitizeName(name string) string {
	replacer := strings.NewReplacer(
		"/", "", "\\", "", ":", "", "*", "", "?", "",
		"\"", "", "<", "", ">", "", "|", "", ".", "",
	)
	cleaned := replacer.Replace(strings.TrimSpace(name))
	return strings.ReplaceAll(cleaned, " ", "_")
}

// Session tracks one enrollment capture run.
type Session struct {
	ID        string
	PersonID  uint
	Kind      models.PersonKind
	TargetDir string
	Target    int

	mu       sync.Mutex
	captured int
	done     chan error
	cancel   chan struct{}
	finished bool
}

// Progress returns captured and target sample counts.
func (s *Session) Progress() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captured, s.Target
}

// Done is closed with the session outcome: nil on completion, ErrCancelled
// on cancel, or the failure that aborted capture.
func (s *Session) Done() <-chan error {
	return s.done
}

// Cancel stops the session before it completes. Idempotent.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	select {
	case <-s.cancel:
	default:
		close(s.cancel)
	}
}

func (s *Session) finish(err error) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	s.finished = true
	s.mu.Unlock()
	s.done <- err
	close(s.done)
}

// Controller runs enrollment sessions against the shared camera and
// detector. At most one session captures at a time.
type Controller struct {
	Config  *config.Config
	Frames  vision.FrameProvider
	Locator vision.Locator
	Persons repository.PersonStoreInterface

	mu      sync.Mutex
	current *Session
}

func NewController(cfg *config.Config, frames vision.FrameProvider, locator vision.Locator, persons repository.PersonStoreInterface) *Controller {
	return &Controller{
		Config:  cfg,
		Frames:  frames,
		Locator: locator,
		Persons: persons,
	}
}

// Current returns the active session, or nil.
func (c *Controller) Current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Begin validates the person, prepares their dataset directory and starts
// capturing samples in the background. The returned session reports
// progress and completion.
func (c *Controller) Begin(personID uint, kind models.PersonKind) (*Session, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("invalid person kind %q", kind)
	}

	person, err := c.Persons.GetPerson(personID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s %d: %w", kind, personID, err)
	}
	cleanName := sanitizeName(person.Name)
	if cleanName == "" {
		return nil, fmt.Errorf("%s %d has no usable display name", kind, personID)
	}

	c.mu.Lock()
	if c.current != nil && !c.current.isFinished() {
		c.mu.Unlock()
		return nil, ErrSessionActive
	}

	dirName := fmt.Sprintf("%d_%s", person.ID, cleanName)
	targetDir := filepath.Join(c.Config.DatasetPath, kind.FolderName(), dirName)
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("failed to create sample directory %s: %w", targetDir, err)
	}

	session := &Session{
		ID:        uuid.New().String(),
		PersonID:  person.ID,
		Kind:      kind,
		TargetDir: targetDir,
		Target:    c.Config.EnrollmentTargetImages,
		done:      make(chan error, 1),
		cancel:    make(chan struct{}),
	}
	c.current = session
	c.mu.Unlock()

	if err := c.Frames.Start(); err != nil {
		session.finish(fmt.Errorf("failed to start camera: %w", err))
		return nil, fmt.Errorf("failed to start camera: %w", err)
	}

	log.Printf("enrollment: session %s started for %s %d (%s), target %d samples",
		session.ID, kind, person.ID, person.Name, session.Target)
	go c.capture(session)
	return session, nil
}

func (s *Session) isFinished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

func (c *Controller) capture(session *Session) {
	defer c.Frames.Stop()

	ticker := time.NewTicker(33 * time.Millisecond)
	defer ticker.Stop()

	firstSample := ""
	for {
		select {
		case <-session.cancel:
			log.Printf("enrollment: session %s cancelled after %d samples", session.ID, session.captured)
			session.finish(ErrCancelled)
			return
		case <-ticker.C:
		}

		frame, ok := c.Frames.Latest()
		if !ok {
			if !c.Frames.Running() {
				log.Printf("enrollment: session %s aborted, camera feed lost after %d samples", session.ID, session.captured)
				session.finish(fmt.Errorf("camera feed lost during enrollment"))
				return
			}
			continue
		}

		path, saved := c.saveSample(session, frame)
		frame.Close()
		if !saved {
			continue
		}
		if firstSample == "" {
			firstSample = path
		}

		session.mu.Lock()
		session.captured++
		captured := session.captured
		session.mu.Unlock()

		if captured >= session.Target {
			if err := c.Persons.SetPhotoReference(session.PersonID, session.Kind, firstSample); err != nil {
				log.Printf("enrollment: failed to store photo reference for %s %d: %v", session.Kind, session.PersonID, err)
			}
			log.Printf("enrollment: session %s complete, %d samples saved to %s", session.ID, captured, session.TargetDir)
			session.finish(nil)
			return
		}
	}
}

// saveSample detects the largest face in the frame and writes a square
// crop to the session directory. Frames with no usable face are skipped.
func (c *Controller) saveSample(session *Session, frame gocv.Mat) (string, bool) {
	boxes := vision.FilterMinSize(c.Locator.Locate(frame), c.Config.MinFaceSize)
	if len(boxes) == 0 {
		return "", false
	}

	// largest detection wins when several faces are visible
	best := boxes[0]
	for _, b := range boxes[1:] {
		if b.W*b.H > best.W*best.H {
			best = b
		}
	}

	rect := image.Rect(best.X, best.Y, best.X+best.W, best.Y+best.H).Intersect(image.Rect(0, 0, frame.Cols(), frame.Rows()))
	if rect.Empty() {
		return "", false
	}

	img, err := frame.ToImage()
	if err != nil {
		log.Printf("enrollment: failed to convert frame: %v", err)
		return "", false
	}

	size := c.Config.SampleImageSize
	crop := imaging.Crop(img, rect)
	crop = imaging.Resize(crop, size, size, imaging.Lanczos)

	// samples are numbered 0..target-1 in capture order
	session.mu.Lock()
	index := session.captured
	session.mu.Unlock()

	path := filepath.Join(session.TargetDir, fmt.Sprintf("%d.jpg", index))
	if err := imaging.Save(crop, path, imaging.JPEGQuality(90)); err != nil {
		log.Printf("enrollment: failed to save sample %s: %v", path, err)
		return "", false
	}
	return path, true
}
