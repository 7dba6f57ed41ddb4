// Package recognition runs the live face recognition pipeline: frames are
// captured, faces located and embedded, embeddings classified, and known
// faces reported for attendance.
package recognition

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/yacine-dev/attendclass/config"
	"github.com/yacine-dev/attendclass/models"
	"github.com/yacine-dev/attendclass/repository"
	"github.com/yacine-dev/attendclass/training"
	"github.com/yacine-dev/attendclass/vision"
)

// State describes the engine lifecycle.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateRunning State = "running"
	StateError   State = "error"
)

// ErrNotLoaded is returned by Start before a successful Load.
var ErrNotLoaded = errors.New("recognition model is not loaded")

// ErrAlreadyRunning is returned by Start while a session is active.
var ErrAlreadyRunning = errors.New("recognition is already running")

// ErrReloadRequired is returned by Start after a failed Load; the error
// state only clears on a successful Load.
var ErrReloadRequired = errors.New("recognition model is in an error state, reload required")

// Reporter receives identified faces during a running session. Record
// returns true when the sighting was newly recorded.
type Reporter interface {
	Record(seanceID, personID uint, kind models.PersonKind) bool
}

// Match is one classified face in a frame.
type Match struct {
	Box        vision.DetectionResult
	Name       string
	PersonID   uint
	Kind       models.PersonKind
	Confidence float64
	Known      bool
}

// Stats summarizes a running or finished session.
type Stats struct {
	SeanceID       uint      `json:"seance_id"`
	FramesHandled  int64     `json:"frames_handled"`
	Recognitions   int64     `json:"recognitions"`
	UniquePersons  int       `json:"unique_persons"`
	StartedAt      time.Time `json:"started_at"`
	LastSeenPerson string    `json:"last_seen_person,omitempty"`
}

type classifiedFrame struct {
	frame   gocv.Mat
	matches []Match
}

// Engine owns the camera, detector, embedder and classifier and drives
// the recognition pipeline for one seance at a time.
type Engine struct {
	Config   *config.Config
	Frames   vision.FrameProvider
	Locator  vision.Locator
	Encoder  vision.Encoder
	Persons  repository.PersonStoreInterface
	Reporter Reporter

	mu         sync.Mutex
	state      State
	classifier *training.SoftmaxClassifier
	labels     training.LabelMap
	stats      Stats
	seen       map[string]bool
	snapshot   []byte

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewEngine(cfg *config.Config, frames vision.FrameProvider, locator vision.Locator, encoder vision.Encoder, persons repository.PersonStoreInterface, reporter Reporter) *Engine {
	return &Engine{
		Config:   cfg,
		Frames:   frames,
		Locator:  locator,
		Encoder:  encoder,
		Persons:  persons,
		Reporter: reporter,
		state:    StateIdle,
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Running reports whether a session is active.
func (e *Engine) Running() bool {
	return e.State() == StateRunning
}

// Stats returns a copy of the session counters.
func (e *Engine) SessionStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stats
	s.UniquePersons = len(e.seen)
	return s
}

// Snapshot returns the latest annotated frame as JPEG bytes, or nil when
// no frame has been rendered yet.
func (e *Engine) Snapshot() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.snapshot == nil {
		return nil
	}
	out := make([]byte, len(e.snapshot))
	copy(out, e.snapshot)
	return out
}

// Load reads the classifier and label map from disk and validates every
// label entry against the person store. Entries whose person no longer
// exists are dropped with a warning; their faces will report as Unknown.
func (e *Engine) Load() error {
	e.mu.Lock()
	if e.state == StateRunning {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	e.state = StateLoading
	e.mu.Unlock()

	fail := func(err error) error {
		e.mu.Lock()
		e.state = StateError
		e.mu.Unlock()
		return err
	}

	classifier, err := training.LoadClassifier(e.Config.ClassifierPath)
	if err != nil {
		return fail(fmt.Errorf("failed to load classifier: %w", err))
	}
	labels, err := training.LoadLabelMap(e.Config.LabelMapPath)
	if err != nil {
		return fail(fmt.Errorf("failed to load label map: %w", err))
	}

	for label, entry := range labels {
		if _, err := e.Persons.GetPerson(entry.PersonID, entry.Kind); err != nil {
			if errors.Is(err, repository.ErrPersonNotFound) {
				log.Printf("recognition: dropping stale label %d (%s %d %q, no longer in database)",
					label, entry.Kind, entry.PersonID, entry.Name)
				delete(labels, label)
				continue
			}
			return fail(fmt.Errorf("failed to validate label %d: %w", label, err))
		}
	}
	if len(labels) == 0 {
		return fail(fmt.Errorf("label map has no valid entries, retrain the classifier"))
	}

	e.mu.Lock()
	e.classifier = classifier
	e.labels = labels
	e.state = StateIdle
	e.mu.Unlock()
	log.Printf("recognition: model loaded, %d classes, %d valid labels", len(classifier.Classes()), len(labels))
	return nil
}

// Start launches the pipeline for the given seance. The model must have
// been loaded first.
func (e *Engine) Start(seanceID uint) error {
	e.mu.Lock()
	if e.state == StateRunning {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	if e.state == StateError {
		e.mu.Unlock()
		return ErrReloadRequired
	}
	if e.classifier == nil {
		e.mu.Unlock()
		return ErrNotLoaded
	}
	e.stats = Stats{SeanceID: seanceID, StartedAt: time.Now()}
	e.seen = make(map[string]bool)
	e.snapshot = nil
	e.stopCh = make(chan struct{})
	e.state = StateRunning
	e.mu.Unlock()

	if err := e.Frames.Start(); err != nil {
		e.mu.Lock()
		e.state = StateError
		e.mu.Unlock()
		return fmt.Errorf("failed to start camera: %w", err)
	}

	detectQueue := newLatestChan[gocv.Mat](e.Config.StageQueueSize, func(m gocv.Mat) { m.Close() })
	renderQueue := newLatestChan[classifiedFrame](e.Config.StageQueueSize, func(f classifiedFrame) { f.frame.Close() })

	e.wg.Add(3)
	go e.captureStage(detectQueue)
	go e.classifyStage(detectQueue, renderQueue)
	go e.renderStage(seanceID, renderQueue)

	log.Printf("recognition: pipeline started for seance %d", seanceID)
	return nil
}

// Stop halts the pipeline and releases the camera. Safe to call twice.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.state != StateRunning {
		e.mu.Unlock()
		return
	}
	close(e.stopCh)
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		log.Println("recognition: pipeline stages did not exit in time")
	}

	e.Frames.Stop()

	e.mu.Lock()
	e.state = StateIdle
	recognitions := e.stats.Recognitions
	unique := len(e.seen)
	e.mu.Unlock()
	log.Printf("recognition: pipeline stopped, %d recognitions, %d unique persons", recognitions, unique)
}

func (e *Engine) captureStage(out *latestChan[gocv.Mat]) {
	defer e.wg.Done()
	defer out.drain()

	for {
		select {
		case <-e.stopCh:
			return
		case frame, ok := <-e.Frames.Frames():
			if !ok {
				return
			}
			out.send(frame)
		}
	}
}

func (e *Engine) classifyStage(in *latestChan[gocv.Mat], out *latestChan[classifiedFrame]) {
	defer e.wg.Done()
	defer out.drain()

	for {
		select {
		case <-e.stopCh:
			return
		default:
		}

		frame, ok := in.recv(500 * time.Millisecond)
		if !ok {
			continue
		}

		matches := e.classifyFrame(frame)
		out.send(classifiedFrame{frame: frame, matches: matches})
	}
}

// classifyFrame locates, embeds and classifies every face in the frame.
func (e *Engine) classifyFrame(frame gocv.Mat) []Match {
	boxes := vision.FilterMinSize(e.Locator.Locate(frame), e.Config.MinFaceSize)
	if len(boxes) == 0 {
		return nil
	}

	embeddings, err := e.Encoder.Encode(frame, boxes)
	if err != nil {
		log.Printf("recognition: failed to encode faces: %v", err)
		return nil
	}

	matches := make([]Match, 0, len(boxes))
	for i, box := range boxes {
		match := Match{Box: box, Name: "Unknown"}
		if i < len(embeddings) && embeddings[i] != nil {
			label, prob, err := e.classifier.Predict(embeddings[i])
			if err != nil {
				log.Printf("recognition: classify error: %v", err)
			} else if entry, known := e.labels[label]; known && prob >= e.Config.RecognitionThreshold {
				match.Name = entry.Name
				match.PersonID = entry.PersonID
				match.Kind = entry.Kind
				match.Confidence = prob
				match.Known = true
			}
		}
		matches = append(matches, match)
	}
	return matches
}

func (e *Engine) renderStage(seanceID uint, in *latestChan[classifiedFrame]) {
	defer e.wg.Done()
	defer in.drain()

	for {
		select {
		case <-e.stopCh:
			return
		default:
		}

		item, ok := in.recv(500 * time.Millisecond)
		if !ok {
			continue
		}

		e.annotate(item.frame, item.matches)
		e.publishSnapshot(item.frame)
		item.frame.Close()

		e.mu.Lock()
		e.stats.FramesHandled++
		e.mu.Unlock()

		for _, match := range item.matches {
			if !match.Known {
				continue
			}
			key := fmt.Sprintf("%s/%d", match.Kind, match.PersonID)
			e.mu.Lock()
			firstSighting := !e.seen[key]
			e.seen[key] = true
			e.stats.LastSeenPerson = match.Name
			e.mu.Unlock()

			if e.Reporter != nil && e.Reporter.Record(seanceID, match.PersonID, match.Kind) {
				e.mu.Lock()
				e.stats.Recognitions++
				e.mu.Unlock()
				log.Printf("recognition: recorded %s %d (%s) for seance %d (%.0f%%)",
					match.Kind, match.PersonID, match.Name, seanceID, match.Confidence*100)
			} else if firstSighting {
				log.Printf("recognition: sighted %s %d (%s) at %.0f%%",
					match.Kind, match.PersonID, match.Name, match.Confidence*100)
			}
		}
	}
}

var (
	knownColor   = color.RGBA{R: 0, G: 200, B: 0, A: 0}
	unknownColor = color.RGBA{R: 220, G: 0, B: 0, A: 0}
)

func (e *Engine) annotate(frame gocv.Mat, matches []Match) {
	for _, match := range matches {
		rect := image.Rect(match.Box.X, match.Box.Y, match.Box.X+match.Box.W, match.Box.Y+match.Box.H)
		boxColor := unknownColor
		caption := match.Name
		if match.Known {
			boxColor = knownColor
			caption = fmt.Sprintf("%s %.0f%%", match.Name, match.Confidence*100)
		}
		gocv.Rectangle(&frame, rect, boxColor, 2)
		gocv.PutText(&frame, caption, image.Pt(rect.Min.X, rect.Min.Y-8),
			gocv.FontHersheySimplex, 0.6, boxColor, 2)
	}
}

func (e *Engine) publishSnapshot(frame gocv.Mat) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		log.Printf("recognition: failed to encode snapshot: %v", err)
		return
	}
	defer buf.Close()

	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)

	e.mu.Lock()
	e.snapshot = out
	e.mu.Unlock()
}
