package attendance

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/yacine-dev/attendclass/models"
	"github.com/yacine-dev/attendclass/repository"
)

// ErrNoSeanceSelected is returned by Status when nothing is selected.
var ErrNoSeanceSelected = errors.New("no seance selected")

// RecognitionRunner is the slice of the recognition engine the watcher
// drives.
type RecognitionRunner interface {
	Start(seanceID uint) error
	Stop()
	Running() bool
}

// WatcherStatus is the current scheduling view for the selected seance.
type WatcherStatus struct {
	Seance    *models.Seance `json:"seance"`
	Phase     string         `json:"phase"`
	Running   bool           `json:"running"`
	Remaining string         `json:"remaining,omitempty"`
}

// Watcher polls the selected seance's schedule and starts or stops
// recognition as it enters or leaves its time window.
type Watcher struct {
	Seances  repository.SeanceRepositoryInterface
	Runner   RecognitionRunner
	Recorder *Recorder
	Interval time.Duration

	mu       sync.Mutex
	selected *models.Seance
	phase    string
	stopCh   chan struct{}
	doneCh   chan struct{}
	started  bool
}

func NewWatcher(seances repository.SeanceRepositoryInterface, runner RecognitionRunner, recorder *Recorder, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Watcher{
		Seances:  seances,
		Runner:   runner,
		Recorder: recorder,
		Interval: interval,
	}
}

// Select makes the given seance the one being watched. Selecting a new
// seance while recognition runs for the previous one stops it first.
func (w *Watcher) Select(seanceID uint) error {
	seance, err := w.Seances.GetByID(seanceID)
	if err != nil {
		return fmt.Errorf("failed to select seance %d: %w", seanceID, err)
	}

	w.mu.Lock()
	previous := w.selected
	w.selected = seance
	w.phase = ""
	w.mu.Unlock()

	if previous != nil && previous.ID != seance.ID && w.Runner.Running() {
		log.Printf("watcher: seance changed from %d to %d, stopping recognition", previous.ID, seance.ID)
		w.Runner.Stop()
		w.Recorder.Reset()
	}

	log.Printf("watcher: selected seance %d (%s, %s %s-%s)", seance.ID, seance.Name, seance.Date, seance.StartTime, seance.EndTime)
	w.evaluateOnce()
	return nil
}

// Start launches the polling loop.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.loop()
}

// Stop halts the polling loop and any running recognition session.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.started = false
	close(w.stopCh)
	doneCh := w.doneCh
	w.mu.Unlock()

	select {
	case <-doneCh:
	case <-time.After(2 * time.Second):
		log.Println("watcher: polling loop did not exit in time")
	}

	if w.Runner.Running() {
		w.Runner.Stop()
	}
}

func (w *Watcher) loop() {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.evaluateOnce()
		}
	}
}

// evaluateOnce applies the schedule gate to the selected seance, starting
// or stopping recognition on phase transitions.
func (w *Watcher) evaluateOnce() {
	w.mu.Lock()
	seance := w.selected
	w.mu.Unlock()
	if seance == nil {
		return
	}

	decision, err := Evaluate(seance, time.Now())
	if err != nil {
		log.Printf("watcher: cannot evaluate seance %d: %v", seance.ID, err)
		return
	}

	w.mu.Lock()
	previousPhase := w.phase
	w.phase = decision.Phase
	w.mu.Unlock()

	running := w.Runner.Running()
	switch {
	case decision.ShouldRun && !running:
		log.Printf("watcher: seance %d in session (%s remaining), starting recognition",
			seance.ID, RemainingString(decision.Remaining))
		w.Recorder.Reset()
		if err := w.Runner.Start(seance.ID); err != nil {
			log.Printf("watcher: failed to start recognition for seance %d: %v", seance.ID, err)
		}
	case !decision.ShouldRun && running:
		log.Printf("watcher: seance %d window closed (phase %s), stopping recognition", seance.ID, decision.Phase)
		w.Runner.Stop()
	case decision.Phase != previousPhase && previousPhase != "":
		log.Printf("watcher: seance %d phase %s -> %s", seance.ID, previousPhase, decision.Phase)
	}
}

// Status reports the selected seance's current phase.
func (w *Watcher) Status() (*WatcherStatus, error) {
	w.mu.Lock()
	seance := w.selected
	w.mu.Unlock()
	if seance == nil {
		return nil, ErrNoSeanceSelected
	}

	decision, err := Evaluate(seance, time.Now())
	if err != nil {
		return nil, err
	}

	status := &WatcherStatus{
		Seance:  seance,
		Phase:   decision.Phase,
		Running: w.Runner.Running(),
	}
	if decision.Remaining > 0 {
		status.Remaining = RemainingString(decision.Remaining)
	}
	return status, nil
}
