// Package workers runs background jobs off the request path.
package workers

import (
	"log"
	"sync"
	"time"

	"github.com/yacine-dev/attendclass/training"
)

// Training job states reported through Status.
const (
	TrainingIdle      = "idle"
	TrainingQueued    = "queued"
	TrainingRunning   = "running"
	TrainingCompleted = "completed"
	TrainingFailed    = "failed"
)

type trainingJob struct {
	EnqueuedAt time.Time
}

// TrainingStatus is the pollable view of the training worker.
type TrainingStatus struct {
	State      string           `json:"state"`
	Phase      string           `json:"phase,omitempty"`
	PhaseDone  int              `json:"phase_done,omitempty"`
	PhaseTotal int              `json:"phase_total,omitempty"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Error      string           `json:"error,omitempty"`
	LastResult *training.Result `json:"last_result,omitempty"`
}

// TrainingProcessor runs classifier training jobs one at a time on a
// background worker. Enqueue requests while a job is queued or running
// are coalesced.
type TrainingProcessor struct {
	JobQueue chan trainingJob
	Trainer  *training.Trainer
	Wg       sync.WaitGroup
	StopChan chan struct{}

	Mutex  sync.Mutex
	status TrainingStatus
}

func NewTrainingProcessor(trainer *training.Trainer) *TrainingProcessor {
	proc := &TrainingProcessor{
		JobQueue: make(chan trainingJob, 1),
		Trainer:  trainer,
		StopChan: make(chan struct{}),
		status:   TrainingStatus{State: TrainingIdle},
	}
	proc.Wg.Add(1)
	go proc.worker()
	log.Println("Started training worker")
	return proc
}

// Enqueue requests a training run. Returns false when a run is already
// queued or in progress.
func (tp *TrainingProcessor) Enqueue() bool {
	tp.Mutex.Lock()
	if tp.status.State == TrainingQueued || tp.status.State == TrainingRunning {
		tp.Mutex.Unlock()
		return false
	}
	tp.status = TrainingStatus{State: TrainingQueued, LastResult: tp.status.LastResult}
	tp.Mutex.Unlock()

	select {
	case tp.JobQueue <- trainingJob{EnqueuedAt: time.Now()}:
		return true
	default:
		// queue already holds a coalesced job
		return false
	}
}

// Status returns a copy of the current worker status.
func (tp *TrainingProcessor) Status() TrainingStatus {
	tp.Mutex.Lock()
	defer tp.Mutex.Unlock()
	return tp.status
}

func (tp *TrainingProcessor) worker() {
	defer tp.Wg.Done()

	for {
		select {
		case job, ok := <-tp.JobQueue:
			if !ok {
				log.Println("Training worker stopping: Job queue closed")
				return
			}
			tp.runJob(job)
		case <-tp.StopChan:
			log.Println("Training worker stopping: Stop signal received")
			return
		}
	}
}

func (tp *TrainingProcessor) runJob(job trainingJob) {
	started := time.Now()
	log.Printf("Training worker: starting run (queued %s ago)", started.Sub(job.EnqueuedAt).Round(time.Millisecond))

	tp.Mutex.Lock()
	lastResult := tp.status.LastResult
	tp.status = TrainingStatus{State: TrainingRunning, StartedAt: &started, LastResult: lastResult}
	tp.Mutex.Unlock()

	result, err := tp.Trainer.Train(func(phase string, done, total int) {
		tp.Mutex.Lock()
		tp.status.Phase = phase
		tp.status.PhaseDone = done
		tp.status.PhaseTotal = total
		tp.Mutex.Unlock()
	})

	finished := time.Now()
	tp.Mutex.Lock()
	tp.status.FinishedAt = &finished
	tp.status.Phase = ""
	tp.status.PhaseDone = 0
	tp.status.PhaseTotal = 0
	if err != nil {
		tp.status.State = TrainingFailed
		tp.status.Error = err.Error()
		tp.Mutex.Unlock()
		log.Printf("Training worker: ERROR run failed: %v", err)
		return
	}
	tp.status.State = TrainingCompleted
	tp.status.LastResult = result
	tp.Mutex.Unlock()
	log.Printf("Training worker: run completed in %s (accuracy %.2f%%, %d classes, %d samples)",
		finished.Sub(started).Round(time.Millisecond), result.HoldoutAccuracy*100, result.Classes, result.Samples)
}

// Stop signals the worker and waits for it to exit.
func (tp *TrainingProcessor) Stop() {
	log.Println("Stopping training worker...")
	close(tp.StopChan)
	tp.Wg.Wait()
	log.Println("Training worker stopped")
}
