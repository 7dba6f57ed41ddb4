package handlers

import (
	"net/http"

	"github.com/yacine-dev/attendclass/workers"
)

type TrainingHandler struct {
	Processor *workers.TrainingProcessor
}

// StartTraining enqueues a training run.
func (th *TrainingHandler) StartTraining(w http.ResponseWriter, r *http.Request) {
	if !th.Processor.Enqueue() {
		WriteAPIError(w, http.StatusConflict, "training_busy", "A training run is already queued or in progress")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Training run queued"})
}

// TrainingStatus reports the state of the training worker.
func (th *TrainingHandler) TrainingStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, th.Processor.Status())
}
