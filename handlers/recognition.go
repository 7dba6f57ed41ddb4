package handlers

import (
	"net/http"

	"github.com/yacine-dev/attendclass/recognition"
)

type RecognitionHandler struct {
	Engine *recognition.Engine
}

// RecognitionStatus reports the engine state and session counters.
func (rh *RecognitionHandler) RecognitionStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state": rh.Engine.State(),
		"stats": rh.Engine.SessionStats(),
	})
}

// ReloadModel re-reads the classifier and label map from disk.
func (rh *RecognitionHandler) ReloadModel(w http.ResponseWriter, r *http.Request) {
	if err := rh.Engine.Load(); err != nil {
		WriteAPIError(w, http.StatusConflict, "load_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Model reloaded"})
}

// Preview serves the latest annotated frame as a JPEG.
func (rh *RecognitionHandler) Preview(w http.ResponseWriter, r *http.Request) {
	snapshot := rh.Engine.Snapshot()
	if snapshot == nil {
		WriteAPIError(w, http.StatusNotFound, "no_frame", "No frame available yet")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(snapshot)
}
