package vision

import (
	"gocv.io/x/gocv"
)

// DetectionResult is one face bounding box in full-frame pixel
// coordinates, regardless of any downsampling applied during detection.
type DetectionResult struct {
	X          int
	Y          int
	W          int
	H          int
	Confidence float32
}

// Locator finds face bounding boxes in a frame.
type Locator interface {
	Locate(img gocv.Mat) []DetectionResult
}

// Encoder computes one fixed-length embedding per box, preserving box
// order. Encoding runs on the full-resolution frame.
type Encoder interface {
	Encode(img gocv.Mat, boxes []DetectionResult) ([][]float32, error)
}

// FileEncoder computes a single face embedding from an image on disk.
// Used by the trainer, which works from saved enrollment crops rather
// than live frames.
type FileEncoder interface {
	EncodeFile(path string) ([]float32, error)
}

// FrameProvider is the camera abstraction consumed by the enrollment and
// recognition pipelines. Frames returned by Latest and received from
// Frames are owned by the caller, who must Close them. Running reports
// whether the feed is still alive; once it returns false no further
// frames will arrive and Latest stops returning data.
type FrameProvider interface {
	Start() error
	Latest() (gocv.Mat, bool)
	Frames() <-chan gocv.Mat
	Running() bool
	Stop()
}

// FilterMinSize drops boxes whose width or height is below min pixels.
// Undersized boxes produce useless enrollment crops; recognition may
// still display them but never saves them.
func FilterMinSize(results []DetectionResult, min int) []DetectionResult {
	if min <= 0 {
		return results
	}
	var kept []DetectionResult
	for _, r := range results {
		if r.W >= min && r.H >= min {
			kept = append(kept, r)
		}
	}
	return kept
}
