package vision

import (
	"fmt"
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// maxReadFailures is the number of consecutive failed reads after which
// the capture device is considered dead and the feed is abandoned.
const maxReadFailures = 30

// frameReader abstracts the capture device so the pacing and queue logic
// can be tested without hardware.
type frameReader interface {
	read(dst *gocv.Mat) bool
	release() error
}

type gocvReader struct {
	capture *gocv.VideoCapture
}

func (r *gocvReader) read(dst *gocv.Mat) bool { return r.capture.Read(dst) }
func (r *gocvReader) release() error { return r.capture.Close() }

// openCaptureDevice tries the configured device index and, when it cannot
// be opened or does not deliver frames, falls back to the two following
// indices. Laptops frequently enumerate an IR camera before the RGB one.
func openCaptureDevice(index, width, height int, fps float64) (*gocv.VideoCapture, int, error) {
	candidates := []int{index, index + 1, index + 2}
	for _, idx := range candidates {
		capture, err := gocv.OpenVideoCapture(idx)
		if err != nil {
			log.Printf("camera: device %d unavailable: %v", idx, err)
			continue
		}
		capture.Set(gocv.VideoCaptureFrameWidth, float64(width))
		capture.Set(gocv.VideoCaptureFrameHeight, float64(height))
		capture.Set(gocv.VideoCaptureFPS, fps)

		first := gocv.NewMat()
		ok := capture.Read(&first)
		empty := first.Empty()
		first.Close()
		if ok && !empty {
			if idx != index {
				log.Printf("camera: device %d failed, using device %d instead", index, idx)
			}
			return capture, idx, nil
		}
		capture.Close()
		log.Printf("camera: device %d opened but produced no frames", idx)
	}
	return nil, -1, fmt.Errorf("no working capture device found starting at index %d", index)
}

// Camera reads frames from a capture device at a paced rate and exposes
// them two ways: a latest-frame slot for on-demand consumers (preview
// snapshots) and a bounded channel that always holds the freshest frames
// for the recognition pipeline.
type Camera struct {
	Index     int
	Width     int
	Height    int
	FPS       float64
	QueueSize int

	reader frameReader

	mu      sync.Mutex
	latest  gocv.Mat
	hasLast bool
	running bool

	frames chan gocv.Mat
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewCamera builds a camera for the given device settings. No device is
// touched until Start.
func NewCamera(index, width, height, queueSize int, fps float64) *Camera {
	if queueSize < 1 {
		queueSize = 1
	}
	if fps <= 0 {
		fps = 30
	}
	return &Camera{
		Index:     index,
		Width:     width,
		Height:    height,
		FPS:       fps,
		QueueSize: queueSize,
	}
}

// Start opens the capture device and launches the paced capture loop.
// Returns an error when no device candidate can deliver frames.
func (c *Camera) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}

	if c.reader == nil {
		capture, idx, err := openCaptureDevice(c.Index, c.Width, c.Height, c.FPS)
		if err != nil {
			return fmt.Errorf("failed to start camera: %w", err)
		}
		log.Printf("camera: capture started on device %d (%dx%d @ %.0f fps)", idx, c.Width, c.Height, c.FPS)
		c.reader = &gocvReader{capture: capture}
	}

	c.frames = make(chan gocv.Mat, c.QueueSize)
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.running = true
	go c.captureLoop()
	return nil
}

func (c *Camera) captureLoop() {
	defer close(c.doneCh)

	interval := time.Duration(float64(time.Second) / c.FPS)
	consecutiveFailures := 0

	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		start := time.Now()
		frame := gocv.NewMat()
		if ok := c.reader.read(&frame); !ok || frame.Empty() {
			frame.Close()
			consecutiveFailures++
			if consecutiveFailures >= maxReadFailures {
				log.Printf("camera: %d consecutive read failures, feed is dead, stopping capture loop", consecutiveFailures)
				c.abandonFeed()
				return
			}
			time.Sleep(interval)
			continue
		}
		consecutiveFailures = 0

		c.mu.Lock()
		if c.hasLast {
			c.latest.Close()
		}
		c.latest = frame.Clone()
		c.hasLast = true
		c.mu.Unlock()

		c.offer(frame)

		// pace to the configured frame rate, sleeping only the residual
		if remaining := interval - time.Since(start); remaining > 0 {
			time.Sleep(remaining)
		}
	}
}

// abandonFeed tears down a dead capture device and clears the latest
// frame so Latest and Running immediately report the feed as gone.
func (c *Camera) abandonFeed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	if c.hasLast {
		c.latest.Close()
		c.hasLast = false
	}
	if c.reader != nil {
		if err := c.reader.release(); err != nil {
			log.Printf("camera: error releasing capture device: %v", err)
		}
		c.reader = nil
	}
}

// offer places a frame on the queue, discarding stale frames when full so
// consumers always see the freshest data.
func (c *Camera) offer(frame gocv.Mat) {
	for {
		select {
		case c.frames <- frame:
			return
		default:
			select {
			case stale := <-c.frames:
				stale.Close()
			default:
			}
		}
	}
}

// Latest returns a copy of the most recent frame. The caller owns the
// returned Mat and must Close it.
func (c *Camera) Latest() (gocv.Mat, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasLast {
		return gocv.Mat{}, false
	}
	return c.latest.Clone(), true
}

// Frames exposes the paced frame stream. Received Mats are owned by the
// caller.
func (c *Camera) Frames() <-chan gocv.Mat {
	return c.frames
}

// Running reports whether the capture loop is active.
func (c *Camera) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Stop halts the capture loop, releases the device and frees buffered
// frames. Safe to call more than once.
func (c *Camera) Stop() {
	c.mu.Lock()
	if c.stopCh == nil {
		c.mu.Unlock()
		return
	}
	c.running = false
	stopCh := c.stopCh
	doneCh := c.doneCh
	c.mu.Unlock()

	if stopCh != nil {
		select {
		case <-stopCh:
		default:
			close(stopCh)
		}
	}
	if doneCh != nil {
		select {
		case <-doneCh:
		case <-time.After(2 * time.Second):
			log.Println("camera: capture loop did not exit in time")
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reader != nil {
		if err := c.reader.release(); err != nil {
			log.Printf("camera: error releasing capture device: %v", err)
		}
		c.reader = nil
	}
	if c.hasLast {
		c.latest.Close()
		c.hasLast = false
	}
	if c.frames != nil {
		for {
			select {
			case stale := <-c.frames:
				stale.Close()
			default:
				return
			}
		}
	}
}
