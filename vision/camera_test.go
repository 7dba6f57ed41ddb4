package vision

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// fakeReader produces synthetic frames and counts reads. A non-zero
// failAfter makes every read past that count fail, simulating a device
// that dies mid-stream.
type fakeReader struct {
	mu        sync.Mutex
	reads     int
	failAfter int
	released  bool
}

func (f *fakeReader) read(dst *gocv.Mat) bool {
	f.mu.Lock()
	f.reads++
	reads := f.reads
	f.mu.Unlock()

	if f.failAfter > 0 && reads > f.failAfter {
		return false
	}

	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()
	frame.CopyTo(dst)
	return true
}

func (f *fakeReader) release() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = true
	return nil
}

func (f *fakeReader) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func (f *fakeReader) isReleased() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}

func newFakeCamera(fps float64, queueSize int) (*Camera, *fakeReader) {
	reader := &fakeReader{}
	cam := NewCamera(0, 64, 48, queueSize, fps)
	cam.reader = reader
	return cam, reader
}

func TestCameraPacesCapture(t *testing.T) {
	cam, reader := newFakeCamera(50, 2)
	require.NoError(t, cam.Start())
	defer cam.Stop()

	time.Sleep(400 * time.Millisecond)
	reads := reader.readCount()

	// 50 fps over 400ms is 20 frames; allow generous scheduling slack
	// but catch an unpaced busy loop
	assert.GreaterOrEqual(t, reads, 5)
	assert.LessOrEqual(t, reads, 40)
}

func TestCameraLatestReturnsCopy(t *testing.T) {
	cam, _ := newFakeCamera(100, 2)
	require.NoError(t, cam.Start())
	defer cam.Stop()

	require.Eventually(t, func() bool {
		frame, ok := cam.Latest()
		if ok {
			defer frame.Close()
			return !frame.Empty()
		}
		return false
	}, time.Second, 10*time.Millisecond)

	a, ok := cam.Latest()
	require.True(t, ok)
	defer a.Close()
	b, ok := cam.Latest()
	require.True(t, ok)
	defer b.Close()

	// mutating one copy must not affect the other
	a.SetUCharAt(0, 0, 255)
	assert.Equal(t, uint8(0), b.GetUCharAt(0, 0), "Latest must return independent copies")
}

func TestCameraFramesStreamDelivers(t *testing.T) {
	cam, _ := newFakeCamera(100, 2)
	require.NoError(t, cam.Start())
	defer cam.Stop()

	select {
	case frame := <-cam.Frames():
		assert.False(t, frame.Empty())
		frame.Close()
	case <-time.After(time.Second):
		t.Fatal("no frame delivered")
	}
}

func TestCameraStopIsIdempotent(t *testing.T) {
	cam, reader := newFakeCamera(100, 2)
	require.NoError(t, cam.Start())
	require.Eventually(t, func() bool { return reader.readCount() > 0 }, time.Second, 5*time.Millisecond)

	cam.Stop()
	assert.True(t, reader.isReleased())
	assert.False(t, cam.Running())

	readsAfterStop := reader.readCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, readsAfterStop, reader.readCount(), "capture loop must not run after Stop")

	cam.Stop()
}

func TestCameraAbandonsDeadFeed(t *testing.T) {
	cam, reader := newFakeCamera(200, 2)
	reader.failAfter = 3
	require.NoError(t, cam.Start())
	defer cam.Stop()

	// the loop tolerates transient failures, then declares the feed dead
	require.Eventually(t, func() bool { return !cam.Running() }, 5*time.Second, 10*time.Millisecond)

	_, ok := cam.Latest()
	assert.False(t, ok, "a dead feed must not serve stale frames")
	assert.True(t, reader.isReleased(), "the device must be released when the feed dies")

	// Stop after a self-abandoned feed stays safe
	cam.Stop()
}

func TestFilterMinSize(t *testing.T) {
	boxes := []DetectionResult{
		{X: 0, Y: 0, W: 100, H: 100},
		{X: 0, Y: 0, W: 40, H: 100},
		{X: 0, Y: 0, W: 100, H: 40},
	}
	kept := FilterMinSize(boxes, 50)
	require.Len(t, kept, 1)
	assert.Equal(t, 100, kept[0].W)
}
