package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Motion detection constants
const (
	// GaussianBlurSize is the kernel size for Gaussian blur on the
	// downscaled frame.
	GaussianBlurSize = 7
	// DiffThreshold is the binary threshold for difference detection
	DiffThreshold = 25
	// motionWidth is the width frames are reduced to before comparison.
	motionWidth = 160
)

// MotionDetector reports whether consecutive frames differ, using frame
// differencing on a blurred, downscaled grayscale copy.
type MotionDetector struct {
	threshold   float64
	prevGray    gocv.Mat
	initialized bool
	mu          sync.Mutex
}

// NewMotionDetector creates a MotionDetector. threshold is the percentage of
// pixels that must change, e.g. 1.0 means 1%.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{
		threshold: threshold,
		prevGray:  gocv.NewMat(),
	}
}

// Detect compares frame with the previous one and returns whether motion
// was detected and the percentage of pixels that changed. The first frame
// and frames of a different size only set the baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	small := gocv.NewMat()
	defer small.Close()
	scale := float64(motionWidth) / float64(frame.Cols())
	if scale < 1 {
		gocv.Resize(*frame, &small, image.Point{}, scale, scale, gocv.InterpolationArea)
	} else {
		frame.CopyTo(&small)
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if small.Channels() > 1 {
		gocv.CvtColor(small, &gray, gocv.ColorBGRToGray)
	} else {
		small.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: GaussianBlurSize, Y: GaussianBlurSize}, 0, 0, gocv.BorderDefault)

	if !m.initialized || blurred.Rows() != m.prevGray.Rows() || blurred.Cols() != m.prevGray.Cols() {
		blurred.CopyTo(&m.prevGray)
		m.initialized = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, DiffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(thresh)) / float64(thresh.Rows()*thresh.Cols()) * 100.0
	blurred.CopyTo(&m.prevGray)

	return changed > m.threshold, changed
}

// Reset drops the baseline frame.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
}

// Close releases resources used by the motion detector.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
}

func (m *MotionDetector) reset() {
	if !m.prevGray.Empty() {
		m.prevGray.Close()
		m.prevGray = gocv.NewMat()
	}
	m.initialized = false
}

// AdaptiveRate picks the capture rate: the active rate while the scene
// moves, dropping to the idle rate once it has been still for IdleAfter.
type AdaptiveRate struct {
	Active    int
	Idle      int
	IdleAfter time.Duration

	lastMotion time.Time
}

// NewAdaptiveRate returns an AdaptiveRate that starts active.
func NewAdaptiveRate(active, idle int, idleAfter time.Duration) *AdaptiveRate {
	if idle <= 0 || idle > active {
		idle = active
	}
	return &AdaptiveRate{Active: active, Idle: idle, IdleAfter: idleAfter}
}

// Observe records a motion sample taken at now and returns the rate to use.
func (r *AdaptiveRate) Observe(motion bool, now time.Time) int {
	if motion || r.lastMotion.IsZero() {
		r.lastMotion = now
	}
	if now.Sub(r.lastMotion) >= r.IdleAfter {
		return r.Idle
	}
	return r.Active
}

// Wake forces the active rate, e.g. after the user touches a control.
func (r *AdaptiveRate) Wake(now time.Time) {
	r.lastMotion = now
}
