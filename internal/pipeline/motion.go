package pipeline

// MotionEstimator detects scene change by comparing consecutive frames'
// luminance. Pixels are sampled at a fixed stride rather than at full
// resolution: the decision only needs to notice that the scene changed enough
// to be worth re-checking, not compute optical flow, and sparse sampling is an
// order of magnitude cheaper per frame.
type MotionEstimator struct {
	threshold float64
	stride    int
	baseline  []byte // RGBA pixels of the last evaluated frame
}

// NewMotionEstimator creates a motion estimator. threshold is the minimum
// normalized [0,1] mean luminance delta that counts as motion; stride is the
// pixel sampling step.
func NewMotionEstimator(threshold float64, stride int) *MotionEstimator {
	if stride < 1 {
		stride = 1
	}
	return &MotionEstimator{
		threshold: threshold,
		stride:    stride,
	}
}

// Evaluate compares the frame against the current baseline and reports
// whether enough motion was observed, along with the normalized difference
// score. The first call after a reset always admits since there is nothing to
// compare against.
//
// The baseline is replaced on every call, admitted or not, so a slowly
// changing scene accumulates difference against its most recent reference
// instead of being compared forever to a stale one.
func (m *MotionEstimator) Evaluate(frame *FrameSample) (bool, float64) {
	prev := m.baseline

	// Copy: the frame buffer is only borrowed for this decision.
	m.baseline = make([]byte, len(frame.Pixels))
	copy(m.baseline, frame.Pixels)

	if prev == nil {
		return true, 1
	}

	step := m.stride * 4 // RGBA
	var sum float64
	var count int
	limit := len(frame.Pixels)
	if len(prev) < limit {
		limit = len(prev)
	}
	for i := 0; i+3 < limit; i += step {
		cur := Luminance(frame.Pixels[i], frame.Pixels[i+1], frame.Pixels[i+2])
		ref := Luminance(prev[i], prev[i+1], prev[i+2])
		d := cur - ref
		if d < 0 {
			d = -d
		}
		sum += d
		count++
	}

	if count == 0 {
		return true, 1
	}

	score := sum / float64(count) / 255
	return score > m.threshold, score
}

// HasBaseline reports whether a reference frame is currently held
func (m *MotionEstimator) HasBaseline() bool {
	return m.baseline != nil
}

// Reset drops the baseline so the next evaluation admits unconditionally
func (m *MotionEstimator) Reset() {
	m.baseline = nil
}
