package pipeline

import (
	"sync"

	"lumen/internal/timeutil"
)

// AdmissionPipeline decides, per frame, whether to spend a remote recognition
// call on it. Three gates run in a fixed order: throttle first because it is
// the cheapest check, then motion, then quality, so a static scene never pays
// for a sharpness recomputation.
//
// A frame rejected by the throttle gate never reaches the motion estimator,
// which means the motion baseline is not shifted by throttled-out frames.
type AdmissionPipeline struct {
	motion   *MotionEstimator
	quality  *QualityAssessor
	throttle *ThrottleGate
	stats    *Stats
	clock    timeutil.Clock
	enabled  bool
	mu       sync.Mutex
}

// NewAdmissionPipeline wires the three gates from the effective config.
// The pipeline starts enabled.
func NewAdmissionPipeline(cfg *Config, stats *Stats, clock timeutil.Clock) *AdmissionPipeline {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if stats == nil {
		stats = NewStats()
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &AdmissionPipeline{
		motion:   NewMotionEstimator(cfg.MotionThreshold, cfg.SampleStride),
		quality:  NewQualityAssessor(cfg.QualityThreshold),
		throttle: NewThrottleGate(cfg.ScanInterval),
		stats:    stats,
		clock:    clock,
		enabled:  true,
	}
}

// ShouldProcess runs the gates in order and reports whether the frame should
// be dispatched to the recognition service. When the pipeline is disabled
// every frame is admitted unconditionally and no gate state is touched.
func (p *AdmissionPipeline) ShouldProcess(frame *FrameSample) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.FrameSeen()

	if !p.enabled {
		return true
	}

	if !p.throttle.TryAdmit(p.clock.Now()) {
		p.stats.FrameSkipped()
		return false
	}

	if admitted, _ := p.motion.Evaluate(frame); !admitted {
		p.stats.FrameSkipped()
		return false
	}
	p.stats.MotionHit()

	if admitted, _ := p.quality.Evaluate(frame); !admitted {
		p.stats.FrameSkipped()
		return false
	}
	p.stats.QualityPassed()

	return true
}

// SetEnabled toggles the bypass switch. Disabled means every frame is
// admitted, for manual or continuous operation.
func (p *AdmissionPipeline) SetEnabled(enabled bool) {
	p.mu.Lock()
	p.enabled = enabled
	p.mu.Unlock()
}

// Enabled reports whether gating is active
func (p *AdmissionPipeline) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// Stats returns the shared stats recorder
func (p *AdmissionPipeline) Stats() *Stats {
	return p.stats
}

// Reset clears all gate state and counters
func (p *AdmissionPipeline) Reset() {
	p.mu.Lock()
	p.motion.Reset()
	p.throttle.Reset()
	p.stats.Reset()
	p.mu.Unlock()
}

// HasMotionBaseline reports whether the motion estimator holds a reference
// frame. Exposed for the status surface.
func (p *AdmissionPipeline) HasMotionBaseline() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.motion.HasBaseline()
}
