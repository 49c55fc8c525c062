package pipeline

import (
	"sync"
)

// Stats accumulates pipeline and dispatch counters. Counters are written from
// the scan loop's single logical thread but read concurrently by the status
// surfaces, so access is guarded.
type Stats struct {
	mu             sync.RWMutex
	framesAnalyzed uint64
	framesSkipped  uint64
	motionHits     uint64
	qualityPassed  uint64
	apiCalls       uint64
	apiSuccesses   uint64
	detections     uint64
	errors         uint64
	avgConfidence  float64
}

// StatsSnapshot is a point-in-time copy of the counters plus the derived
// percentages exposed to the presentation layer.
type StatsSnapshot struct {
	FramesAnalyzed uint64  `json:"frames_analyzed"`
	FramesSkipped  uint64  `json:"frames_skipped"`
	MotionHits     uint64  `json:"motion_hits"`
	QualityPassed  uint64  `json:"quality_passed"`
	APICalls       uint64  `json:"api_calls"`
	Detections     uint64  `json:"detections"`
	Errors         uint64  `json:"errors"`
	Efficiency     float64 `json:"efficiency_percent"`   // Share of frames filtered before an API call
	SuccessRate    float64 `json:"success_rate_percent"` // Share of API calls that succeeded
	AvgConfidence  float64 `json:"avg_confidence"`
}

// NewStats creates a zeroed stats recorder
func NewStats() *Stats {
	return &Stats{}
}

// FrameSeen records a frame entering the pipeline
func (s *Stats) FrameSeen() {
	s.mu.Lock()
	s.framesAnalyzed++
	s.mu.Unlock()
}

// FrameSkipped records a frame rejected by one of the gates
func (s *Stats) FrameSkipped() {
	s.mu.Lock()
	s.framesSkipped++
	s.mu.Unlock()
}

// MotionHit records a frame that passed the motion gate
func (s *Stats) MotionHit() {
	s.mu.Lock()
	s.motionHits++
	s.mu.Unlock()
}

// QualityPassed records a frame that passed all gates
func (s *Stats) QualityPassed() {
	s.mu.Lock()
	s.qualityPassed++
	s.mu.Unlock()
}

// APICall records one recognition call attempt, successful or not
func (s *Stats) APICall() {
	s.mu.Lock()
	s.apiCalls++
	s.mu.Unlock()
}

// APISuccess records a completed recognition call
func (s *Stats) APISuccess() {
	s.mu.Lock()
	s.apiSuccesses++
	s.mu.Unlock()
}

// DetectionsFound records recognized objects and folds their mean confidence
// into the running average.
func (s *Stats) DetectionsFound(count int, meanConfidence float64) {
	if count <= 0 {
		return
	}
	s.mu.Lock()
	s.detections += uint64(count)
	if s.avgConfidence == 0 {
		s.avgConfidence = meanConfidence
	} else {
		s.avgConfidence = (s.avgConfidence + meanConfidence) / 2
	}
	s.mu.Unlock()
}

// ErrorOccurred records a failed recognition call attempt
func (s *Stats) ErrorOccurred() {
	s.mu.Lock()
	s.errors++
	s.mu.Unlock()
}

// Snapshot returns a copy of the current counters
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := StatsSnapshot{
		FramesAnalyzed: s.framesAnalyzed,
		FramesSkipped:  s.framesSkipped,
		MotionHits:     s.motionHits,
		QualityPassed:  s.qualityPassed,
		APICalls:       s.apiCalls,
		Detections:     s.detections,
		Errors:         s.errors,
		AvgConfidence:  s.avgConfidence,
	}
	if s.framesAnalyzed > 0 {
		snap.Efficiency = float64(s.framesSkipped) / float64(s.framesAnalyzed) * 100
	}
	if s.apiCalls > 0 {
		snap.SuccessRate = float64(s.apiSuccesses) / float64(s.apiCalls) * 100
	}
	return snap
}

// Reset zeroes all counters
func (s *Stats) Reset() {
	s.mu.Lock()
	s.framesAnalyzed = 0
	s.framesSkipped = 0
	s.motionHits = 0
	s.qualityPassed = 0
	s.apiCalls = 0
	s.apiSuccesses = 0
	s.detections = 0
	s.errors = 0
	s.avgConfidence = 0
	s.mu.Unlock()
}
