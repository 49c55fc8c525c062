// Package scanner drives the capture → admit → dispatch → publish loop.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"lumen/internal/pipeline"
	"lumen/internal/recognition"
	"lumen/internal/timeutil"
	"lumen/internal/ws"
)

// FrameSource supplies frames on demand. NextFrame returns nil when no frame
// is currently available; the scanner skips that tick.
type FrameSource interface {
	NextFrame() *pipeline.FrameSample
}

// Scanner runs the cooperative tick loop. Each tick captures a frame, asks
// the admission pipeline whether to process it, and if admitted dispatches it
// to the recognition service. The next tick is armed only after the current
// tick's work, including the dispatch call, completes, so ticks never overlap
// and no two API calls race on the cache.
type Scanner struct {
	source     FrameSource
	admission  *pipeline.AdmissionPipeline
	dispatcher *recognition.Dispatcher
	clock      timeutil.Clock
	logger     *log.Logger

	tickInterval time.Duration
	cooldown     time.Duration

	hub *ws.DetectionHub

	stopCh  chan struct{}
	pauseCh chan bool

	mu         sync.Mutex
	running    bool
	detections []pipeline.Detection
	lastFrame  []byte // encoded bytes of the last dispatched frame
	status     string
}

// New creates a scanner. tickInterval is the cadence of the capture loop;
// the admission pipeline's throttle gate controls frame spacing independently.
func New(source FrameSource, admission *pipeline.AdmissionPipeline, dispatcher *recognition.Dispatcher, cfg *pipeline.Config, clock timeutil.Clock, logger *log.Logger) *Scanner {
	if cfg == nil {
		cfg = pipeline.DefaultConfig()
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if logger == nil {
		logger = log.Default()
	}

	tick := cfg.ScanInterval / 4
	if tick < 50*time.Millisecond {
		tick = 50 * time.Millisecond
	}

	return &Scanner{
		source:       source,
		admission:    admission,
		dispatcher:   dispatcher,
		clock:        clock,
		logger:       logger,
		tickInterval: tick,
		cooldown:     cfg.RateLimitCooldown,
		stopCh:       make(chan struct{}),
		pauseCh:      make(chan bool, 4),
	}
}

// SetHub attaches a WebSocket hub for broadcasting results
func (s *Scanner) SetHub(hub *ws.DetectionHub) {
	s.mu.Lock()
	s.hub = hub
	s.mu.Unlock()
}

// Start begins the tick loop. A stopped scanner can be started again.
func (s *Scanner) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scanner is already running")
	}
	s.running = true
	// Stop closes the previous channel, so each loop gets a fresh one.
	s.stopCh = make(chan struct{})

	go s.run(s.stopCh)
	s.logger.Printf("[Scanner] Started (tick %v)", s.tickInterval)
	return nil
}

// Stop halts the loop and hides the current detection state. An in-flight
// dispatch is allowed to complete; its result is simply not rendered.
func (s *Scanner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.detections = nil
	s.lastFrame = nil
	hub := s.hub
	stopCh := s.stopCh
	s.mu.Unlock()

	close(stopCh)
	if hub != nil {
		hub.BroadcastDetections(ws.NewDetectionMessage(nil))
	}
	s.logger.Printf("[Scanner] Stopped")
}

// Pause suspends the tick loop, e.g. when the controlling page becomes
// hidden. An in-flight dispatch is not aborted.
func (s *Scanner) Pause() {
	select {
	case s.pauseCh <- true:
	default:
	}
}

// Resume re-arms the tick loop after a Pause
func (s *Scanner) Resume() {
	select {
	case s.pauseCh <- false:
	default:
	}
}

// Running reports whether the loop is active
func (s *Scanner) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Detections returns the currently admitted detection set
func (s *Scanner) Detections() []pipeline.Detection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]pipeline.Detection, len(s.detections))
	copy(out, s.detections)
	return out
}

// LastFrame returns the encoded bytes of the last dispatched frame, for the
// snapshot surface.
func (s *Scanner) LastFrame() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.lastFrame))
	copy(out, s.lastFrame)
	return out
}

// Status returns the last one-line status message
func (s *Scanner) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Scanner) run(stop <-chan struct{}) {
	timer := s.clock.NewTimer(s.tickInterval)
	defer timer.Stop()

	paused := false
	for {
		select {
		case <-stop:
			return
		case hidden := <-s.pauseCh:
			if hidden && !paused {
				paused = true
				timer.Stop()
				s.logger.Printf("[Scanner] Paused")
			} else if !hidden && paused {
				paused = false
				timer.Reset(s.tickInterval)
				s.logger.Printf("[Scanner] Resumed")
			}
		case <-timer.C():
			if paused {
				continue
			}
			next := s.tick()
			timer.Reset(next)
		}
	}
}

// tick processes a single frame and returns the delay before the next tick.
// Errors are logged and swallowed: one bad frame must not terminate the loop.
func (s *Scanner) tick() (next time.Duration) {
	next = s.tickInterval

	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("[Scanner] Recovered from tick panic: %v", r)
		}
	}()

	frame := s.source.NextFrame()
	if frame == nil {
		return next
	}

	if !s.admission.ShouldProcess(frame) {
		return next
	}

	dets, err := s.dispatcher.Detect(context.Background(), frame)
	if err != nil {
		s.logger.Printf("[Scanner] Detection failed: %v", err)
		var rerr *recognition.Error
		if errors.As(err, &rerr) {
			s.setStatus(rerr.Category())
		} else {
			s.setStatus("recognition call failed")
		}
		if recognition.IsRateLimited(err) {
			// Cooldown before the next tick, independent of the
			// dispatcher's own retry loop.
			next = s.cooldown
		}
		return next
	}

	s.publish(dets, frame)
	return next
}

// publish records the result and broadcasts it, unless the scanner was
// stopped while the dispatch was in flight.
func (s *Scanner) publish(dets []pipeline.Detection, frame *pipeline.FrameSample) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.detections = dets
	s.lastFrame = make([]byte, len(frame.Encoded))
	copy(s.lastFrame, frame.Encoded)
	s.status = ""
	hub := s.hub
	s.mu.Unlock()

	if hub != nil {
		hub.BroadcastDetections(ws.NewDetectionMessage(dets))
		hub.BroadcastStats(ws.NewStatsMessage(s.admission.Stats().Snapshot()))
	}
}

func (s *Scanner) setStatus(status string) {
	s.mu.Lock()
	s.status = status
	hub := s.hub
	s.mu.Unlock()

	if hub != nil {
		hub.BroadcastStatus(ws.NewStatusMessage(status))
	}
}
