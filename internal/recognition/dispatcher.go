package recognition

import (
	"context"
	"log"
	"time"

	"lumen/internal/cache"
	"lumen/internal/pipeline"
	"lumen/internal/timeutil"
)

// Recognizer is the call contract of the remote recognition service
type Recognizer interface {
	Detect(ctx context.Context, imageBytes []byte, minConfidencePercent float64) (*Result, error)
}

// Dispatcher wraps calls to the recognition service with a read-through
// result cache, retry with linear backoff for retryable errors, and stats
// accounting. Fatal errors propagate immediately.
type Dispatcher struct {
	client Recognizer
	cache  *cache.ResultCache
	stats  *pipeline.Stats
	clock  timeutil.Clock
	logger *log.Logger

	confidenceThreshold float64 // [0-1]
	maxRetries          int
	baseDelay           time.Duration
	fingerprintPrefix   int
}

// NewDispatcher creates a dispatcher from the effective config
func NewDispatcher(client Recognizer, resultCache *cache.ResultCache, stats *pipeline.Stats, cfg *pipeline.Config, clock timeutil.Clock, logger *log.Logger) *Dispatcher {
	if cfg == nil {
		cfg = pipeline.DefaultConfig()
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{
		client:              client,
		cache:               resultCache,
		stats:               stats,
		clock:               clock,
		logger:              logger,
		confidenceThreshold: cfg.ConfidenceThreshold,
		maxRetries:          cfg.MaxRetries,
		baseDelay:           cfg.RetryBaseDelay,
		fingerprintPrefix:   cfg.FingerprintPrefix,
	}
}

// Detect returns the detections for an admitted frame, consulting the cache
// before issuing a remote call. A cache hit costs no API call. On a miss the
// remote call is attempted up to maxRetries+1 times for retryable failures,
// waiting attempt*baseDelay between tries; exhausting retries surfaces the
// last retryable error.
func (d *Dispatcher) Detect(ctx context.Context, frame *pipeline.FrameSample) ([]pipeline.Detection, error) {
	key := cache.Fingerprint(frame.Encoded, d.fingerprintPrefix)

	if dets, ok := d.cache.Get(key); ok {
		return dets, nil
	}

	var lastErr error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		d.stats.APICall()

		result, err := d.client.Detect(ctx, frame.Encoded, d.confidenceThreshold*100)
		if err == nil {
			d.stats.APISuccess()
			return d.accept(key, result), nil
		}

		d.stats.ErrorOccurred()
		lastErr = err

		if !IsRetryable(err) {
			return nil, err
		}
		if attempt < d.maxRetries {
			delay := time.Duration(attempt+1) * d.baseDelay
			d.logger.Printf("[Dispatcher] Retryable error (attempt %d/%d), retrying in %v: %v",
				attempt+1, d.maxRetries+1, delay, err)
			d.clock.Sleep(delay)
		}
	}

	return nil, lastErr
}

// accept converts the service result to the internal detection model, applies
// the local confidence floor, and caches non-empty results.
func (d *Dispatcher) accept(key uint64, result *Result) []pipeline.Detection {
	now := d.clock.Now()

	dets := make([]pipeline.Detection, 0, len(result.Detections))
	var confSum float64
	for _, sd := range result.Detections {
		conf := sd.ConfidencePercent / 100
		if conf < d.confidenceThreshold {
			continue
		}
		det := pipeline.Detection{
			Name:       sd.Name,
			Confidence: conf,
			Timestamp:  now,
		}
		if sd.BoundingBox != nil {
			det.BoundingBox = &pipeline.BoundingBox{
				Left:   sd.BoundingBox.Left,
				Top:    sd.BoundingBox.Top,
				Width:  sd.BoundingBox.Width,
				Height: sd.BoundingBox.Height,
			}
		}
		dets = append(dets, det)
		confSum += conf
	}

	if len(dets) > 0 {
		d.cache.Put(key, dets)
		d.stats.DetectionsFound(len(dets), confSum/float64(len(dets)))
	}

	return dets
}
