package pipeline

import (
	"time"
)

// FrameSample represents a single captured camera frame handed to the
// admission pipeline. Pixels holds the raw RGBA buffer used for motion and
// quality analysis; Encoded holds the compressed image bytes that would be
// sent to the recognition service. The pipeline only borrows a sample for the
// duration of one admission decision.
type FrameSample struct {
	Pixels    []byte    // RGBA pixel data, 4 bytes per pixel
	Width     int       // Frame width in pixels
	Height    int       // Frame height in pixels
	Encoded   []byte    // Encoded (JPEG) frame data
	Timestamp time.Time // Capture timestamp
}

// BoundingBox locates a detection within the frame in normalized [0,1]
// coordinates.
type BoundingBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection represents a single recognized object
type Detection struct {
	Name        string       `json:"name"`
	Confidence  float64      `json:"confidence"` // [0-1]
	BoundingBox *BoundingBox `json:"bounding_box,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// Config contains the effective settings for the admission pipeline and the
// dispatch path behind it.
type Config struct {
	MotionThreshold     float64       // Minimum normalized luminance delta to admit on motion grounds
	QualityThreshold    float64       // Minimum combined sharpness/brightness score to admit
	ScanInterval        time.Duration // Minimum spacing between admitted frames
	ConfidenceThreshold float64       // Confidence floor [0-1] passed to the service and applied locally
	CacheTTL            time.Duration // Cache entry lifetime
	CacheMaxEntries     int           // Cache capacity before FIFO eviction
	MaxRetries          int           // Retry ceiling for retryable dispatch errors
	RetryBaseDelay      time.Duration // Backoff unit, attempt N waits N times this
	RateLimitCooldown   time.Duration // Extra delay before the next tick after a rate-limit error
	SampleStride        int           // Pixel sampling stride for motion analysis
	FingerprintPrefix   int           // Encoded-byte prefix length hashed for cache keys
}

// Overrides contains per-run configuration overrides.
// Nil fields mean "inherit the default".
type Overrides struct {
	MotionThreshold     *float64       `json:"motion_threshold,omitempty"`
	QualityThreshold    *float64       `json:"quality_threshold,omitempty"`
	ScanInterval        *time.Duration `json:"scan_interval,omitempty"`
	ConfidenceThreshold *float64       `json:"confidence_threshold,omitempty"`
	CacheTTL            *time.Duration `json:"cache_ttl,omitempty"`
	CacheMaxEntries     *int           `json:"cache_max_entries,omitempty"`
	MaxRetries          *int           `json:"max_retries,omitempty"`
	RetryBaseDelay      *time.Duration `json:"retry_base_delay,omitempty"`
	RateLimitCooldown   *time.Duration `json:"rate_limit_cooldown,omitempty"`
	SampleStride        *int           `json:"sample_stride,omitempty"`
	FingerprintPrefix   *int           `json:"fingerprint_prefix,omitempty"`
}

// DefaultConfig returns sensible defaults for the admission pipeline
func DefaultConfig() *Config {
	return &Config{
		MotionThreshold:     0.05,
		QualityThreshold:    0.4,
		ScanInterval:        time.Second,
		ConfidenceThreshold: 0.6,
		CacheTTL:            60 * time.Second,
		CacheMaxEntries:     50,
		MaxRetries:          3,
		RetryBaseDelay:      time.Second,
		RateLimitCooldown:   5 * time.Second,
		SampleStride:        4,
		FingerprintPrefix:   4096,
	}
}

// Merge applies the overrides to the defaults and returns the effective config
func (o *Overrides) Merge(base *Config) *Config {
	if base == nil {
		base = DefaultConfig()
	}

	effective := *base
	if o == nil {
		return &effective
	}

	if o.MotionThreshold != nil {
		effective.MotionThreshold = *o.MotionThreshold
	}
	if o.QualityThreshold != nil {
		effective.QualityThreshold = *o.QualityThreshold
	}
	if o.ScanInterval != nil {
		effective.ScanInterval = *o.ScanInterval
	}
	if o.ConfidenceThreshold != nil {
		effective.ConfidenceThreshold = *o.ConfidenceThreshold
	}
	if o.CacheTTL != nil {
		effective.CacheTTL = *o.CacheTTL
	}
	if o.CacheMaxEntries != nil {
		effective.CacheMaxEntries = *o.CacheMaxEntries
	}
	if o.MaxRetries != nil {
		effective.MaxRetries = *o.MaxRetries
	}
	if o.RetryBaseDelay != nil {
		effective.RetryBaseDelay = *o.RetryBaseDelay
	}
	if o.RateLimitCooldown != nil {
		effective.RateLimitCooldown = *o.RateLimitCooldown
	}
	if o.SampleStride != nil {
		effective.SampleStride = *o.SampleStride
	}
	if o.FingerprintPrefix != nil {
		effective.FingerprintPrefix = *o.FingerprintPrefix
	}

	return &effective
}

// Luminance converts an RGB triple to perceptual brightness using the BT.601
// weights.
func Luminance(r, g, b byte) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}
