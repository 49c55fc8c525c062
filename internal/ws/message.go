package ws

import (
	"time"

	"github.com/google/uuid"

	"lumen/internal/pipeline"
)

// DetectionMessage carries the currently admitted detection set to
// presentation clients.
type DetectionMessage struct {
	Type       string               `json:"type"` // "detection"
	EventID    string               `json:"event_id"`
	Timestamp  time.Time            `json:"timestamp"`
	Detections []pipeline.Detection `json:"detections"`
}

// StatsMessage carries a stats snapshot
type StatsMessage struct {
	Type      string                 `json:"type"` // "stats"
	Timestamp time.Time              `json:"timestamp"`
	Stats     pipeline.StatsSnapshot `json:"stats"`
}

// StatusMessage carries a one-line status update, used for fatal recognition
// errors and scanner state changes.
type StatusMessage struct {
	Type      string    `json:"type"` // "status"
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// NewDetectionMessage creates a detection message with a fresh event ID
func NewDetectionMessage(detections []pipeline.Detection) *DetectionMessage {
	if detections == nil {
		detections = make([]pipeline.Detection, 0)
	}
	return &DetectionMessage{
		Type:       "detection",
		EventID:    uuid.NewString(),
		Timestamp:  time.Now(),
		Detections: detections,
	}
}

// NewStatsMessage creates a stats message
func NewStatsMessage(snap pipeline.StatsSnapshot) *StatsMessage {
	return &StatsMessage{
		Type:      "stats",
		Timestamp: time.Now(),
		Stats:     snap,
	}
}

// NewStatusMessage creates a status message
func NewStatusMessage(message string) *StatusMessage {
	return &StatusMessage{
		Type:      "status",
		Timestamp: time.Now(),
		Message:   message,
	}
}
