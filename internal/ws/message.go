package ws

import (
	"time"

	"actionpipe/internal/pipeline"
)

// PredictionMessage broadcasts one scored window to stream subscribers
type PredictionMessage struct {
	Type       string                     `json:"type"` // "prediction"
	StreamID   string                     `json:"stream_id"`
	Timestamp  int64                      `json:"timestamp"` // video time in milliseconds
	SentAt     time.Time                  `json:"sent_at"`
	TrackIDs   []int64                    `json:"track_ids,omitempty"`
	Detections []pipeline.ActionDetection `json:"detections"`
}

// NewPredictionMessage wraps one pipeline result for broadcast
func NewPredictionMessage(result *pipeline.Result) *PredictionMessage {
	return &PredictionMessage{
		Type:       "prediction",
		StreamID:   result.StreamID,
		Timestamp:  result.Timestamp,
		SentAt:     time.Now(),
		TrackIDs:   result.TrackIDs,
		Detections: result.Detections,
	}
}

// TrackMessage broadcasts an in-flight tracking update (boxes only,
// before action scores exist for the window)
type TrackMessage struct {
	Type      string         `json:"type"` // "track"
	StreamID  string         `json:"stream_id"`
	Timestamp int64          `json:"timestamp"`
	Boxes     []pipeline.Box `json:"boxes"`
	TrackIDs  []int64        `json:"track_ids,omitempty"`
}

// NewTrackMessage wraps one tracking update for broadcast
func NewTrackMessage(streamID string, update pipeline.TrackUpdate) *TrackMessage {
	return &TrackMessage{
		Type:      "track",
		StreamID:  streamID,
		Timestamp: update.Timestamp,
		Boxes:     update.Boxes,
		TrackIDs:  update.TrackIDs,
	}
}

// DoneMessage signals that a batch stream has flushed every deferred
// prediction; no further messages follow for the stream
type DoneMessage struct {
	Type     string    `json:"type"` // "done"
	StreamID string    `json:"stream_id"`
	SentAt   time.Time `json:"sent_at"`
}

// NewDoneMessage creates the terminal marker for a stream
func NewDoneMessage(streamID string) *DoneMessage {
	return &DoneMessage{
		Type:     "done",
		StreamID: streamID,
		SentAt:   time.Now(),
	}
}
