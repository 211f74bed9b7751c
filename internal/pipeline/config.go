package pipeline

import (
	"fmt"
	"time"
)

// Config holds the construction-time settings of one worker. All
// fields are read once at construction and immutable afterwards.
type Config struct {
	// StreamID names the video stream; it becomes the entity part of
	// every feature cache key written by this worker.
	StreamID string

	// FrameCount and FrameSampleRate come from the temporal model's
	// input layout; the window capacity is their product.
	FrameCount      int
	FrameSampleRate int

	// DetectRate is the target number of predictions per second of
	// video time. The firing interval is 1000/DetectRate milliseconds.
	DetectRate int

	// Mode selects realtime or batch delivery.
	Mode Mode

	// QueueSize bounds the inbound task queue; a full queue blocks the
	// producer. Defaults to 512.
	QueueSize int

	// PollTimeout bounds how long the worker waits on an empty inbound
	// queue before rechecking its stop flag. Defaults to 1 second.
	PollTimeout time.Duration
}

// DefaultConfig returns a batch-mode configuration matching the
// temporal model's training layout: a 64-frame window and one
// prediction per second of video.
func DefaultConfig(streamID string) Config {
	return Config{
		StreamID:        streamID,
		FrameCount:      32,
		FrameSampleRate: 2,
		DetectRate:      1,
		Mode:            ModeBatch,
		QueueSize:       512,
		PollTimeout:     time.Second,
	}
}

// Validate checks the configuration and fills in defaults.
func (c *Config) Validate() error {
	if c.StreamID == "" {
		return fmt.Errorf("stream id is required")
	}
	if c.FrameCount <= 0 {
		return fmt.Errorf("frame count must be positive, got %d", c.FrameCount)
	}
	if c.FrameSampleRate <= 0 {
		return fmt.Errorf("frame sample rate must be positive, got %d", c.FrameSampleRate)
	}
	if c.DetectRate <= 0 || c.DetectRate > 1000 {
		return fmt.Errorf("detect rate must be in [1,1000], got %d", c.DetectRate)
	}
	if c.Mode != ModeRealtime && c.Mode != ModeBatch {
		return fmt.Errorf("unknown mode: %q", c.Mode)
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 512
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = time.Second
	}
	return nil
}

// WindowCapacity is the fixed sliding-window length in frames.
func (c Config) WindowCapacity() int {
	return c.FrameCount * c.FrameSampleRate
}

// Interval is the firing interval in milliseconds of video time.
func (c Config) Interval() int64 {
	return int64(1000 / c.DetectRate)
}
