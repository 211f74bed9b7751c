package pipeline

import (
	"context"

	"actionpipe/internal/featurecache"
)

// Detector is the object-detection collaborator. The worker calls it
// once per firing cycle on the window's center frame to collect object
// boxes for the scorer's interaction structure.
type Detector interface {
	// Name returns the detector identifier (e.g., "yolo")
	Name() string

	// IsHealthy returns true if the detector is operational
	IsHealthy() bool

	// Preprocess converts a raw frame into the detector's input encoding
	Preprocess(frame *FrameData) ([]byte, error)

	// Detect runs detection on a preprocessed frame and returns object
	// boxes in pixel coordinates of dims. May return an empty slice.
	Detect(ctx context.Context, input []byte, dims Size) ([]Box, error)

	// Close releases detector resources
	Close() error
}

// Scorer is the temporal action-scoring collaborator. Update ingests a
// window of frames plus boxes and writes the resulting features into
// the feature cache under key; Score reads cached features (the given
// key plus any nearby buckets already cached) and produces per-person
// action scores resized to size.
//
// Score requires a prior successful Update for the same key and fails
// with featurecache.ErrKeyNotFound otherwise.
type Scorer interface {
	Update(ctx context.Context, frames []*FrameData, persons, objects []Box, key featurecache.Key) error
	Score(ctx context.Context, key featurecache.Key, size Size) ([]ActionDetection, error)
}

// Source delivers tasks into a worker until the stream is exhausted,
// then emits one end-of-stream task.
type Source interface {
	// Run pushes every task to push, blocking until the stream ends or
	// ctx is canceled. Implementations must finish with an
	// EndOfStream task on success.
	Run(ctx context.Context, push func(Task)) error
}
