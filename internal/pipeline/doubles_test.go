package pipeline

import (
	"context"
	"fmt"
	"sync"

	"actionpipe/internal/featurecache"
)

// fakeDetector returns a canned set of object boxes and counts calls.
type fakeDetector struct {
	mu      sync.Mutex
	boxes   []Box
	detects int
	failOn  error // returned by Detect when set
}

func (d *fakeDetector) Name() string    { return "fake" }
func (d *fakeDetector) IsHealthy() bool { return true }
func (d *fakeDetector) Close() error    { return nil }

func (d *fakeDetector) Preprocess(frame *FrameData) ([]byte, error) {
	return frame.Data, nil
}

func (d *fakeDetector) Detect(ctx context.Context, input []byte, dims Size) ([]Box, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failOn != nil {
		return nil, d.failOn
	}
	d.detects++
	return d.boxes, nil
}

func (d *fakeDetector) detectCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.detects
}

// fakeScorer writes deterministic features through the real pool (so
// write-once violations surface) and scores one detection per person
// recorded at update time.
type fakeScorer struct {
	mu        sync.Mutex
	pool      featurecache.Pool
	persons   map[featurecache.Key]int
	updates   []featurecache.Key
	scoreErr  error // returned by Score when set
	updateErr error // returned by Update when set
}

func newFakeScorer(pool featurecache.Pool) *fakeScorer {
	return &fakeScorer{
		pool:    pool,
		persons: make(map[featurecache.Key]int),
	}
}

func (s *fakeScorer) Update(ctx context.Context, frames []*FrameData, persons, objects []Box, key featurecache.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}

	entry := featurecache.Entry{
		Person: []byte(fmt.Sprintf("p-%d", key.Bucket)),
		Object: []byte(fmt.Sprintf("o-%d", key.Bucket)),
	}
	if err := s.pool.Put(ctx, key, entry); err != nil {
		return err
	}
	s.persons[key] = len(persons)
	s.updates = append(s.updates, key)
	return nil
}

func (s *fakeScorer) Score(ctx context.Context, key featurecache.Key, size Size) ([]ActionDetection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scoreErr != nil {
		return nil, s.scoreErr
	}

	if _, err := s.pool.Get(ctx, key); err != nil {
		return nil, err
	}

	detections := make([]ActionDetection, s.persons[key])
	for i := range detections {
		detections[i] = ActionDetection{
			BBox:    Box{X2: float32(size.Width), Y2: float32(size.Height)},
			Actions: []ActionScore{{Label: "stand", Score: 0.9}},
		}
	}
	return detections, nil
}

func (s *fakeScorer) updateKeys() []featurecache.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]featurecache.Key, len(s.updates))
	copy(keys, s.updates)
	return keys
}

var (
	_ Detector = (*fakeDetector)(nil)
	_ Scorer   = (*fakeScorer)(nil)
)

// frameTask builds a task with n person boxes at the given timestamp.
func frameTask(timestamp int64, nPersons int) Task {
	meta := Meta{Timestamp: timestamp}
	for i := 0; i < nPersons; i++ {
		meta.Persons = append(meta.Persons, Box{X1: 10, Y1: 10, X2: 100, Y2: 200})
		meta.Scores = append(meta.Scores, 0.95)
		meta.TrackIDs = append(meta.TrackIDs, int64(i+1))
	}
	return Task{
		Frame:     &FrameData{Data: []byte{0xFF, 0xD8, 0xFF, 0xD9}, Width: 640, Height: 480},
		Meta:      meta,
		VideoSize: Size{Width: 640, Height: 480},
	}
}
