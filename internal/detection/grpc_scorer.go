package detection

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	pb "actionpipe/api/proto/inference/v1"

	"actionpipe/internal/featurecache"
	"actionpipe/internal/pipeline"
)

// GRPCScorer runs feature extraction and action scoring through the
// inference service, persisting extracted features in the cache. At
// scoring time it offers the surrounding cached windows to the model
// as temporal context.
type GRPCScorer struct {
	detector *GRPCDetector // shares the connection
	pool     featurecache.Pool
	timeout  time.Duration

	// contextRadius is how many buckets on each side of the scored one
	// are offered as memory context.
	contextRadius int64
}

// GRPCScorerConfig holds configuration for the gRPC scorer
type GRPCScorerConfig struct {
	Timeout       time.Duration // per-call deadline, default 5s
	ContextRadius int64         // default 8 buckets each side
}

// NewGRPCScorer creates a scorer on the detector's connection.
func NewGRPCScorer(detector *GRPCDetector, pool featurecache.Pool, config GRPCScorerConfig) *GRPCScorer {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if config.ContextRadius <= 0 {
		config.ContextRadius = 8
	}
	return &GRPCScorer{
		detector:      detector,
		pool:          pool,
		timeout:       config.Timeout,
		contextRadius: config.ContextRadius,
	}
}

// Update extracts features for one fired window and stores them under
// the window's cache key. The cache is write-once: a duplicate key is
// surfaced to the caller, not absorbed.
func (gs *GRPCScorer) Update(ctx context.Context, frames []*pipeline.FrameData, persons, objects []pipeline.Box, key featurecache.Key) error {
	ctx, cancel := context.WithTimeout(ctx, gs.timeout)
	defer cancel()

	req := &pb.ExtractRequest{
		StreamId:   key.Stream,
		Bucket:     key.Bucket,
		JpegFrames: make([][]byte, 0, len(frames)),
		Persons:    convertBoxes(persons),
		Objects:    convertBoxes(objects),
	}
	for _, frame := range frames {
		req.JpegFrames = append(req.JpegFrames, frame.Data)
	}

	resp, err := gs.detector.client.ExtractFeatures(ctx, req)
	if err != nil {
		return fmt.Errorf("extract features: %w", err)
	}

	entry := featurecache.Entry{
		Person: resp.PersonFeatures,
		Object: resp.ObjectFeatures,
	}
	if err := gs.pool.Put(ctx, key, entry); err != nil {
		return fmt.Errorf("cache features: %w", err)
	}
	return nil
}

// Score scores the cached features of one window. The key must have
// been written by a prior Update; a miss propagates as
// featurecache.ErrKeyNotFound.
func (gs *GRPCScorer) Score(ctx context.Context, key featurecache.Key, size pipeline.Size) ([]pipeline.ActionDetection, error) {
	ctx, cancel := context.WithTimeout(ctx, gs.timeout)
	defer cancel()

	entry, err := gs.pool.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load features %s: %w", key, err)
	}

	req := &pb.ScoreRequest{
		StreamId: key.Stream,
		Bucket:   key.Bucket,
		Width:    int32(size.Width),
		Height:   int32(size.Height),
		Context: []*pb.MemoryEntry{{
			Bucket:         key.Bucket,
			PersonFeatures: entry.Person,
			ObjectFeatures: entry.Object,
		}},
	}
	req.Context = append(req.Context, gs.memoryContext(ctx, key)...)

	resp, err := gs.detector.client.ScoreActions(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("score actions: %w", err)
	}

	return convertActionDetections(resp.Detections), nil
}

// memoryContext collects cached neighbours of the scored bucket. Gaps
// are expected (empty windows never cache), so misses are skipped.
func (gs *GRPCScorer) memoryContext(ctx context.Context, key featurecache.Key) []*pb.MemoryEntry {
	var entries []*pb.MemoryEntry
	for offset := -gs.contextRadius; offset <= gs.contextRadius; offset++ {
		bucket := key.Bucket + offset
		if offset == 0 || bucket < 0 {
			continue
		}

		neighbour := featurecache.Key{Stream: key.Stream, Bucket: bucket}
		entry, err := gs.pool.Get(ctx, neighbour)
		if err != nil {
			if !errors.Is(err, featurecache.ErrKeyNotFound) {
				log.Printf("[GRPCScorer] Context lookup %s failed: %v", neighbour, err)
			}
			continue
		}
		entries = append(entries, &pb.MemoryEntry{
			Bucket:         bucket,
			PersonFeatures: entry.Person,
			ObjectFeatures: entry.Object,
		})
	}
	return entries
}

func convertBoxes(boxes []pipeline.Box) []*pb.Box {
	converted := make([]*pb.Box, len(boxes))
	for i, b := range boxes {
		converted[i] = &pb.Box{X1: b.X1, Y1: b.Y1, X2: b.X2, Y2: b.Y2}
	}
	return converted
}

func convertActionDetections(detections []*pb.ActionDetection) []pipeline.ActionDetection {
	converted := make([]pipeline.ActionDetection, 0, len(detections))
	for _, det := range detections {
		if det.Bbox == nil {
			continue
		}
		actions := make([]pipeline.ActionScore, len(det.Actions))
		for i, a := range det.Actions {
			actions[i] = pipeline.ActionScore{Label: a.Label, Score: a.Score}
		}
		converted = append(converted, pipeline.ActionDetection{
			BBox:    pipeline.Box{X1: det.Bbox.X1, Y1: det.Bbox.Y1, X2: det.Bbox.X2, Y2: det.Bbox.Y2},
			Actions: actions,
		})
	}
	return converted
}

var _ pipeline.Scorer = (*GRPCScorer)(nil)
