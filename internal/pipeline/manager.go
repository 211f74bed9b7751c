package pipeline

import (
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"actionpipe/internal/featurecache"
	"actionpipe/internal/metrics"
)

// Manager owns the prediction workers, one per video stream. The
// detector, scorer and feature cache are shared: cache keys carry the
// stream id, so streams never collide.
type Manager struct {
	mu      sync.RWMutex
	workers map[string]*Worker

	detector Detector
	scorer   Scorer
	pool     featurecache.Pool
	metrics  *metrics.Metrics
}

// NewManager creates an empty manager.
func NewManager(detector Detector, scorer Scorer, pool featurecache.Pool, m *metrics.Metrics) *Manager {
	return &Manager{
		workers:  make(map[string]*Worker),
		detector: detector,
		scorer:   scorer,
		pool:     pool,
		metrics:  m,
	}
}

// StartStream creates and starts a worker for a stream. An empty
// StreamID in cfg gets a generated one. Returns the stream id.
func (m *Manager) StartStream(cfg Config) (string, error) {
	if cfg.StreamID == "" {
		cfg.StreamID = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.workers[cfg.StreamID]; exists {
		return "", fmt.Errorf("worker already exists for stream %s", cfg.StreamID)
	}

	worker, err := NewWorker(cfg, m.detector, m.scorer, m.pool, m.metrics)
	if err != nil {
		return "", fmt.Errorf("failed to create worker: %w", err)
	}

	m.workers[cfg.StreamID] = worker
	worker.Start()

	log.Printf("[Manager] Started stream %s (mode: %s)", cfg.StreamID, cfg.Mode)
	return cfg.StreamID, nil
}

// StopStream stops and removes the worker for a stream.
func (m *Manager) StopStream(streamID string) error {
	m.mu.Lock()
	worker, exists := m.workers[streamID]
	if !exists {
		m.mu.Unlock()
		return fmt.Errorf("worker not found for stream %s", streamID)
	}
	delete(m.workers, streamID)
	m.mu.Unlock()

	worker.Stop()
	log.Printf("[Manager] Stopped stream %s", streamID)
	return nil
}

// Get returns the worker for a stream.
func (m *Manager) Get(streamID string) (*Worker, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	worker, ok := m.workers[streamID]
	return worker, ok
}

// Flush triggers the deferred prediction pass of a batch stream.
func (m *Manager) Flush(streamID string) error {
	worker, ok := m.Get(streamID)
	if !ok {
		return fmt.Errorf("worker not found for stream %s", streamID)
	}
	return worker.ComputePrediction()
}

// Stats returns counters for a stream, or nil if unknown.
func (m *Manager) Stats(streamID string) *WorkerStats {
	worker, ok := m.Get(streamID)
	if !ok {
		return nil
	}
	stats := worker.Stats()
	return &stats
}

// Streams returns the ids of all active streams.
func (m *Manager) Streams() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.workers))
	for id := range m.workers {
		ids = append(ids, id)
	}
	return ids
}

// Close stops every worker.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, worker := range m.workers {
		worker.Stop()
		delete(m.workers, id)
	}
	log.Printf("[Manager] Closed all streams")
	return nil
}
