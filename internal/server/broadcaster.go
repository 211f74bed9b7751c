package server

import (
	"context"
	"log"
	"sync"
	"time"

	"actionpipe/internal/pipeline"
	"actionpipe/internal/ws"
)

// Broadcaster drains worker output into the websocket hub. Prediction
// results are polled (the worker's read side never blocks); tracking
// updates get one pump goroutine per stream because that handoff is
// blocking by design.
type Broadcaster struct {
	manager  *pipeline.Manager
	hub      *ws.PredictionHub
	interval time.Duration

	mu     sync.Mutex
	pumped map[string]bool
	wg     sync.WaitGroup
}

// NewBroadcaster creates a broadcaster polling at the given interval.
// An interval of zero defaults to 50ms.
func NewBroadcaster(manager *pipeline.Manager, hub *ws.PredictionHub, interval time.Duration) *Broadcaster {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return &Broadcaster{
		manager:  manager,
		hub:      hub,
		interval: interval,
		pumped:   make(map[string]bool),
	}
}

// Run polls until ctx is cancelled, then waits for the track pumps.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.wg.Wait()
			log.Printf("[Broadcaster] Stopped")
			return
		case <-ticker.C:
			b.poll()
		}
	}
}

func (b *Broadcaster) poll() {
	for _, id := range b.manager.Streams() {
		worker, ok := b.manager.Get(id)
		if !ok {
			continue
		}
		b.ensureTrackPump(id, worker)

		for {
			result := worker.Read()
			if result == nil {
				break
			}
			if result.Final {
				b.hub.BroadcastDone(result.StreamID)
				continue
			}
			b.hub.BroadcastPrediction(ws.NewPredictionMessage(result))
		}
	}
}

// ensureTrackPump starts the blocking track reader for a stream once.
// The pump exits when the worker stops.
func (b *Broadcaster) ensureTrackPump(streamID string, worker *pipeline.Worker) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pumped[streamID] {
		return
	}
	b.pumped[streamID] = true

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			update, ok := worker.ReadTrack()
			if !ok {
				b.mu.Lock()
				delete(b.pumped, streamID)
				b.mu.Unlock()
				return
			}
			b.hub.BroadcastTrack(ws.NewTrackMessage(streamID, update))
		}
	}()
}
