package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"actionpipe/internal/featurecache"
	"actionpipe/internal/metrics"
)

// ErrInvalidMode is returned when a deferred flush is requested from a
// realtime worker. Realtime mode never defers, so the call is a
// programming error.
var ErrInvalidMode = errors.New("pipeline: compute prediction not available in realtime mode")

// Worker runs the prediction loop for a single video stream: it drains
// the inbound queue into the sliding window, fires update/score cycles
// at the configured interval, and delivers results through the
// outbound queue either immediately (realtime) or after an explicit
// flush (batch).
//
// All loop state (window, scheduler, pending records) is owned by the
// worker goroutine; other goroutines interact only through the queues
// and the two atomic flags.
type Worker struct {
	cfg      Config
	detector Detector
	scorer   Scorer
	pool     featurecache.Pool
	metrics  *metrics.Metrics

	window  *Window
	sched   *Scheduler
	pending []FiringRecord

	inbound chan Task
	track   chan TrackUpdate
	out     *resultQueue

	stopped  atomic.Bool
	taskDone atomic.Bool
	started  atomic.Bool
	done     chan struct{}

	errMu   sync.Mutex
	termErr error

	statsMu sync.RWMutex
	stats   WorkerStats
}

// NewWorker creates a worker. The pool is the cache the scorer writes
// into; the worker only consults it for stats. m may be nil to disable
// instrumentation.
func NewWorker(cfg Config, detector Detector, scorer Scorer, pool featurecache.Pool, m *metrics.Metrics) (*Worker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if detector == nil || scorer == nil || pool == nil {
		return nil, fmt.Errorf("detector, scorer and pool are required")
	}

	return &Worker{
		cfg:      cfg,
		detector: detector,
		scorer:   scorer,
		pool:     pool,
		metrics:  m,
		window:   NewWindow(cfg.WindowCapacity()),
		sched:    NewScheduler(cfg.Interval()),
		inbound:  make(chan Task, cfg.QueueSize),
		track:    make(chan TrackUpdate, 1),
		out:      newResultQueue(),
		done:     make(chan struct{}),
		stats: WorkerStats{
			StreamID: cfg.StreamID,
			Mode:     cfg.Mode,
		},
	}, nil
}

// Start launches the worker goroutine. Calling Start twice is a no-op.
func (w *Worker) Start() {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run()
	log.Printf("[Worker] Started stream %s (mode: %s, window: %d, interval: %dms)",
		w.cfg.StreamID, w.cfg.Mode, w.window.Cap(), w.sched.Interval())
}

// AddTask enqueues one inbound task, blocking while the queue is full
// (backpressure on the producer). After Stop it is a no-op.
func (w *Worker) AddTask(task Task) {
	if w.stopped.Load() {
		return
	}
	select {
	case w.inbound <- task:
	case <-w.done:
	}
}

// PushTrack hands a tracking result to the render side. The handoff
// holds at most one outstanding update, so this blocks until the
// previous one was consumed.
func (w *Worker) PushTrack(update TrackUpdate) {
	if w.stopped.Load() {
		return
	}
	select {
	case w.track <- update:
	case <-w.done:
	}
}

// ReadTrack blocks for the next tracking result. Returns false once
// the worker has stopped.
func (w *Worker) ReadTrack() (TrackUpdate, bool) {
	if w.stopped.Load() {
		return TrackUpdate{}, false
	}
	select {
	case update := <-w.track:
		return update, true
	case <-w.done:
		return TrackUpdate{}, false
	}
}

// Read returns the next prediction result, or nil when none is ready
// or the worker has stopped. Never blocks; the consumer polls.
func (w *Worker) Read() *Result {
	if w.stopped.Load() {
		return nil
	}
	return w.out.pop()
}

// ComputePrediction triggers the deferred scoring pass of a batch
// worker. The flush itself runs on the worker goroutine once the
// end-of-stream sentinel has been observed. Fails with ErrInvalidMode
// on a realtime worker.
func (w *Worker) ComputePrediction() error {
	if w.cfg.Mode == ModeRealtime {
		return ErrInvalidMode
	}
	w.taskDone.Store(true)
	return nil
}

// Stop signals the worker to exit, joins it, and drains the inbound
// and handoff queues. Consumers should drain Read before stopping;
// pending results are released. Safe to call more than once.
func (w *Worker) Stop() {
	w.stopped.Store(true)
	if w.started.Load() {
		<-w.done
	}
	w.drainQueues()
}

// Err returns the invariant violation that terminated the worker, if
// any.
func (w *Worker) Err() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.termErr
}

// Stats returns a copy of the worker's counters.
func (w *Worker) Stats() WorkerStats {
	w.statsMu.RLock()
	stats := w.stats
	w.statsMu.RUnlock()

	stats.CacheEntries = w.pool.Len()
	return stats
}

// Mode returns the worker's delivery mode.
func (w *Worker) Mode() Mode {
	return w.cfg.Mode
}

// run is the worker's main loop.
//
// Each iteration rechecks the stop flag, runs the deferred flush when
// both the end-of-stream sentinel and the flush trigger have been
// seen, then polls the inbound queue with a bounded timeout so the
// stop check is never starved.
func (w *Worker) run() {
	defer close(w.done)

	drained := false

	for {
		if w.stopped.Load() {
			log.Printf("[Worker] Stream %s stopped", w.cfg.StreamID)
			return
		}

		if w.taskDone.Load() && drained {
			log.Printf("[Worker] Stream %s input exhausted, flushing %d deferred predictions",
				w.cfg.StreamID, len(w.pending))
			if err := w.flush(); err != nil {
				w.fail(err)
				return
			}
			w.taskDone.Store(false)
		}

		if w.metrics != nil {
			w.metrics.InboundQueueDepth.WithLabelValues(w.cfg.StreamID).Set(float64(len(w.inbound)))
		}

		select {
		case task := <-w.inbound:
			if task.EndOfStream {
				drained = true
				continue
			}
			if err := w.handleTask(task); err != nil {
				w.fail(err)
				return
			}
		case <-time.After(w.cfg.PollTimeout):
		}
	}
}

// handleTask pushes one frame into the window and runs a firing cycle
// when the scheduler says so. Returns an error only for invariant
// violations that must kill the worker; collaborator failures are
// logged and absorbed.
func (w *Worker) handleTask(task Task) error {
	w.window.Push(task.Frame, task.Meta)

	w.statsMu.Lock()
	w.stats.FramesIn++
	w.statsMu.Unlock()
	if w.metrics != nil {
		w.metrics.FramesTotal.WithLabelValues(w.cfg.StreamID).Inc()
	}

	timestamp := task.Meta.Timestamp
	if !w.sched.ShouldFire(w.window, timestamp) {
		return nil
	}

	prevFired := w.sched.LastFired()
	w.sched.MarkFired(timestamp)
	w.setLastFired(timestamp)

	frame, center := w.window.Center()
	if len(center.Persons) == 0 {
		// Nobody at the detection point: skip the cycle but keep
		// lastFired advanced so the same stale window cannot refire.
		w.statsMu.Lock()
		w.stats.EmptySkips++
		w.statsMu.Unlock()
		if w.metrics != nil {
			w.metrics.EmptyWindowSkipsTotal.WithLabelValues(w.cfg.StreamID).Inc()
		}
		return nil
	}

	updated, err := w.fire(task.VideoSize, frame, center)
	if err != nil {
		if isFatal(err) {
			return err
		}

		w.statsMu.Lock()
		w.stats.CycleErrors++
		w.statsMu.Unlock()
		if w.metrics != nil {
			stage := "score"
			if !updated {
				stage = "update"
			}
			w.metrics.CycleErrorsTotal.WithLabelValues(w.cfg.StreamID, stage).Inc()
		}
		log.Printf("[Worker] Stream %s: firing cycle at t=%dms failed: %v", w.cfg.StreamID, timestamp, err)

		if !updated {
			// Nothing was cached, so the window may be re-attempted by
			// the next frame.
			w.sched.Restore(prevFired)
			w.setLastFired(prevFired)
		}
		return nil
	}

	w.statsMu.Lock()
	w.stats.Firings++
	w.statsMu.Unlock()
	if w.metrics != nil {
		w.metrics.FiringsTotal.WithLabelValues(w.cfg.StreamID).Inc()
		w.metrics.CacheEntries.Set(float64(w.pool.Len()))
	}
	return nil
}

// fire runs one update(+score) cycle for the window's center entry.
// The bool reports whether the feature update completed (and therefore
// whether the cache holds an entry for this bucket).
func (w *Worker) fire(videoSize Size, frame *FrameData, center Meta) (bool, error) {
	ctx := context.Background()
	key := featurecache.Key{Stream: w.cfg.StreamID, Bucket: w.sched.Bucket(center.Timestamp)}

	input, err := w.detector.Preprocess(frame)
	if err != nil {
		return false, fmt.Errorf("preprocess: %w", err)
	}

	objects, err := w.detector.Detect(ctx, input, Size{Width: frame.Width, Height: frame.Height})
	if err != nil {
		return false, fmt.Errorf("detect: %w", err)
	}
	objects = ClipBoxes(objects, videoSize)
	persons := ClipBoxes(center.Persons, videoSize)

	if err := w.scorer.Update(ctx, w.window.Frames(), persons, objects, key); err != nil {
		return false, fmt.Errorf("update features: %w", err)
	}

	if w.cfg.Mode == ModeRealtime {
		detections, err := w.scorer.Score(ctx, key, videoSize)
		if err != nil {
			return true, fmt.Errorf("score: %w", err)
		}
		w.out.push(&Result{
			StreamID:   w.cfg.StreamID,
			Timestamp:  center.Timestamp,
			TrackIDs:   center.TrackIDs,
			Detections: detections,
		})
		return true, nil
	}

	w.pending = append(w.pending, FiringRecord{
		Timestamp: center.Timestamp,
		VideoSize: videoSize,
		TrackIDs:  center.TrackIDs,
	})
	w.statsMu.Lock()
	w.stats.PendingRecords = len(w.pending)
	w.statsMu.Unlock()
	return true, nil
}

// flush scores every deferred firing record in ascending timestamp
// order and finishes with the terminal done marker. A missing cache
// key here is an ordering bug and kills the worker.
func (w *Worker) flush() error {
	ctx := context.Background()
	start := time.Now()

	records := w.pending
	w.pending = nil
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp < records[j].Timestamp
	})

	for _, rec := range records {
		key := featurecache.Key{Stream: w.cfg.StreamID, Bucket: w.sched.Bucket(rec.Timestamp)}
		detections, err := w.scorer.Score(ctx, key, rec.VideoSize)
		if err != nil {
			if isFatal(err) {
				return fmt.Errorf("flush at t=%dms: %w", rec.Timestamp, err)
			}
			log.Printf("[Worker] Stream %s: flush scoring at t=%dms failed: %v", w.cfg.StreamID, rec.Timestamp, err)
			w.statsMu.Lock()
			w.stats.CycleErrors++
			w.statsMu.Unlock()
			continue
		}
		w.out.push(&Result{
			StreamID:   w.cfg.StreamID,
			Timestamp:  rec.Timestamp,
			TrackIDs:   rec.TrackIDs,
			Detections: detections,
		})
	}

	w.out.push(&Result{StreamID: w.cfg.StreamID, Final: true})

	w.statsMu.Lock()
	w.stats.PendingRecords = 0
	w.statsMu.Unlock()
	if w.metrics != nil {
		w.metrics.FlushRecords.Set(float64(len(records)))
		w.metrics.FlushSeconds.Observe(time.Since(start).Seconds())
	}
	log.Printf("[Worker] Stream %s: flush done (%d predictions)", w.cfg.StreamID, len(records))
	return nil
}

// fail records an invariant violation and stops the worker.
func (w *Worker) fail(err error) {
	w.errMu.Lock()
	if w.termErr == nil {
		w.termErr = err
	}
	w.errMu.Unlock()
	w.stopped.Store(true)
	log.Printf("[Worker] Stream %s terminated: %v", w.cfg.StreamID, err)
}

func (w *Worker) setLastFired(timestamp int64) {
	w.statsMu.Lock()
	w.stats.LastFired = timestamp
	w.statsMu.Unlock()
}

// drainQueues empties the inbound and handoff queues so producers
// blocked on them are released and held frames can be collected.
func (w *Worker) drainQueues() {
	for {
		select {
		case <-w.inbound:
		case <-w.track:
		default:
			w.out.clear()
			return
		}
	}
}

// isFatal reports whether err is one of the invariant violations that
// must terminate the worker rather than abort a single cycle.
func isFatal(err error) bool {
	return errors.Is(err, featurecache.ErrDuplicateKey) ||
		errors.Is(err, featurecache.ErrKeyNotFound) ||
		errors.Is(err, ErrInvalidMode)
}
