package pipeline

// Scheduler decides when the window has reached a firing point.
//
// Frame cadence from real sources is not constant (dropped frames,
// variable decode latency), so the trigger is driven by timestamp
// deltas rather than frame counts: the prediction rate then tracks the
// configured detect rate regardless of jitter. Owned and mutated only
// by the worker goroutine.
type Scheduler struct {
	interval  int64 // milliseconds between firings
	lastFired int64
}

// NewScheduler creates a scheduler firing once per interval
// milliseconds of stream time.
func NewScheduler(interval int64) *Scheduler {
	return &Scheduler{interval: interval}
}

// ShouldFire reports whether a firing cycle should run: the window is
// full and the current timestamp is strictly past the last firing
// point plus one interval.
func (s *Scheduler) ShouldFire(w *Window, timestamp int64) bool {
	return w.Full() && timestamp > s.lastFired+s.interval
}

// MarkFired advances the last firing point. Called for every satisfied
// firing condition, including ones skipped for an empty center, so a
// stale window never busy-refires.
func (s *Scheduler) MarkFired(timestamp int64) {
	s.lastFired = timestamp
}

// Restore rolls the last firing point back after a cycle failed before
// any cache write, letting the next frame re-attempt the window.
func (s *Scheduler) Restore(timestamp int64) {
	s.lastFired = timestamp
}

// LastFired returns the timestamp of the most recent firing point.
func (s *Scheduler) LastFired() int64 {
	return s.lastFired
}

// Interval returns the firing interval in milliseconds.
func (s *Scheduler) Interval() int64 {
	return s.interval
}

// Bucket quantizes a timestamp to its interval bucket, the key under
// which features for that firing are cached. Two timestamps inside the
// same interval map to the same bucket.
func (s *Scheduler) Bucket(timestamp int64) int64 {
	return timestamp / s.interval
}
