package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actionpipe/internal/featurecache"
)

// testWorker wires a worker to fakes with a short poll timeout so
// shutdown checks run quickly under test.
func testWorker(t *testing.T, cfg Config) (*Worker, *fakeDetector, *fakeScorer, *featurecache.MemoryPool) {
	t.Helper()

	cfg.PollTimeout = 5 * time.Millisecond
	pool := featurecache.NewMemoryPool()
	detector := &fakeDetector{boxes: []Box{{X1: 1, Y1: 1, X2: 50, Y2: 50}}}
	scorer := newFakeScorer(pool)

	w, err := NewWorker(cfg, detector, scorer, pool, nil)
	require.NoError(t, err)
	t.Cleanup(w.Stop)
	return w, detector, scorer, pool
}

// readResult polls until a result arrives or the deadline passes.
func readResult(t *testing.T, w *Worker, timeout time.Duration) *Result {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if r := w.Read(); r != nil {
			return r
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for a result")
	return nil
}

func TestNewWorker_ValidatesConfig(t *testing.T) {
	pool := featurecache.NewMemoryPool()
	_, err := NewWorker(Config{}, &fakeDetector{}, newFakeScorer(pool), pool, nil)
	assert.Error(t, err)

	_, err = NewWorker(DefaultConfig("s"), nil, newFakeScorer(pool), pool, nil)
	assert.Error(t, err)
}

// Firing threshold scenario: window capacity 4, interval 40ms. The
// window fills at t=30 but nothing may fire until a timestamp strictly
// greater than lastFired+interval arrives.
func TestWorker_ExactFiringThreshold(t *testing.T) {
	cfg := Config{
		StreamID:        "video-1",
		FrameCount:      2,
		FrameSampleRate: 2, // capacity 4
		DetectRate:      25, // interval 40ms
		Mode:            ModeRealtime,
	}
	w, _, scorer, pool := testWorker(t, cfg)
	w.Start()

	for _, ts := range []int64{0, 10, 20, 30} {
		w.AddTask(frameTask(ts, 1))
	}
	// t=40 equals lastFired(0)+interval(40): must not fire.
	w.AddTask(frameTask(40, 1))

	assert.Never(t, func() bool { return pool.Len() > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	// t=41 is strictly past the threshold: exactly one firing, cached
	// under bucket = centerTimestamp/interval.
	w.AddTask(frameTask(41, 1))

	result := readResult(t, w, time.Second)
	assert.Equal(t, int64(40), result.Timestamp) // center of [20,30,40,41]
	assert.Equal(t, 1, pool.Len())

	keys := scorer.updateKeys()
	require.Len(t, keys, 1)
	assert.Equal(t, featurecache.Key{Stream: "video-1", Bucket: 1}, keys[0])
}

func TestWorker_RealtimeOneResultPerFiring(t *testing.T) {
	cfg := Config{
		StreamID:        "video-1",
		FrameCount:      1,
		FrameSampleRate: 1, // capacity 1: every frame is its own window
		DetectRate:      10, // interval 100ms
		Mode:            ModeRealtime,
	}
	w, _, _, _ := testWorker(t, cfg)
	w.Start()

	firings := []int64{150, 300, 450}
	for _, ts := range firings {
		w.AddTask(frameTask(ts, 2))
	}

	for _, ts := range firings {
		result := readResult(t, w, time.Second)
		assert.Equal(t, ts, result.Timestamp)
		assert.False(t, result.Final)
		assert.Len(t, result.Detections, 2)
		assert.Equal(t, []int64{1, 2}, result.TrackIDs)
	}
	assert.Nil(t, w.Read())
}

func TestWorker_BatchDefersUntilFlush(t *testing.T) {
	cfg := Config{
		StreamID:        "video-1",
		FrameCount:      1,
		FrameSampleRate: 1,
		DetectRate:      10,
		Mode:            ModeBatch,
	}
	w, _, _, pool := testWorker(t, cfg)
	w.Start()

	firings := []int64{150, 300, 450}
	for _, ts := range firings {
		w.AddTask(frameTask(ts, 1))
	}

	// Features are computed eagerly but no prediction leaves the worker.
	assert.Eventually(t, func() bool { return pool.Len() == len(firings) },
		time.Second, time.Millisecond)
	assert.Never(t, func() bool { return w.Read() != nil }, 50*time.Millisecond, 5*time.Millisecond)

	w.AddTask(Task{EndOfStream: true})
	require.NoError(t, w.ComputePrediction())

	for _, ts := range firings {
		result := readResult(t, w, time.Second)
		assert.Equal(t, ts, result.Timestamp)
		assert.False(t, result.Final)
	}

	final := readResult(t, w, time.Second)
	assert.True(t, final.Final)
	assert.Nil(t, w.Read())
}

// Jittered firing timestamps must still flush in ascending timestamp
// order. Records are injected directly to simulate out-of-order
// capture timestamps that arrived chronologically.
func TestWorker_FlushOrdersByTimestamp(t *testing.T) {
	cfg := Config{
		StreamID:        "video-1",
		FrameCount:      1,
		FrameSampleRate: 1,
		DetectRate:      40, // interval 25ms: buckets 4, 10, 7
		Mode:            ModeBatch,
		PollTimeout:     5 * time.Millisecond,
	}
	pool := featurecache.NewMemoryPool()
	scorer := newFakeScorer(pool)
	w, err := NewWorker(cfg, &fakeDetector{}, scorer, pool, nil)
	require.NoError(t, err)

	size := Size{Width: 640, Height: 480}
	for _, ts := range []int64{100, 250, 175} {
		key := featurecache.Key{Stream: "video-1", Bucket: ts / 25}
		require.NoError(t, scorer.Update(t.Context(), nil, []Box{{X2: 10, Y2: 10}}, nil, key))
		w.pending = append(w.pending, FiringRecord{Timestamp: ts, VideoSize: size})
	}

	require.NoError(t, w.flush())

	var got []int64
	for {
		r := w.out.pop()
		require.NotNil(t, r)
		if r.Final {
			break
		}
		got = append(got, r.Timestamp)
	}
	assert.Equal(t, []int64{100, 175, 250}, got)
}

func TestWorker_EmptyCenterSkipsButAdvances(t *testing.T) {
	cfg := Config{
		StreamID:        "video-1",
		FrameCount:      2,
		FrameSampleRate: 2,
		DetectRate:      25,
		Mode:            ModeRealtime,
	}
	w, _, _, pool := testWorker(t, cfg)
	w.Start()

	for _, ts := range []int64{0, 10, 20, 30, 41} {
		w.AddTask(frameTask(ts, 0)) // no person boxes anywhere
	}

	assert.Eventually(t, func() bool { return w.Stats().EmptySkips == 1 },
		time.Second, time.Millisecond)

	stats := w.Stats()
	assert.Equal(t, int64(41), stats.LastFired) // advanced despite the skip
	assert.Equal(t, uint64(0), stats.Firings)
	assert.Equal(t, 0, pool.Len())
	assert.Nil(t, w.Read())
}

func TestWorker_ComputePredictionRealtimeFails(t *testing.T) {
	w, _, _, _ := testWorker(t, Config{
		StreamID:        "video-1",
		FrameCount:      1,
		FrameSampleRate: 1,
		DetectRate:      1,
		Mode:            ModeRealtime,
	})

	err := w.ComputePrediction()
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestWorker_DetectorErrorAbortsCycleAndRollsBack(t *testing.T) {
	cfg := Config{
		StreamID:        "video-1",
		FrameCount:      1,
		FrameSampleRate: 1,
		DetectRate:      10,
		Mode:            ModeRealtime,
	}
	w, detector, _, pool := testWorker(t, cfg)
	detector.failOn = errors.New("model backend unavailable")
	w.Start()

	w.AddTask(frameTask(150, 1))

	assert.Eventually(t, func() bool { return w.Stats().CycleErrors == 1 },
		time.Second, time.Millisecond)

	// No cache write happened, so lastFired was rolled back and the
	// next frame may re-attempt.
	stats := w.Stats()
	assert.Equal(t, int64(0), stats.LastFired)
	assert.Equal(t, 0, pool.Len())
	assert.NoError(t, w.Err())

	detector.mu.Lock()
	detector.failOn = nil
	detector.mu.Unlock()

	w.AddTask(frameTask(151, 1))
	result := readResult(t, w, time.Second)
	assert.Equal(t, int64(151), result.Timestamp)
}

func TestWorker_DuplicateKeyIsFatal(t *testing.T) {
	cfg := Config{
		StreamID:        "video-1",
		FrameCount:      1,
		FrameSampleRate: 1,
		DetectRate:      10,
		Mode:            ModeBatch,
	}
	w, _, scorer, _ := testWorker(t, cfg)
	scorer.updateErr = featurecache.ErrDuplicateKey
	w.Start()

	w.AddTask(frameTask(150, 1))

	assert.Eventually(t, func() bool { return w.Err() != nil },
		time.Second, time.Millisecond)
	assert.ErrorIs(t, w.Err(), featurecache.ErrDuplicateKey)
}

func TestWorker_FlushMissingKeyIsFatal(t *testing.T) {
	cfg := Config{
		StreamID:        "video-1",
		FrameCount:      1,
		FrameSampleRate: 1,
		DetectRate:      10,
		Mode:            ModeBatch,
		PollTimeout:     5 * time.Millisecond,
	}
	pool := featurecache.NewMemoryPool()
	w, err := NewWorker(cfg, &fakeDetector{}, newFakeScorer(pool), pool, nil)
	require.NoError(t, err)
	t.Cleanup(w.Stop)

	// A record whose bucket was never updated: ordering bug.
	w.pending = []FiringRecord{{Timestamp: 500, VideoSize: Size{Width: 10, Height: 10}}}
	w.Start()

	w.AddTask(Task{EndOfStream: true})
	require.NoError(t, w.ComputePrediction())

	assert.Eventually(t, func() bool { return w.Err() != nil },
		time.Second, time.Millisecond)
	assert.ErrorIs(t, w.Err(), featurecache.ErrKeyNotFound)
}

func TestWorker_IdempotentShutdown(t *testing.T) {
	w, _, _, _ := testWorker(t, Config{
		StreamID:        "video-1",
		FrameCount:      1,
		FrameSampleRate: 1,
		DetectRate:      10,
		Mode:            ModeRealtime,
	})
	w.Start()

	w.Stop()
	w.Stop() // second stop must not panic or hang

	// After stop, producing and consuming are no-ops.
	w.AddTask(frameTask(100, 1))
	assert.Nil(t, w.Read())
	_, ok := w.ReadTrack()
	assert.False(t, ok)
}

func TestWorker_TrackHandoff(t *testing.T) {
	w, _, _, _ := testWorker(t, Config{
		StreamID:        "video-1",
		FrameCount:      1,
		FrameSampleRate: 1,
		DetectRate:      10,
		Mode:            ModeRealtime,
	})
	w.Start()

	first := TrackUpdate{Timestamp: 1, TrackIDs: []int64{7}}
	second := TrackUpdate{Timestamp: 2, TrackIDs: []int64{8}}

	w.PushTrack(first)
	go w.PushTrack(second) // waits until the first is consumed

	got, ok := w.ReadTrack()
	require.True(t, ok)
	assert.Equal(t, first, got)

	got, ok = w.ReadTrack()
	require.True(t, ok)
	assert.Equal(t, second, got)
}
