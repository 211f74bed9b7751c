package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actionpipe/internal/featurecache"
)

func testManager(t *testing.T) *Manager {
	t.Helper()

	pool := featurecache.NewMemoryPool()
	m := NewManager(&fakeDetector{}, newFakeScorer(pool), pool, nil)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func managerConfig(streamID string, mode Mode) Config {
	cfg := DefaultConfig(streamID)
	cfg.Mode = mode
	cfg.PollTimeout = 5 * time.Millisecond
	return cfg
}

func TestManager_StartStream(t *testing.T) {
	m := testManager(t)

	id, err := m.StartStream(managerConfig("video-1", ModeBatch))
	require.NoError(t, err)
	assert.Equal(t, "video-1", id)

	worker, ok := m.Get(id)
	require.True(t, ok)
	assert.Equal(t, ModeBatch, worker.Mode())
}

func TestManager_StartStreamGeneratesID(t *testing.T) {
	m := testManager(t)

	id, err := m.StartStream(managerConfig("", ModeRealtime))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, ok := m.Get(id)
	assert.True(t, ok)
}

func TestManager_StartStreamRejectsDuplicate(t *testing.T) {
	m := testManager(t)

	_, err := m.StartStream(managerConfig("video-1", ModeBatch))
	require.NoError(t, err)

	_, err = m.StartStream(managerConfig("video-1", ModeRealtime))
	assert.Error(t, err)
}

func TestManager_StopStream(t *testing.T) {
	m := testManager(t)

	id, err := m.StartStream(managerConfig("video-1", ModeBatch))
	require.NoError(t, err)

	require.NoError(t, m.StopStream(id))
	_, ok := m.Get(id)
	assert.False(t, ok)

	assert.Error(t, m.StopStream(id))
}

func TestManager_FlushRespectsMode(t *testing.T) {
	m := testManager(t)

	_, err := m.StartStream(managerConfig("rt", ModeRealtime))
	require.NoError(t, err)
	_, err = m.StartStream(managerConfig("batch", ModeBatch))
	require.NoError(t, err)

	assert.ErrorIs(t, m.Flush("rt"), ErrInvalidMode)
	assert.NoError(t, m.Flush("batch"))
	assert.Error(t, m.Flush("missing"))
}

func TestManager_Stats(t *testing.T) {
	m := testManager(t)

	_, err := m.StartStream(managerConfig("video-1", ModeBatch))
	require.NoError(t, err)

	stats := m.Stats("video-1")
	require.NotNil(t, stats)
	assert.Equal(t, "video-1", stats.StreamID)
	assert.Equal(t, ModeBatch, stats.Mode)

	assert.Nil(t, m.Stats("missing"))
}

func TestManager_Streams(t *testing.T) {
	m := testManager(t)

	for _, id := range []string{"a", "b", "c"} {
		_, err := m.StartStream(managerConfig(id, ModeBatch))
		require.NoError(t, err)
	}

	assert.ElementsMatch(t, []string{"a", "b", "c"}, m.Streams())

	require.NoError(t, m.Close())
	assert.Empty(t, m.Streams())
}
