package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actionpipe/internal/pipeline"
)

func writeTrackFile(t *testing.T, lines ...string) string {
	t.Helper()

	dir := t.TempDir()
	for i := 0; i < len(lines); i++ {
		name := fmt.Sprintf("%06d.jpg", i)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte{0xFF, 0xD8, byte(i)}, 0o644))
	}

	path := filepath.Join(dir, "track.jsonl")
	content := ""
	for _, line := range lines {
		content += line + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func collect(t *testing.T, s *JSONLSource) []pipeline.Task {
	t.Helper()

	var tasks []pipeline.Task
	err := s.Run(t.Context(), func(task pipeline.Task) {
		tasks = append(tasks, task)
	})
	require.NoError(t, err)
	return tasks
}

func TestJSONLSource_Replay(t *testing.T) {
	path := writeTrackFile(t,
		`{"timestamp": 100, "frame": "000000.jpg", "width": 640, "height": 480, "persons": [{"x1":10,"y1":20,"x2":110,"y2":320}], "scores": [0.97], "track_ids": [4]}`,
		`{"timestamp": 140, "frame": "000001.jpg", "width": 640, "height": 480}`,
	)

	tasks := collect(t, NewJSONLSource(path))
	require.Len(t, tasks, 3)

	first := tasks[0]
	assert.Equal(t, int64(100), first.Meta.Timestamp)
	assert.Equal(t, pipeline.Size{Width: 640, Height: 480}, first.VideoSize)
	assert.Equal(t, []byte{0xFF, 0xD8, 0x00}, first.Frame.Data)
	require.Len(t, first.Meta.Persons, 1)
	assert.Equal(t, pipeline.Box{X1: 10, Y1: 20, X2: 110, Y2: 320}, first.Meta.Persons[0])
	assert.Equal(t, []int64{4}, first.Meta.TrackIDs)

	assert.Empty(t, tasks[1].Meta.Persons)
	assert.True(t, tasks[2].EndOfStream)
}

func TestJSONLSource_SkipsBlankLines(t *testing.T) {
	path := writeTrackFile(t,
		`{"timestamp": 100, "frame": "000000.jpg", "width": 64, "height": 48}`,
		``,
	)

	tasks := collect(t, NewJSONLSource(path))
	require.Len(t, tasks, 2)
	assert.True(t, tasks[1].EndOfStream)
}

func TestJSONLSource_InvalidJSON(t *testing.T) {
	path := writeTrackFile(t, `{"timestamp": broken`)

	err := NewJSONLSource(path).Run(t.Context(), func(pipeline.Task) {})
	assert.ErrorContains(t, err, "line 1")
}

func TestJSONLSource_MissingFrameFile(t *testing.T) {
	path := writeTrackFile(t, `{"timestamp": 100, "frame": "nope.jpg", "width": 64, "height": 48}`)

	err := NewJSONLSource(path).Run(t.Context(), func(pipeline.Task) {})
	assert.Error(t, err)
}

func TestJSONLSource_CancelledContext(t *testing.T) {
	path := writeTrackFile(t, `{"timestamp": 100, "frame": "000000.jpg", "width": 64, "height": 48}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewJSONLSource(path).Run(ctx, func(pipeline.Task) {})
	assert.ErrorIs(t, err, context.Canceled)
}
