// Package source feeds recorded streams into the prediction pipeline.
package source

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"

	"actionpipe/internal/pipeline"
)

// JSONLSource replays a recorded stream from a JSONL track file. Each
// line describes one frame:
//
//	{"timestamp": 1250, "frame": "frames/000031.jpg",
//	 "width": 1920, "height": 1080,
//	 "persons": [{"x1":10,"y1":20,"x2":110,"y2":320}],
//	 "scores": [0.97], "track_ids": [4]}
//
// Frame paths are resolved relative to the track file's directory. The
// source pushes an end-of-stream task after the last line.
type JSONLSource struct {
	path string
	root string
}

// NewJSONLSource creates a source for the given track file.
func NewJSONLSource(path string) *JSONLSource {
	return &JSONLSource{
		path: path,
		root: filepath.Dir(path),
	}
}

// Run replays the track file through push, blocking until the file is
// exhausted or ctx is cancelled. push is expected to apply its own
// backpressure.
func (s *JSONLSource) Run(ctx context.Context, push func(pipeline.Task)) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open track file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	frames := 0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !gjson.ValidBytes(line) {
			return fmt.Errorf("line %d: invalid JSON", lineNo)
		}

		task, err := s.parseLine(gjson.ParseBytes(line))
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}

		push(task)
		frames++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read track file: %w", err)
	}

	push(pipeline.Task{EndOfStream: true})
	log.Printf("[JSONLSource] Replayed %d frames from %s", frames, s.path)
	return nil
}

func (s *JSONLSource) parseLine(line gjson.Result) (pipeline.Task, error) {
	framePath := line.Get("frame").String()
	if framePath == "" {
		return pipeline.Task{}, fmt.Errorf("missing frame path")
	}

	data, err := os.ReadFile(filepath.Join(s.root, framePath))
	if err != nil {
		return pipeline.Task{}, fmt.Errorf("read frame: %w", err)
	}

	width := int(line.Get("width").Int())
	height := int(line.Get("height").Int())

	meta := pipeline.Meta{Timestamp: line.Get("timestamp").Int()}
	for _, p := range line.Get("persons").Array() {
		meta.Persons = append(meta.Persons, pipeline.Box{
			X1: float32(p.Get("x1").Float()),
			Y1: float32(p.Get("y1").Float()),
			X2: float32(p.Get("x2").Float()),
			Y2: float32(p.Get("y2").Float()),
		})
	}
	for _, sc := range line.Get("scores").Array() {
		meta.Scores = append(meta.Scores, float32(sc.Float()))
	}
	for _, id := range line.Get("track_ids").Array() {
		meta.TrackIDs = append(meta.TrackIDs, id.Int())
	}

	return pipeline.Task{
		Frame:     &pipeline.FrameData{Data: data, Width: width, Height: height},
		Meta:      meta,
		VideoSize: pipeline.Size{Width: width, Height: height},
	}, nil
}

var _ pipeline.Source = (*JSONLSource)(nil)
