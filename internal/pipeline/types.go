package pipeline

// Mode selects how the worker delivers predictions
type Mode string

const (
	// ModeRealtime - score immediately after every feature update
	ModeRealtime Mode = "realtime"
	// ModeBatch - defer all scoring until the input stream is exhausted,
	// then flush in timestamp order on an explicit trigger
	ModeBatch Mode = "batch"
)

// Size is a frame size in pixels
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Box is an axis-aligned rectangle in pixel coordinates (xyxy)
type Box struct {
	X1 float32 `json:"x1"` // Left
	Y1 float32 `json:"y1"` // Top
	X2 float32 `json:"x2"` // Right
	Y2 float32 `json:"y2"` // Bottom
}

// Clip returns the box clamped to the given frame size.
func (b Box) Clip(size Size) Box {
	w, h := float32(size.Width), float32(size.Height)
	clamp := func(v, max float32) float32 {
		if v < 0 {
			return 0
		}
		if v > max {
			return max
		}
		return v
	}
	return Box{
		X1: clamp(b.X1, w),
		Y1: clamp(b.Y1, h),
		X2: clamp(b.X2, w),
		Y2: clamp(b.Y2, h),
	}
}

// ClipBoxes clips every box to the given frame size.
func ClipBoxes(boxes []Box, size Size) []Box {
	clipped := make([]Box, len(boxes))
	for i, b := range boxes {
		clipped[i] = b.Clip(size)
	}
	return clipped
}

// FrameData represents one captured video frame
type FrameData struct {
	Data   []byte // JPEG frame data
	Width  int    // Frame width
	Height int    // Frame height
}

// Meta is the per-frame detection metadata carried alongside a frame in
// the sliding window: tracker output for the people visible in it.
type Meta struct {
	Timestamp int64 // capture time in milliseconds
	Persons   []Box
	Scores    []float32
	TrackIDs  []int64
}

// Task is one unit of inbound work: a frame with its tracker metadata,
// or the end-of-stream sentinel.
type Task struct {
	Frame       *FrameData
	Meta        Meta
	VideoSize   Size
	EndOfStream bool
}

// TrackUpdate is a single in-flight tracking result handed from the
// upstream tracker to whoever renders it. The handoff queue has
// capacity 1 so the producer waits for the previous update to be
// consumed.
type TrackUpdate struct {
	Timestamp int64
	Boxes     []Box
	TrackIDs  []int64
}

// ActionScore is one scored action label for a person
type ActionScore struct {
	Label string  `json:"label"`
	Score float32 `json:"score"`
}

// ActionDetection is a person box with its action scores, resized to
// the video size requested at scoring time
type ActionDetection struct {
	BBox    Box           `json:"bbox"`
	Actions []ActionScore `json:"actions"`
}

// Result is one outbound prediction, or the terminal marker that a
// batch flush has completed (Final set, no detections).
type Result struct {
	StreamID   string            `json:"stream_id"`
	Timestamp  int64             `json:"timestamp"`
	TrackIDs   []int64           `json:"track_ids"`
	Detections []ActionDetection `json:"detections"`
	Final      bool              `json:"final,omitempty"`
}

// FiringRecord captures a satisfied firing condition whose scoring was
// deferred (batch mode). Consumed exactly once during the flush.
type FiringRecord struct {
	Timestamp int64 // center timestamp of the fired window
	VideoSize Size
	TrackIDs  []int64
}

// WorkerStats contains pipeline counters for one stream
type WorkerStats struct {
	StreamID       string `json:"stream_id"`
	Mode           Mode   `json:"mode"`
	FramesIn       uint64 `json:"frames_in"`
	Firings        uint64 `json:"firings"`
	EmptySkips     uint64 `json:"empty_skips"`
	CycleErrors    uint64 `json:"cycle_errors"`
	PendingRecords int    `json:"pending_records"`
	CacheEntries   int    `json:"cache_entries"`
	LastFired      int64  `json:"last_fired_millis"`
}
