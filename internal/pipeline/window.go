package pipeline

type windowEntry struct {
	frame *FrameData
	meta  Meta
}

// Window is the fixed-capacity sliding buffer of frames and their
// per-frame detection metadata. Pushing onto a full window drops the
// oldest entry; entries stay in arrival order, which for a well-formed
// source is non-decreasing timestamp order.
//
// Implemented as a ring over a preallocated slice so steady-state
// pushes allocate nothing.
type Window struct {
	entries  []windowEntry
	head     int // index of the oldest entry
	size     int
	capacity int
}

// NewWindow creates a window holding at most capacity entries.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = 1
	}
	return &Window{
		entries:  make([]windowEntry, capacity),
		capacity: capacity,
	}
}

// Push appends an entry, evicting the oldest when full.
func (w *Window) Push(frame *FrameData, meta Meta) {
	tail := (w.head + w.size) % w.capacity
	w.entries[tail] = windowEntry{frame: frame, meta: meta}
	if w.size < w.capacity {
		w.size++
		return
	}
	w.head = (w.head + 1) % w.capacity
}

// Len returns the number of buffered entries.
func (w *Window) Len() int {
	return w.size
}

// Cap returns the fixed capacity.
func (w *Window) Cap() int {
	return w.capacity
}

// Full reports whether the window holds capacity entries.
func (w *Window) Full() bool {
	return w.size >= w.capacity
}

// Center returns the entry at index capacity/2, the temporal midpoint
// used as the canonical detection point. Only meaningful when Full.
func (w *Window) Center() (*FrameData, Meta) {
	idx := (w.head + w.capacity/2) % w.capacity
	e := w.entries[idx]
	return e.frame, e.meta
}

// Frames returns the buffered frames oldest-first. The slice is a
// fresh copy; the backing ring is not exposed.
func (w *Window) Frames() []*FrameData {
	frames := make([]*FrameData, w.size)
	for i := 0; i < w.size; i++ {
		frames[i] = w.entries[(w.head+i)%w.capacity].frame
	}
	return frames
}
