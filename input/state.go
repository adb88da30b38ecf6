// Package input tracks the pointer, scroll and viewport state of one effect
// instance. Event handlers write it; the frame loop reads a Snapshot.
package input

import (
	"sync"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// VelocityStep is the fixed time step (in milliseconds at 60Hz) the pointer
// finite difference is divided by.
const VelocityStep = 16.0

// Snapshot is the input state consumed by a single frame.
type Snapshot struct {
	Pointer     mgl32.Vec2 // normalized, y up
	PrevPointer mgl32.Vec2
	Velocity    mgl32.Vec2
	// Moved is false until the first pointer event arrives.
	Moved bool

	ScrollOffset float32 // pixels
	Scroll       float32 // ScrollOffset mapped to [0,1]

	Width, Height int
}

// State is safe for one writer (event callbacks) and one reader (the frame
// loop) on different goroutines.
type State struct {
	mu sync.Mutex

	scrollRange float32

	pointer  mgl32.Vec2
	prev     mgl32.Vec2
	velocity mgl32.Vec2
	moved    bool

	scrollPx float32

	width, height int
}

// New returns the resting state: pointer centred, no previous pointer, top of
// the page. scrollRange is the offset at which the normalized scroll reaches 1.
func New(scrollRange float32) *State {
	return &State{
		scrollRange: scrollRange,
		pointer:     mgl32.Vec2{0.5, 0.5},
		prev:        mgl32.Vec2{-1, -1},
	}
}

// NormalizePointer maps window coordinates (origin top-left) into [0,1]² with
// the vertical axis flipped. Coordinates outside the window are clamped.
func NormalizePointer(x, y float64, width, height int) mgl32.Vec2 {
	if width <= 0 || height <= 0 {
		return mgl32.Vec2{0.5, 0.5}
	}
	nx := mgl32.Clamp(float32(x/float64(width)), 0, 1)
	ny := mgl32.Clamp(1-float32(y/float64(height)), 0, 1)
	return mgl32.Vec2{nx, ny}
}

// NormalizeScroll maps a scroll offset in pixels onto [0,1] over scrollRange.
func NormalizeScroll(offset, scrollRange float32) float32 {
	if scrollRange <= 0 || math32.IsNaN(offset) {
		return 0
	}
	return mgl32.Clamp(offset/scrollRange, 0, 1)
}

// PointerMoved records a cursor position reported in window coordinates for a
// window of the given size.
func (s *State) PointerMoved(x, y float64, width, height int) {
	p := NormalizePointer(x, y, width, height)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prev = s.pointer
	s.pointer = p
	s.velocity = p.Sub(s.prev).Mul(1 / VelocityStep)
	s.moved = true
}

// Scrolled moves the scroll offset by delta pixels (positive scrolls down).
// The offset never goes above the top of the page.
func (s *State) Scrolled(delta float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollPx = math32.Max(0, s.scrollPx+delta)
}

// ScrollTo sets an absolute scroll offset in pixels.
func (s *State) ScrollTo(offset float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollPx = math32.Max(0, offset)
}

// Resized records the viewport size in pixels.
func (s *State) Resized(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = width, height
}

// Snapshot returns the current state. Reading does not reset anything: the
// pointer velocity persists until the next pointer event.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Pointer:      s.pointer,
		PrevPointer:  s.prev,
		Velocity:     s.velocity,
		Moved:        s.moved,
		ScrollOffset: s.scrollPx,
		Scroll:       NormalizeScroll(s.scrollPx, s.scrollRange),
		Width:        s.width,
		Height:       s.height,
	}
}
