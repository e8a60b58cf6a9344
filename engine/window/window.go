package window

import (
	"fmt"
	"image"
	"runtime"
)

// InputKind identifies the kind of an InputEvent.
type InputKind int

const (
	// InputKeyDown is a key press or key repeat. Key holds the GLFW key code.
	InputKeyDown InputKind = iota

	// InputKeyUp is a key release.
	InputKeyUp

	// InputScroll is a mouse wheel step. Delta is positive when scrolling up.
	InputScroll

	// InputDrag is cursor motion while the middle mouse button is held. DX and DY are
	// the motion since the previous drag event in window pixels.
	InputDrag
)

// InputEvent is one keyboard or mouse event delivered to the input callback.
type InputEvent struct {
	Kind   InputKind
	Key    uint32
	Delta  float32
	DX, DY float32
}

// Window is a viewer window: it owns the platform event loop and displays frames
// produced elsewhere.
type Window interface {
	// SetUpdateCallback sets the function called once per event loop iteration, after
	// pending events are processed. Frames are normally produced and presented from here.
	//
	// Parameters:
	//   - callback: the update function
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer size changes.
	//
	// Parameters:
	//   - callback: receives the new framebuffer width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetInputCallback sets the function that receives keyboard, scroll and drag events.
	// Escape always closes the window and is not forwarded.
	//
	// Parameters:
	//   - callback: the input handler
	SetInputCallback(callback func(InputEvent))

	// SetTitle replaces the title bar text.
	SetTitle(title string)

	// Present uploads a finished frame and swaps buffers. The image is stretched over the
	// framebuffer; its first row is shown at the top.
	//
	// Parameters:
	//   - frame: the frame to display
	//
	// Returns:
	//   - error: error if the window is not initialized
	Present(frame *image.RGBA) error

	// IsRunning reports whether the window is open.
	IsRunning() bool

	// Close destroys the window and its GL objects.
	Close() error

	// ProcessMessages runs the event loop until the window closes. It must be called
	// from the thread that created the window.
	ProcessMessages()

	// Width returns the framebuffer width in pixels.
	Width() int

	// Height returns the framebuffer height in pixels.
	Height() int
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	title               string
	minWidth, minHeight int
	maxWidth, maxHeight int
	width, height       int
	internalWindow      any

	onUpdate func()
	onResize func(width, height int)
	onInput  func(InputEvent)

	dragging     bool
	lastX, lastY float64
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a viewer window. Defaults apply first, then each option
// in order.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the open window
func NewWindow(options ...WindowBuilderOption) Window {
	w := &engineWindow{
		title:     "oxytrace",
		maxWidth:  3840,
		maxHeight: 2160,
		minWidth:  160,
		minHeight: 120,
		width:     960,
		height:    540,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		panic(fmt.Sprintf("window: failed to create platform window: %v", err))
	}
	return w
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetInputCallback(callback func(InputEvent)) {
	w.onInput = callback
}

func (w *engineWindow) SetTitle(title string) {
	w.title = title
	platformSetTitle(w, title)
}

func (w *engineWindow) Present(frame *image.RGBA) error {
	return platformPresent(w, frame)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if !platformProcessMessages(w) {
			break
		}
		if w.onUpdate != nil {
			w.onUpdate()
		}
		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}

func (w *engineWindow) emit(ev InputEvent) {
	if w.onInput != nil {
		w.onInput(ev)
	}
}

// beginDrag and cursorMoved turn middle-button cursor motion into InputDrag deltas.
func (w *engineWindow) beginDrag(x, y float64) {
	w.dragging = true
	w.lastX, w.lastY = x, y
}

func (w *engineWindow) endDrag() {
	w.dragging = false
}

func (w *engineWindow) cursorMoved(x, y float64) {
	if !w.dragging {
		return
	}
	dx, dy := x-w.lastX, y-w.lastY
	w.lastX, w.lastY = x, y
	if dx != 0 || dy != 0 {
		w.emit(InputEvent{Kind: InputDrag, DX: float32(dx), DY: float32(dy)})
	}
}
