package engine

import (
	"fmt"
	"image"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/log"
	"github.com/Carmen-Shannon/oxy-trace/engine/pathtrace"
	"github.com/Carmen-Shannon/oxy-trace/engine/profiler"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
	"github.com/Carmen-Shannon/oxy-trace/engine/window"
)

// statsReporter is implemented by render passes that report per-frame statistics.
type statsReporter interface {
	Stats() pathtrace.FrameStats
}

// engine implements the Engine interface.
// Coordinates the tick goroutine with the render loop and owns the frame targets.
type engine struct {
	mu sync.Mutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	renderer renderer.Renderer
	window   window.Window
	logger   log.Logger

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	scenes map[int]scene.Scene
	passes []pathtrace.RenderPass

	width, height int
	clearColor    [4]float32
	color         resource.Texture
	depth         resource.Texture

	frameCounter uint64
	lastRender   time.Time

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the host frame loop. Every frame it clears the color target, then hands each
// active scene to every registered render pass in registration order.
type Engine interface {
	// Renderer returns the renderer the engine allocates frame targets from.
	Renderer() renderer.Renderer

	// Window returns the underlying window, or nil when running headless.
	Window() window.Window

	// Profiler returns the engine's profiler.
	Profiler() *profiler.Profiler

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick, after active
	// scenes have been advanced.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each rendered frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddRenderPass appends a pass executed for every active scene each frame.
	AddRenderPass(p pathtrace.RenderPass)

	// AddScene registers a scene at the given z-index key.
	// Scenes are rendered in ascending key order.
	//
	// Parameters:
	//   - key: the z-index determining render order (lower renders first)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given z-index key.
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given z-index key, or nil.
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by z-index.
	Scenes() map[int]scene.Scene

	// Resize reallocates the frame targets and updates scene camera aspect ratios.
	//
	// Parameters:
	//   - width, height: the new frame size in pixels
	//
	// Returns:
	//   - error: error if the targets cannot be allocated
	Resize(width, height int) error

	// Size returns the frame size in pixels.
	Size() (int, int)

	// FrameCounter returns the number of frames rendered so far.
	FrameCounter() uint64

	// RenderFrame renders one frame of every active scene.
	//
	// Parameters:
	//   - dt: seconds since the previous frame
	//
	// Returns:
	//   - error: the first render pass error
	RenderFrame(dt float32) error

	// RunFrames advances active scenes by dt and renders, n times, without a window.
	//
	// Parameters:
	//   - n: number of frames
	//   - dt: fixed seconds per frame
	//
	// Returns:
	//   - error: the first tick or render error
	RunFrames(n int, dt float32) error

	// Snapshot reads back the color target as an sRGB image.
	Snapshot() (*image.RGBA, error)

	// Run starts the tick goroutine and the windowed render loop (blocks until the window closes).
	Run()

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()

	// Release frees the frame targets. The renderer is owned by the caller.
	Release()
}

// NewEngine creates a new Engine rendering with r. With a window, frames track the window's
// framebuffer size; without one, WithFrameSize sets it. NewEngine panics if r is nil.
//
// Parameters:
//   - r: the renderer
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
//   - error: error if the frame targets cannot be allocated
func NewEngine(r renderer.Renderer, options ...EngineBuilderOption) (Engine, error) {
	if r == nil {
		panic("engine: NewEngine requires a non-nil Renderer")
	}
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		renderer:        r,
		logger:          log.New("engine"),
		scenes:          make(map[int]scene.Scene),
		profiler:        profiler.NewProfiler(),
		engineTickRate:  time.Second / 60,
		width:           960,
		height:          540,
	}
	for _, opt := range options {
		opt(e)
	}

	if e.window != nil {
		e.width, e.height = e.window.Width(), e.window.Height()
		e.window.SetResizeCallback(func(width, height int) {
			if err := e.Resize(width, height); err != nil {
				e.logger.Errorf("resize to %dx%d: %v", width, height, err)
			}
		})
	}
	if err := e.Resize(e.width, e.height); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Profiler() *profiler.Profiler {
	return e.profiler
}

func (e *engine) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("engine: invalid frame size %dx%d", width, height)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.color != nil && e.width == width && e.height == height {
		return nil
	}
	e.releaseTargets()

	w, h := uint32(width), uint32(height)
	color, err := e.renderer.CreateTexture(resource.TextureDescriptor{Label: "frame_color", Width: w, Height: h})
	if err != nil {
		return fmt.Errorf("engine: allocate color target: %w", err)
	}
	depth, err := e.renderer.CreateTexture(resource.TextureDescriptor{Label: "frame_depth", Width: w, Height: h})
	if err != nil {
		color.Release()
		return fmt.Errorf("engine: allocate depth target: %w", err)
	}
	e.color, e.depth = color, depth
	e.width, e.height = width, height

	for _, s := range e.scenes {
		if c := s.Camera(); c != nil {
			c.SetAspect(float32(width) / float32(height))
		}
	}
	e.logger.Infof("frame targets %dx%d", width, height)
	return nil
}

func (e *engine) Size() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.width, e.height
}

func (e *engine) FrameCounter() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frameCounter
}

func (e *engine) RenderFrame(dt float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.clear(); err != nil {
		return err
	}
	for _, s := range e.activeScenes() {
		ctx := pathtrace.FrameContext{
			Camera:       s.Camera(),
			Width:        uint32(e.width),
			Height:       uint32(e.height),
			FrameCounter: e.frameCounter,
		}
		rc := pathtrace.ResourceContext{Scene: s, Color: e.color, Depth: e.depth}
		for _, p := range e.passes {
			if err := p.Execute(p.Prepare(ctx), rc); err != nil {
				return fmt.Errorf("engine: scene %q frame %d: %w", s.Name(), e.frameCounter, err)
			}
			if sr, ok := p.(statsReporter); ok {
				e.profiler.Record(sr.Stats())
			}
		}
	}
	e.frameCounter++

	if e.renderCallback != nil {
		e.renderCallback(dt)
	}
	if e.profilingEnabled {
		e.profiler.Tick()
	}
	return nil
}

func (e *engine) RunFrames(n int, dt float32) error {
	for i := 0; i < n; i++ {
		e.tick(dt)
		if err := e.RenderFrame(dt); err != nil {
			return err
		}
	}
	return nil
}

func (e *engine) Snapshot() (*image.RGBA, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pixels, err := e.renderer.ReadTexture(e.color)
	if err != nil {
		return nil, fmt.Errorf("engine: read color target: %w", err)
	}
	return common.EncodeRGBA8(pixels, e.width, e.height), nil
}

// Run starts the tick and quit goroutines and drives rendering from the window's message
// loop, which owns the GL context.
func (e *engine) Run() {
	if e.window == nil {
		panic("engine: Run requires a window; use RunFrames when headless")
	}
	e.running = true
	e.lastRender = time.Now()
	e.window.SetUpdateCallback(e.renderAndPresent)
	e.handle()
	e.window.ProcessMessages()
	e.signalQuit()
	e.wg.Wait()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
	if e.window != nil {
		_ = e.window.Close()
	}
}

func (e *engine) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.releaseTargets()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// handle launches the engine tick and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Listens for dynamic rate changes via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now
			e.tick(dt)
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// renderAndPresent renders one frame, presents it and applies the frame limit.
// A render error stops the engine.
func (e *engine) renderAndPresent() {
	now := time.Now()
	dt := float32(now.Sub(e.lastRender).Seconds())
	e.lastRender = now

	if err := e.RenderFrame(dt); err != nil {
		e.logger.Errorf("render: %v", err)
		e.Quit()
		return
	}
	frame, err := e.Snapshot()
	if err == nil {
		err = e.window.Present(frame)
	}
	if err != nil {
		e.logger.Warningf("present: %v", err)
	}

	if e.renderFrameLimit > 0 {
		if remaining := e.renderFrameLimit - time.Since(now); remaining > 0 {
			time.Sleep(remaining)
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// tick advances every active scene, then runs the tick callback. Updates hold mu so a
// frame never sees instances move between assembly and its history signature.
func (e *engine) tick(dt float32) {
	e.mu.Lock()
	for _, s := range e.activeScenes() {
		s.Update(dt)
	}
	e.mu.Unlock()
	if e.tickCallback != nil {
		e.tickCallback(dt)
	}
}

// activeScenes returns the active scenes in ascending z-index order. Callers hold mu.
func (e *engine) activeScenes() []scene.Scene {
	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	active := make([]scene.Scene, 0, len(keys))
	for _, k := range keys {
		if s := e.scenes[k]; s.Active() {
			active = append(active, s)
		}
	}
	return active
}

// clear fills the color target with the clear color and resets depth. Callers hold mu.
func (e *engine) clear() error {
	n := e.width * e.height * 4
	pixels := make([]float32, n)
	for i := 0; i < n; i += 4 {
		copy(pixels[i:i+4], e.clearColor[:])
	}
	if err := e.renderer.WriteTexture(e.color, 0, pixels); err != nil {
		return fmt.Errorf("engine: clear color target: %w", err)
	}
	clear(pixels)
	if err := e.renderer.WriteTexture(e.depth, 0, pixels); err != nil {
		return fmt.Errorf("engine: clear depth target: %w", err)
	}
	return nil
}

// releaseTargets frees the frame targets. Callers hold mu.
func (e *engine) releaseTargets() {
	for _, t := range []resource.Texture{e.color, e.depth} {
		if t != nil {
			t.Release()
		}
	}
	e.color, e.depth = nil, nil
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if !e.running {
		e.engineTickRate = newRate
		return
	}
	// Replace any pending update rather than block.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}

func (e *engine) AddRenderPass(p pathtrace.RenderPass) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.passes = append(e.passes, p)
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
	if c := s.Camera(); c != nil && e.height > 0 {
		c.SetAspect(float32(e.width) / float32(e.height))
	}
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}
