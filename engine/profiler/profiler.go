package profiler

import (
	"bytes"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/engine/log"
	"github.com/Carmen-Shannon/oxy-trace/engine/pathtrace"
	"github.com/olekukonko/tablewriter"
)

// stageOrder lists the path tracer stages in execution order for the summary table.
var stageOrder = []string{
	pathtrace.StageAssemble,
	pathtrace.StageTrace,
	pathtrace.StageAccumulate,
	pathtrace.StageDenoise,
	pathtrace.StageComposite,
}

type stageTotals struct {
	frames int
	total  time.Duration
	max    time.Duration
}

// Profiler tracks frame rate and memory statistics for performance monitoring, and
// aggregates per-stage path tracer timings. Outputs stats to the log at a configurable interval.
type Profiler struct {
	mu     sync.Mutex
	logger log.Logger

	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	traced    int
	skipped   map[pathtrace.SkipReason]int
	resets    int
	triangles uint32
	total     time.Duration
	stages    map[string]*stageTotals
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{
		logger:         log.New("profiler"),
		lastTime:       time.Now(),
		updateInterval: time.Second,
		skipped:        make(map[pathtrace.SkipReason]int),
		stages:         make(map[string]*stageTotals),
	}
}

// SetUpdateInterval changes how often Tick logs. Non-positive values are ignored.
func (p *Profiler) SetUpdateInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	p.mu.Lock()
	p.updateInterval = d
	p.mu.Unlock()
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, heap usage, allocation rate, GC count/pause times, total memory.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 pauses.
	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	p.logger.Infof("FPS: %.2f | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		fps, allocMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs, sysMB)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Record adds one path tracer frame to the aggregate.
//
// Parameters:
//   - stats: the statistics of the executed frame
func (p *Profiler) Record(stats pathtrace.FrameStats) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if stats.Skip != pathtrace.SkipNone {
		p.skipped[stats.Skip]++
		return
	}
	p.traced++
	p.triangles = stats.Triangles
	p.total += stats.TotalDuration
	if stats.HistoryReset {
		p.resets++
	}
	for name, d := range stats.Timings {
		st, ok := p.stages[name]
		if !ok {
			st = &stageTotals{}
			p.stages[name] = st
		}
		st.frames++
		st.total += d
		st.max = max(st.max, d)
	}
}

// Traced returns the number of recorded frames that were not skipped.
func (p *Profiler) Traced() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.traced
}

// Skipped returns the number of recorded frames skipped for reason.
func (p *Profiler) Skipped(reason pathtrace.SkipReason) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.skipped[reason]
}

// Table renders the per-stage timing summary.
//
// Returns:
//   - string: the rendered table, empty when no frame was traced
func (p *Profiler) Table() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.traced == 0 {
		return ""
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Stage", "Frames", "Mean", "Max", "% of frame"})
	for _, name := range p.stageNames() {
		st := p.stages[name]
		mean := st.total / time.Duration(st.frames)
		percent := 0.0
		if p.total > 0 {
			percent = 100 * float64(st.total) / float64(p.total)
		}
		table.Append([]string{
			name,
			fmt.Sprintf("%d", st.frames),
			mean.String(),
			st.max.String(),
			fmt.Sprintf("%02.1f %%", percent),
		})
	}
	table.SetFooter([]string{"", fmt.Sprintf("%d", p.traced), "TOTAL", (p.total / time.Duration(p.traced)).String(), ""})
	table.Render()
	return buf.String()
}

// Summary logs the stage table and frame counters at Notice.
func (p *Profiler) Summary() {
	table := p.Table()
	p.mu.Lock()
	defer p.mu.Unlock()

	skipped := 0
	reasons := make([]string, 0, len(p.skipped))
	for reason, n := range p.skipped {
		skipped += n
		reasons = append(reasons, fmt.Sprintf("%s=%d", reason, n))
	}
	sort.Strings(reasons)
	p.logger.Noticef("%d frames traced (%d history resets, %d triangles), %d skipped %v\n%s",
		p.traced, p.resets, p.triangles, skipped, reasons, table)
}

// stageNames returns the recorded stages, known stages first in execution order.
func (p *Profiler) stageNames() []string {
	names := make([]string, 0, len(p.stages))
	for _, name := range stageOrder {
		if _, ok := p.stages[name]; ok {
			names = append(names, name)
		}
	}
	var extra []string
	for name := range p.stages {
		known := false
		for _, s := range stageOrder {
			known = known || s == name
		}
		if !known {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}
