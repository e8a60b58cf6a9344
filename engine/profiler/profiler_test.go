package profiler

import (
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/engine/pathtrace"
)

func TestRecordAggregatesStages(t *testing.T) {
	p := NewProfiler()
	if p.Table() != "" {
		t.Fatal("Table() should be empty before any traced frame")
	}
	for i := 0; i < 3; i++ {
		p.Record(pathtrace.FrameStats{
			Triangles:     12,
			TotalDuration: 10 * time.Millisecond,
			Timings: map[string]time.Duration{
				pathtrace.StageTrace:     6 * time.Millisecond,
				pathtrace.StageComposite: time.Millisecond,
			},
		})
	}
	p.Record(pathtrace.FrameStats{Skip: pathtrace.SkipCameraType})

	if p.Traced() != 3 {
		t.Errorf("Traced() = %d, want 3", p.Traced())
	}
	if p.Skipped(pathtrace.SkipCameraType) != 1 {
		t.Errorf("Skipped(camera_type) = %d, want 1", p.Skipped(pathtrace.SkipCameraType))
	}

	table := p.Table()
	traceRow := strings.Index(table, pathtrace.StageTrace)
	compositeRow := strings.Index(table, pathtrace.StageComposite)
	if traceRow < 0 || compositeRow < 0 || traceRow > compositeRow {
		t.Fatalf("stages missing or out of order:\n%s", table)
	}
	if !strings.Contains(table, "60.0 %") {
		t.Errorf("trace share missing:\n%s", table)
	}
	p.Summary()
}

func TestTickHonorsInterval(t *testing.T) {
	p := NewProfiler()
	p.SetUpdateInterval(time.Hour)
	if p.Tick() {
		t.Error("Tick() logged before the interval elapsed")
	}
	p.SetUpdateInterval(time.Nanosecond)
	time.Sleep(time.Millisecond)
	if !p.Tick() {
		t.Error("Tick() did not log after the interval elapsed")
	}
}
