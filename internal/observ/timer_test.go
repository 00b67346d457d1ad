package observ

import (
	"strings"
	"testing"
	"time"
)

func TestTimerRecordsPhasesInOrder(t *testing.T) {
	tm := NewTimer()
	endDiscover := tm.Begin("discover")
	time.Sleep(time.Millisecond)
	endDiscover("12 units")
	endDiscover("ignored")
	tm.Begin("compile normal")("")

	report := tm.Report()
	if len(report.Phases) != 2 {
		t.Fatalf("phases = %+v", report.Phases)
	}
	if report.Phases[0].Name != "discover" || report.Phases[0].Note != "12 units" {
		t.Fatalf("first phase = %+v", report.Phases[0])
	}
	if report.Phases[0].Seconds <= 0 || report.TotalSeconds < report.Phases[0].Seconds {
		t.Fatalf("report = %+v", report)
	}
	summary := tm.Summary()
	for _, want := range []string{"timings:", "discover", "// 12 units", "compile normal", "total"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestNilTimerBegin(t *testing.T) {
	var tm *Timer
	tm.Begin("x")("y")
}
