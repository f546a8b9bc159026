package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"autokit/internal/sched"
)

type fakeSource struct {
	jobs []sched.JobSummary
	hist []sched.Outcome
}

func (f *fakeSource) Summaries() []sched.JobSummary { return f.jobs }
func (f *fakeSource) History() []sched.Outcome      { return f.hist }

func sampleSource() *fakeSource {
	ran := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return &fakeSource{
		jobs: []sched.JobSummary{
			{Name: "backup", Enabled: true, RunCount: 5, LastRun: ran, LastOutcome: sched.Success},
			{Name: "scrape", Enabled: false},
		},
		hist: []sched.Outcome{
			{Job: "backup", Kind: sched.Success, Time: ran},
			{Job: "backup", Kind: sched.Failure, Time: ran.Add(time.Hour), Message: "disk full"},
			{Job: "backup", Kind: sched.SkippedOverlap, Time: ran.Add(2 * time.Hour)},
		},
	}
}

func TestRender(t *testing.T) {
	src := sampleSource()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	got := Render(src.jobs, src.hist, now)

	for _, want := range []string{
		"jobs: 2",
		"backup",
		"enabled",
		"disabled",
		"runs=5",
		"recent outcomes: 3 total, 1 ok, 1 failed, 0 timed out, 1 skipped",
		"disk full",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q:\n%s", want, got)
		}
	}
	if !strings.Contains(got, "last=never") {
		t.Errorf("never-run job not marked:\n%s", got)
	}
}

func TestRenderLimitsRecentLines(t *testing.T) {
	at := time.Date(2026, 3, 10, 7, 30, 0, 0, time.UTC)
	var hist []sched.Outcome
	for i := 0; i < 30; i++ {
		hist = append(hist, sched.Outcome{Job: "j", Kind: sched.Success, Time: at})
	}
	// Render with a different wall time so the header timestamp cannot be
	// mistaken for an outcome line.
	got := Render(nil, hist, at.Add(4*time.Hour))
	if n := strings.Count(got, "07:30:00"); n != recentShown {
		t.Fatalf("printed %d recent lines, want %d", n, recentShown)
	}
	if !strings.Contains(got, "recent outcomes: 30 total") {
		t.Fatalf("wrong total:\n%s", got)
	}
}

func TestReportUnit(t *testing.T) {
	src := sampleSource()
	unit := Unit(src)

	out := filepath.Join(t.TempDir(), "report.txt")
	msg, err := unit.Run(context.Background(), sched.Params{"out_file": out})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(msg, "jobs: 2") {
		t.Fatalf("payload = %q", msg)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read out_file: %v", err)
	}
	if string(data) != msg {
		t.Fatalf("file content differs from payload")
	}
}

func TestReportUnitNoSource(t *testing.T) {
	unit := Unit(nil)
	if _, err := unit.Run(context.Background(), nil); err == nil {
		t.Fatalf("nil source accepted")
	}
}
