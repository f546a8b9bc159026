package organize

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"autokit/internal/sched"
	"autokit/pkg/logx"
)

func seedFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatalf("seed %s: %v", n, err)
		}
	}
}

func TestOrganizeByExtension(t *testing.T) {
	dir := t.TempDir()
	seedFiles(t, dir, "a.pdf", "b.PDF", "c.txt", "noext")

	unit := Unit(logx.Nop())
	msg, err := unit.Run(context.Background(), sched.Params{"source_dir": dir})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(msg, "moved 3 files") {
		t.Fatalf("summary = %q", msg)
	}

	for _, p := range []string{"pdf/a.pdf", "pdf/b.PDF", "txt/c.txt"} {
		if _, err := os.Stat(filepath.Join(dir, p)); err != nil {
			t.Errorf("expected %s: %v", p, err)
		}
	}
	// Extensionless files stay put.
	if _, err := os.Stat(filepath.Join(dir, "noext")); err != nil {
		t.Errorf("extensionless file moved: %v", err)
	}
}

func TestOrganizeByDate(t *testing.T) {
	dir := t.TempDir()
	seedFiles(t, dir, "photo.jpg")
	old := time.Date(2025, 11, 2, 10, 0, 0, 0, time.UTC)
	if err := os.Chtimes(filepath.Join(dir, "photo.jpg"), old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	unit := Unit(logx.Nop())
	if _, err := unit.Run(context.Background(), sched.Params{
		"source_dir": dir,
		"method":     "date",
	}); err != nil {
		t.Fatalf("run: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "2025-11", "photo.jpg")); err != nil {
		t.Fatalf("file not bucketed by month: %v", err)
	}
}

func TestOrganizeDryRun(t *testing.T) {
	dir := t.TempDir()
	seedFiles(t, dir, "a.pdf")

	unit := Unit(logx.Nop())
	msg, err := unit.Run(context.Background(), sched.Params{
		"source_dir": dir,
		"dry_run":    "true",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(msg, "would move 1 files") {
		t.Fatalf("summary = %q", msg)
	}
	// Nothing actually moved.
	if _, err := os.Stat(filepath.Join(dir, "a.pdf")); err != nil {
		t.Fatalf("dry run moved a file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "pdf")); !os.IsNotExist(err) {
		t.Fatalf("dry run created a folder")
	}
}

func TestOrganizeSkipsSubdirectories(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "keep.d"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	seedFiles(t, dir, "a.txt")

	unit := Unit(logx.Nop())
	if _, err := unit.Run(context.Background(), sched.Params{"source_dir": dir}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "keep.d")); err != nil {
		t.Fatalf("directory was moved: %v", err)
	}
}

func TestOrganizeRejectsBadParams(t *testing.T) {
	unit := Unit(logx.Nop())
	if _, err := unit.Run(context.Background(), sched.Params{}); err == nil {
		t.Fatalf("missing source_dir accepted")
	}
	if _, err := unit.Run(context.Background(), sched.Params{
		"source_dir": t.TempDir(), "method": "size",
	}); err == nil {
		t.Fatalf("unknown method accepted")
	}
	if _, err := unit.Run(context.Background(), sched.Params{
		"source_dir": filepath.Join(t.TempDir(), "missing"),
	}); err == nil {
		t.Fatalf("missing directory accepted")
	}
}
