// Package organize moves files in a directory into subfolders, either by
// extension or by modification month.
package organize

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"autokit/internal/sched"
	"autokit/pkg/logx"
)

// Params:
//
//	source_dir (required) directory to organize
//	method                "extension" (default) or "date"
//	dry_run               "true" to only report what would move
func Unit(log logx.Logger) sched.ActionUnit {
	if log.IsZero() {
		log = logx.Nop()
	}
	return sched.ActionUnit{
		Name:    "organize",
		Timeout: 2 * time.Minute,
		Run: func(ctx context.Context, p sched.Params) (string, error) {
			return run(ctx, p, log)
		},
	}
}

func run(ctx context.Context, p sched.Params, log logx.Logger) (string, error) {
	src := p.Get("source_dir", "")
	if src == "" {
		return "", fmt.Errorf("organize: source_dir param is required")
	}
	method := p.Get("method", "extension")
	if method != "extension" && method != "date" {
		return "", fmt.Errorf("organize: unknown method %q", method)
	}
	dryRun, _ := strconv.ParseBool(p.Get("dry_run", "false"))

	entries, err := os.ReadDir(src)
	if err != nil {
		return "", fmt.Errorf("organize: %w", err)
	}

	moved := 0
	folders := map[string]bool{}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if e.IsDir() {
			continue
		}
		name := e.Name()

		var bucket string
		switch method {
		case "extension":
			ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
			if ext == "" {
				continue
			}
			bucket = ext
		case "date":
			info, err := e.Info()
			if err != nil {
				continue
			}
			bucket = info.ModTime().Format("2006-01")
		}

		target := filepath.Join(src, bucket)
		if dryRun {
			log.Debug("would move file",
				logx.String("file", name), logx.String("into", bucket))
			moved++
			folders[bucket] = true
			continue
		}
		if err := os.MkdirAll(target, 0o755); err != nil {
			return "", fmt.Errorf("organize: create %s: %w", target, err)
		}
		if err := os.Rename(filepath.Join(src, name), filepath.Join(target, name)); err != nil {
			log.Warn("move failed; skipping file",
				logx.String("file", name), logx.Err(err))
			continue
		}
		moved++
		folders[bucket] = true
	}

	verb := "moved"
	if dryRun {
		verb = "would move"
	}
	return fmt.Sprintf("%s %d files into %d folders under %s", verb, moved, len(folders), src), nil
}
