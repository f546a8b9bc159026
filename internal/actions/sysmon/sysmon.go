// Package sysmon samples host load, memory and disk usage and flags
// values that cross configured thresholds.
package sysmon

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"autokit/internal/sched"
)

// Stats is a point-in-time host sample.
type Stats struct {
	Load1      float64
	MemTotalKB uint64
	MemAvailKB uint64
	DiskTotalB uint64
	DiskFreeB  uint64
}

func (s Stats) MemUsedPct() float64 {
	if s.MemTotalKB == 0 {
		return 0
	}
	return float64(s.MemTotalKB-s.MemAvailKB) / float64(s.MemTotalKB) * 100
}

func (s Stats) DiskUsedPct() float64 {
	if s.DiskTotalB == 0 {
		return 0
	}
	return float64(s.DiskTotalB-s.DiskFreeB) / float64(s.DiskTotalB) * 100
}

// Params:
//
//	path      mount point to check disk usage on (default "/")
//	mem_warn  warn when memory use exceeds this percent (default 85)
//	disk_warn warn when disk use exceeds this percent (default 90)
func Unit() sched.ActionUnit {
	return sched.ActionUnit{
		Name:           "sysmon",
		Timeout:        30 * time.Second,
		ConcurrentSafe: true,
		Run:            run,
	}
}

func run(ctx context.Context, p sched.Params) (string, error) {
	path := p.Get("path", "/")
	memWarn := parsePct(p.Get("mem_warn", ""), 85)
	diskWarn := parsePct(p.Get("disk_warn", ""), 90)

	st, err := sample(path)
	if err != nil {
		return "", fmt.Errorf("sysmon: %w", err)
	}

	memPct := st.MemUsedPct()
	diskPct := st.DiskUsedPct()

	var warns []string
	if memPct > memWarn {
		warns = append(warns, fmt.Sprintf("memory %.1f%% > %.0f%% threshold", memPct, memWarn))
	}
	if diskPct > diskWarn {
		warns = append(warns, fmt.Sprintf("disk %.1f%% > %.0f%% threshold", diskPct, diskWarn))
	}

	summary := fmt.Sprintf("load1 %.2f, mem %.1f%%, disk(%s) %.1f%%",
		st.Load1, memPct, path, diskPct)
	if len(warns) > 0 {
		return "", fmt.Errorf("sysmon: %s (%s)", strings.Join(warns, "; "), summary)
	}
	return summary, nil
}

func parsePct(s string, def float64) float64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 || v > 100 {
		return def
	}
	return v
}
