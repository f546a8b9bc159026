//go:build linux

package sysmon

import (
	"context"
	"strings"
	"testing"

	"autokit/internal/sched"
)

const sampleMeminfo = `MemTotal:       16296044 kB
MemFree:         8231234 kB
MemAvailable:   12102948 kB
Buffers:          511104 kB
Cached:          3244032 kB
`

func TestParseMeminfo(t *testing.T) {
	total, avail, err := parseMeminfo(sampleMeminfo)
	if err != nil {
		t.Fatalf("parseMeminfo: %v", err)
	}
	if total != 16296044 || avail != 12102948 {
		t.Fatalf("total=%d avail=%d", total, avail)
	}
}

func TestParseMeminfoMissingTotal(t *testing.T) {
	if _, _, err := parseMeminfo("MemFree: 100 kB\n"); err == nil {
		t.Fatalf("missing MemTotal accepted")
	}
}

func TestSysmonRunOnHost(t *testing.T) {
	// Thresholds at 100% so the sample never trips a warning on CI hosts.
	unit := Unit()
	msg, err := unit.Run(context.Background(), sched.Params{
		"mem_warn":  "100",
		"disk_warn": "100",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{"load1", "mem", "disk(/)"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("summary missing %q: %q", want, msg)
		}
	}
}
