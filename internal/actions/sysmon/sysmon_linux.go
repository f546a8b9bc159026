//go:build linux

package sysmon

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

func sample(path string) (Stats, error) {
	var st Stats

	load, err := readLoadavg("/proc/loadavg")
	if err != nil {
		return st, err
	}
	st.Load1 = load

	total, avail, err := readMeminfo("/proc/meminfo")
	if err != nil {
		return st, err
	}
	st.MemTotalKB = total
	st.MemAvailKB = avail

	var fs syscall.Statfs_t
	if err := syscall.Statfs(path, &fs); err != nil {
		return st, fmt.Errorf("statfs %s: %w", path, err)
	}
	st.DiskTotalB = fs.Blocks * uint64(fs.Bsize)
	st.DiskFreeB = fs.Bavail * uint64(fs.Bsize)

	return st, nil
}

func readLoadavg(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, fmt.Errorf("malformed %s", path)
	}
	return strconv.ParseFloat(fields[0], 64)
}

func readMeminfo(path string) (total, avail uint64, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}
	total, avail, err = parseMeminfo(string(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", path, err)
	}
	return total, avail, nil
}

func parseMeminfo(s string) (total, avail uint64, err error) {
	for _, line := range strings.Split(s, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			total, _ = strconv.ParseUint(fields[1], 10, 64)
		case "MemAvailable:":
			avail, _ = strconv.ParseUint(fields[1], 10, 64)
		}
	}
	if total == 0 {
		return 0, 0, fmt.Errorf("MemTotal not found")
	}
	return total, avail, nil
}
