package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseDurationField parses a duration string such as "30s" or "5m" from the
// config file. Empty and whitespace-only values parse to zero so optional
// fields can be left out. Negative durations are rejected.
func ParseDurationField(field, raw string) (time.Duration, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(trimmed)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: cannot parse %q as a duration: %w", field, raw, err)
	case d < 0:
		return 0, fmt.Errorf("%s: negative duration %q", field, raw)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with a fallback for unset
// values.
func ParseDurationOrDefault(field, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(field, raw)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}
