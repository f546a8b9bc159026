package logx

import (
	"time"

	"github.com/rs/zerolog"
)

// Field attaches one key/value pair to a log event. When the same key is set
// more than once, the last value wins.
type Field func(e *zerolog.Event)

func String(key, val string) Field { return func(e *zerolog.Event) { e.Str(key, val) } }

func Int(key string, val int) Field { return func(e *zerolog.Event) { e.Int(key, val) } }

func Int64(key string, val int64) Field { return func(e *zerolog.Event) { e.Int64(key, val) } }

func Bool(key string, val bool) Field { return func(e *zerolog.Event) { e.Bool(key, val) } }

func Float64(key string, val float64) Field {
	return func(e *zerolog.Event) { e.Float64(key, val) }
}

func Duration(key string, val time.Duration) Field {
	return func(e *zerolog.Event) { e.Dur(key, val) }
}

func Time(key string, val time.Time) Field { return func(e *zerolog.Event) { e.Time(key, val) } }

func Any(key string, val any) Field { return func(e *zerolog.Event) { e.Interface(key, val) } }

// Err records the error under the standard error key. A nil error adds
// nothing, so callers do not have to guard the common "log with optional
// error" pattern.
func Err(err error) Field {
	return func(e *zerolog.Event) {
		if err != nil {
			e.Err(err)
		}
	}
}
