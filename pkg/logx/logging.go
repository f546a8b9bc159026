package logx

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

type Level = zerolog.Level

const (
	LevelTrace = zerolog.TraceLevel
	LevelDebug = zerolog.DebugLevel
	LevelInfo  = zerolog.InfoLevel
	LevelWarn  = zerolog.WarnLevel
	LevelError = zerolog.ErrorLevel
)

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// Logger writes structured events through whatever root the owning Service
// currently has, so level and output changes apply to loggers handed out
// earlier. The zero value discards everything and is safe to use.
type Logger struct {
	source func() zerolog.Logger
	fields []Field
}

// Nop returns a logger that drops every event.
func Nop() Logger {
	return Logger{source: func() zerolog.Logger { return zerolog.Nop() }}
}

func (l Logger) IsZero() bool { return l.source == nil && len(l.fields) == 0 }

func (l Logger) root() zerolog.Logger {
	if l.source == nil {
		return zerolog.Nop()
	}
	return l.source()
}

// Enabled reports whether events at the given level would be written.
func (l Logger) Enabled(level Level) bool {
	return level >= l.root().GetLevel()
}

// With returns a logger that adds the given fields to every event. The
// receiver is not modified.
func (l Logger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return Logger{source: l.source, fields: merged}
}

func (l Logger) Trace(msg string, fields ...Field) { l.emit(LevelTrace, msg, fields) }
func (l Logger) Debug(msg string, fields ...Field) { l.emit(LevelDebug, msg, fields) }
func (l Logger) Info(msg string, fields ...Field)  { l.emit(LevelInfo, msg, fields) }
func (l Logger) Warn(msg string, fields ...Field)  { l.emit(LevelWarn, msg, fields) }
func (l Logger) Error(msg string, fields ...Field) { l.emit(LevelError, msg, fields) }

func (l Logger) emit(level Level, msg string, fields []Field) {
	root := l.root()
	e := root.WithLevel(level)
	if e == nil {
		return
	}
	if site := callSite(); site != "" {
		e.Str(zerolog.CallerFieldName, site)
	}
	apply(e, l.fields)
	apply(e, fields)
	e.Msg(msg)
}

func apply(e *zerolog.Event, fields []Field) {
	for _, f := range fields {
		if f != nil {
			f(e)
		}
	}
}

// callSite reports the file:line of the Logger method's caller. Full paths
// and function names are too noisy for console output.
func callSite() string {
	_, file, line, ok := runtime.Caller(3)
	if !ok || file == "" {
		return ""
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}

var levelNames = map[string]zerolog.Level{
	"trace":   zerolog.TraceLevel,
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
}

func parseLevel(name string, fallback zerolog.Level) zerolog.Level {
	if lvl, ok := levelNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return lvl
	}
	return fallback
}
