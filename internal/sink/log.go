package sink

import (
	"context"

	"autokit/internal/sched"
	"autokit/pkg/logx"
)

// LogSink writes outcomes to the structured log. Always available; the
// cheapest way to guarantee no dispatch ends silently.
type LogSink struct {
	log logx.Logger
}

func NewLog(log logx.Logger) *LogSink {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(ctx context.Context, o sched.Outcome) error {
	_ = ctx
	fields := []logx.Field{
		logx.String("job", o.Job),
		logx.String("run_id", o.RunID),
		logx.Duration("took", o.Took),
	}
	if o.Message != "" {
		fields = append(fields, logx.String("msg", o.Message))
	}
	switch o.Kind {
	case sched.Success:
		s.log.Info("job succeeded", fields...)
	case sched.SkippedOverlap:
		s.log.Warn("job skipped (overlap)", fields...)
	case sched.TimedOut:
		s.log.Error("job timed out", fields...)
	default:
		s.log.Error("job failed", fields...)
	}
	return nil
}
