package sink

import (
	"context"

	"autokit/internal/feed"
	"autokit/internal/sched"
)

// FeedSink republishes outcomes on the in-memory feed bus for UI consumers.
// Publishing never blocks and never fails.
type FeedSink struct {
	bus feed.Bus
}

func NewFeed(bus feed.Bus) *FeedSink {
	return &FeedSink{bus: bus}
}

func (s *FeedSink) Name() string { return "feed" }

func (s *FeedSink) Deliver(ctx context.Context, o sched.Outcome) error {
	_ = ctx
	s.bus.Publish(feed.Event{
		Type:    "job." + o.Kind.String(),
		Time:    o.Time,
		Outcome: o,
	})
	return nil
}
