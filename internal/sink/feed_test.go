package sink

import (
	"context"
	"testing"

	"autokit/internal/feed"
	"autokit/internal/sched"
)

func TestFeedSinkRepublishes(t *testing.T) {
	bus := feed.New()
	ch, unsub := bus.Subscribe(4)
	defer unsub()

	s := NewFeed(bus)
	o := sched.Outcome{Job: "j", Kind: sched.TimedOut, RunID: "r1"}
	if err := s.Deliver(context.Background(), o); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	select {
	case e := <-ch:
		if e.Type != "job.timed_out" {
			t.Fatalf("event type = %q", e.Type)
		}
		if e.Outcome.RunID != "r1" {
			t.Fatalf("outcome lost: %+v", e.Outcome)
		}
	default:
		t.Fatalf("no event on the feed")
	}
}
