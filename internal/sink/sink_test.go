package sink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"autokit/internal/sched"
	"autokit/pkg/logx"
)

type recordSink struct {
	name string
	err  error
	pan  bool

	mu  sync.Mutex
	got []sched.Outcome
}

func (s *recordSink) Name() string { return s.name }

func (s *recordSink) Deliver(ctx context.Context, o sched.Outcome) error {
	if s.pan {
		panic("sink exploded")
	}
	s.mu.Lock()
	s.got = append(s.got, o)
	s.mu.Unlock()
	return s.err
}

func (s *recordSink) outcomes() []sched.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sched.Outcome(nil), s.got...)
}

func TestRouterFanOut(t *testing.T) {
	r := NewRouter(logx.Nop())
	a := &recordSink{name: "a"}
	b := &recordSink{name: "b"}
	r.Add(a)
	r.Add(b)

	o := sched.Outcome{Job: "j", Kind: sched.Success, Time: time.Now()}
	r.Deliver(o)

	if len(a.outcomes()) != 1 || len(b.outcomes()) != 1 {
		t.Fatalf("fan-out incomplete: a=%d b=%d", len(a.outcomes()), len(b.outcomes()))
	}
}

func TestRouterFailingSinkDoesNotBlockOthers(t *testing.T) {
	r := NewRouter(logx.Nop())
	bad := &recordSink{name: "bad", err: errors.New("smtp down")}
	good := &recordSink{name: "good"}
	r.Add(bad)
	r.Add(good)

	r.Deliver(sched.Outcome{Job: "j", Kind: sched.Failure})
	if len(good.outcomes()) != 1 {
		t.Fatalf("failure in one sink starved the next")
	}
}

func TestRouterRecoversPanickingSink(t *testing.T) {
	r := NewRouter(logx.Nop())
	boom := &recordSink{name: "boom", pan: true}
	good := &recordSink{name: "good"}
	r.Add(boom)
	r.Add(good)

	r.Deliver(sched.Outcome{Job: "j", Kind: sched.Success})
	if len(good.outcomes()) != 1 {
		t.Fatalf("panicking sink stopped delivery")
	}
}

func TestRouterDeliveryOrder(t *testing.T) {
	r := NewRouter(logx.Nop())
	s := &recordSink{name: "s"}
	r.Add(s)

	for i := 0; i < 5; i++ {
		r.Deliver(sched.Outcome{Job: "j", RunID: string(rune('a' + i))})
	}
	got := s.outcomes()
	if len(got) != 5 {
		t.Fatalf("got %d deliveries, want 5", len(got))
	}
	for i, o := range got {
		if o.RunID != string(rune('a'+i)) {
			t.Fatalf("delivery %d out of order: %q", i, o.RunID)
		}
	}
}

func TestRouterNilSinkIgnored(t *testing.T) {
	r := NewRouter(logx.Nop())
	r.Add(nil)
	r.Deliver(sched.Outcome{Job: "j"})
}
