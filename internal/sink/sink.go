// Package sink routes dispatch outcomes to notification targets.
//
// The Router fans every outcome out to all registered sinks. A failing sink
// is logged and never blocks delivery to the others, nor does it leak back
// into the scheduler.
package sink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"autokit/internal/sched"
	"autokit/pkg/logx"
)

// Sink is one delivery target (log, email, telegram, UI feed).
// Deliver may fail independently; it must not panic across this boundary,
// but the router guards against that anyway.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, o sched.Outcome) error
}

// Router implements sched.Deliverer over a set of sinks.
//
// Deliver is synchronous: outcome events for a given job arrive in the order
// the corresponding dispatches completed.
type Router struct {
	log     logx.Logger
	timeout time.Duration

	mu    sync.RWMutex
	sinks []Sink
}

func NewRouter(log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Router{log: log, timeout: 10 * time.Second}
}

func (r *Router) Add(s Sink) {
	if s == nil {
		return
	}
	r.mu.Lock()
	r.sinks = append(r.sinks, s)
	r.mu.Unlock()
	r.log.Debug("sink registered", logx.String("sink", s.Name()))
}

func (r *Router) Deliver(o sched.Outcome) {
	r.mu.RLock()
	sinks := append([]Sink(nil), r.sinks...)
	r.mu.RUnlock()

	for _, s := range sinks {
		if err := r.deliverOne(s, o); err != nil {
			r.log.Warn("sink delivery failed",
				logx.String("sink", s.Name()),
				logx.String("job", o.Job),
				logx.Err(err))
		}
	}
}

func (r *Router) deliverOne(s Sink, o sched.Outcome) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("sink panicked: %v", rec)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return s.Deliver(ctx, o)
}
