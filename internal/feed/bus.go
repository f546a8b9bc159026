// Package feed exposes dispatch outcomes as an in-memory event stream.
// It is the boundary a status UI (or any other observer) subscribes to
// without coupling to the scheduler.
package feed

import (
	"sync"
	"time"

	"autokit/internal/sched"
)

// Event is one outcome on the feed.
//
// Contract:
//   - Publish MUST be non-blocking.
//   - Slow subscribers may drop events (bounded backpressure); the feed is
//     an observation surface, not the delivery path of record.
type Event struct {
	Type    string // "job." + outcome kind, e.g. "job.success"
	Time    time.Time
	Outcome sched.Outcome
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns a simple in-memory fanout bus with no background goroutines.
func New() Bus {
	return &memBus{}
}

type subscriber struct {
	ch chan Event
}

type memBus struct {
	mu   sync.Mutex
	subs []*subscriber
}

// Publish sends e to every subscriber that has buffer room and drops it for
// the rest. Channel closes happen under the same mutex, so a send can never
// race an Unsubscribe.
func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		select {
		case s.ch <- e:
		default:
		}
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	s := &subscriber{ch: make(chan Event, buffer)}

	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			for i, cur := range b.subs {
				if cur == s {
					b.subs = append(b.subs[:i], b.subs[i+1:]...)
					break
				}
			}
			close(s.ch)
			b.mu.Unlock()
		})
	}
	return s.ch, unsub
}
