package sched

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"autokit/pkg/logx"
)

// Deliverer receives exactly one Outcome per dispatch attempt.
// Implementations must not panic across this boundary (see internal/sink).
type Deliverer interface {
	Deliver(Outcome)
}

// Config controls the polling loop.
//
// MinPoll/MaxPoll bound the sleep between iterations: the loop sleeps until
// the earliest trigger estimate, but never spins faster than MinPoll and
// never sleeps past MaxPoll (so wall-clock triggers aren't missed).
type Config struct {
	MinPoll time.Duration
	MaxPoll time.Duration

	// DefaultTimeout applies to units whose Timeout is 0.
	DefaultTimeout time.Duration

	HistorySize int
}

func (c Config) withDefaults() Config {
	if c.MinPoll <= 0 {
		c.MinPoll = time.Second
	}
	if c.MaxPoll <= 0 {
		c.MaxPoll = 30 * time.Second
	}
	if c.MaxPoll < c.MinPoll {
		c.MaxPoll = c.MinPoll
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = time.Minute
	}
	if c.HistorySize <= 0 {
		c.HistorySize = 200
	}
	return c
}

// Scheduler drives the poll/dispatch loop over a Store and a Registry.
type Scheduler struct {
	cfg   Config
	log   logx.Logger
	store *Store
	reg   *Registry
	out   Deliverer

	// now is injectable so tests can simulate time.
	now func() time.Time

	mu     sync.Mutex
	stopCh chan struct{}
	wake   chan struct{}
	wg     sync.WaitGroup

	hmu     sync.Mutex
	history []Outcome
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithNow replaces the wall clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func New(cfg Config, store *Store, reg *Registry, out Deliverer, log logx.Logger, opts ...Option) *Scheduler {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Scheduler{
		cfg:   cfg.withDefaults(),
		log:   log,
		store: store,
		reg:   reg,
		out:   out,
		now:   time.Now,
		wake:  make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start launches the polling loop. Calling Start on a running scheduler is a
// no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		return
	}
	stop := make(chan struct{})
	s.stopCh = stop

	s.wg.Add(1)
	go s.run(ctx, stop)
	s.log.Info("scheduler started",
		logx.Duration("min_poll", s.cfg.MinPoll),
		logx.Duration("max_poll", s.cfg.MaxPoll),
		logx.Int("jobs", s.store.Len()))
}

// Stop halts the loop and waits for in-flight dispatches to complete or hit
// their timeout. There is no hard kill; ctx only bounds how long Stop itself
// waits before abandoning them.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	stop := s.stopCh
	s.stopCh = nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out; abandoning in-flight dispatches")
	}
}

// Kick forces the loop to re-evaluate triggers now (e.g. after registering a
// job). Non-blocking.
func (s *Scheduler) Kick() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// History returns a copy of the bounded outcome history, oldest first.
func (s *Scheduler) History() []Outcome {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	return append([]Outcome(nil), s.history...)
}

func (s *Scheduler) run(ctx context.Context, stop <-chan struct{}) {
	defer s.wg.Done()
	for {
		s.iterate(s.now())

		timer := time.NewTimer(s.sleepFor(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-stop:
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// iterate runs one poll: due-check, then dispatch in registration order.
// Errors during a single job's dispatch are contained to that job; the loop
// itself never aborts.
func (s *Scheduler) iterate(now time.Time) {
	for _, due := range s.store.ListDue(now) {
		job, err := s.store.BeginDispatch(due.Name)
		switch {
		case errors.Is(err, ErrInFlight):
			s.finish(Outcome{
				RunID:   uuid.NewString(),
				Job:     due.Name,
				Time:    s.now(),
				Kind:    SkippedOverlap,
				Message: "previous dispatch still in flight",
			})
			continue
		case err != nil:
			// Unregistered between due-check and dispatch; nothing to do.
			continue
		}

		unit, err := s.reg.Get(job.Action)
		if err != nil {
			// Fatal to the job, not to the process.
			s.store.EndDispatch(job.Name)
			s.finish(Outcome{
				RunID:   uuid.NewString(),
				Job:     job.Name,
				Time:    s.now(),
				Kind:    Failure,
				Message: err.Error(),
			})
			continue
		}

		if unit.ConcurrentSafe {
			s.wg.Add(1)
			go func(job Job, unit ActionUnit) {
				defer s.wg.Done()
				s.dispatch(job, unit)
			}(job, unit)
		} else {
			s.dispatch(job, unit)
		}
	}
}

type runResult struct {
	payload string
	err     error
}

// dispatch executes one job under its unit's timeout. The unit runs on its
// own goroutine so the scheduler can stop waiting at the deadline; whether
// the work is truly cancelled depends on the unit honoring ctx.
func (s *Scheduler) dispatch(job Job, unit ActionUnit) {
	start := s.now()
	runID := uuid.NewString()

	timeout := unit.Timeout
	if timeout <= 0 {
		timeout = s.cfg.DefaultTimeout
	}
	// Derived from Background, not the loop context: shutdown lets in-flight
	// dispatches complete or hit their timeout rather than cancelling them.
	runCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Debug("dispatching",
		logx.String("job", job.Name),
		logx.String("action", unit.Name),
		logx.String("run_id", runID))

	done := make(chan runResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("action panicked",
					logx.String("job", job.Name),
					logx.Any("panic", r),
					logx.String("stack", string(debug.Stack())))
				done <- runResult{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		payload, err := unit.Run(runCtx, job.Params)
		done <- runResult{payload: payload, err: err}
	}()

	o := Outcome{RunID: runID, Job: job.Name}
	select {
	case r := <-done:
		switch {
		case r.err == nil:
			o.Kind = Success
			o.Message = r.payload
		case errors.Is(r.err, context.DeadlineExceeded):
			o.Kind = TimedOut
			o.Message = fmt.Sprintf("timed out after %s", timeout)
		default:
			o.Kind = Failure
			o.Message = (&ActionError{Action: unit.Name, Err: r.err}).Error()
		}
	case <-runCtx.Done():
		// Stop waiting; the unit goroutine is abandoned and may still be
		// winding down under its cancelled context.
		o.Kind = TimedOut
		o.Message = fmt.Sprintf("timed out after %s; execution abandoned", timeout)
	}

	o.Time = s.now()
	o.Took = o.Time.Sub(start)

	s.store.EndDispatch(job.Name)
	s.finish(o)
}

// finish records the outcome, appends history, and hands the event to the
// sink router. Every dispatch attempt passes through here exactly once.
func (s *Scheduler) finish(o Outcome) {
	s.store.RecordOutcome(o.Job, o)

	s.hmu.Lock()
	s.history = append(s.history, o)
	if len(s.history) > s.cfg.HistorySize {
		s.history = s.history[len(s.history)-s.cfg.HistorySize:]
	}
	s.hmu.Unlock()

	switch o.Kind {
	case Success:
		s.log.Info("dispatch ok", logx.String("job", o.Job), logx.Duration("took", o.Took))
	case SkippedOverlap:
		s.log.Warn("dispatch skipped (overlap)", logx.String("job", o.Job))
	default:
		s.log.Warn("dispatch failed",
			logx.String("job", o.Job),
			logx.String("kind", o.Kind.String()),
			logx.String("msg", o.Message))
	}

	if s.out != nil {
		s.out.Deliver(o)
	}
}

func (s *Scheduler) sleepFor(now time.Time) time.Duration {
	d := s.cfg.MaxPoll
	if next, ok := s.store.NextEstimate(now); ok {
		d = next.Sub(now)
	}
	if d < s.cfg.MinPoll {
		d = s.cfg.MinPoll
	}
	if d > s.cfg.MaxPoll {
		d = s.cfg.MaxPoll
	}
	return d
}
