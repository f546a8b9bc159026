package sched

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"autokit/pkg/logx"
)

// Store is the in-memory table of registered jobs.
//
// All mutation goes through the store mutex, so the polling loop's due-check
// never observes a partially updated job. Trigger state lives inside each
// entry and is only touched while the mutex is held.
type Store struct {
	log logx.Logger

	mu    sync.Mutex
	order []string
	jobs  map[string]*jobEntry
}

type jobEntry struct {
	job  Job
	trig trigger

	// dispatching is the Idle -> Dispatching state bit from the no-overlap
	// guarantee. Set by BeginDispatch, cleared by EndDispatch.
	dispatching bool
}

func NewStore(log logx.Logger) *Store {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Store{log: log, jobs: map[string]*jobEntry{}}
}

// Register adds a job. The trigger spec is validated and compiled here so a
// bad spec surfaces at registration time, not in the poll loop.
func (s *Store) Register(j Job) error {
	name := strings.TrimSpace(j.Name)
	if name == "" {
		return fmt.Errorf("register job: name is required")
	}
	j.Name = name
	if strings.TrimSpace(j.Action) == "" {
		return fmt.Errorf("register job %q: action is required", name)
	}

	trig, err := newTrigger(j.Trigger, s.log.With(logx.String("job", name)))
	if err != nil {
		return fmt.Errorf("register job %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("register job %q: %w", name, ErrDuplicateName)
	}
	s.jobs[name] = &jobEntry{job: j, trig: trig}
	s.order = append(s.order, name)
	s.log.Info("job registered",
		logx.String("job", name),
		logx.String("action", j.Action),
		logx.String("trigger", j.Trigger.describe()))
	return nil
}

// Unregister removes a job. Removing an absent job is a no-op.
func (s *Store) Unregister(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; !ok {
		return
	}
	delete(s.jobs, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.log.Info("job unregistered", logx.String("job", name))
}

// ListDue evaluates every enabled job's trigger against now and returns
// copies of those due, in registration order.
func (s *Store) ListDue(now time.Time) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []Job
	for _, name := range s.order {
		e := s.jobs[name]
		if e == nil || !e.job.Enabled {
			continue
		}
		if e.trig.isDue(now, e.job.LastRun) {
			due = append(due, e.job)
		}
	}
	return due
}

// BeginDispatch transitions a job Idle -> Dispatching. It fails with
// ErrInFlight when the previous dispatch has not completed (the caller turns
// that into a SkippedOverlap outcome) and ErrNotFound when the job was
// unregistered since the due-check.
func (s *Store) BeginDispatch(name string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[name]
	if !ok {
		return Job{}, fmt.Errorf("job %q: %w", name, ErrNotFound)
	}
	if e.dispatching {
		return e.job, ErrInFlight
	}
	e.dispatching = true
	return e.job, nil
}

// EndDispatch transitions a job back to Idle.
func (s *Store) EndDispatch(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.jobs[name]; ok {
		e.dispatching = false
	}
}

// RecordOutcome applies one dispatch attempt's result to the job's history.
// LastRun and RunCount only advance for real dispatch attempts; an overlap
// skip updates LastOutcome alone, so interval math stays anchored to actual
// runs.
func (s *Store) RecordOutcome(name string, o Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[name]
	if !ok {
		return
	}
	e.job.LastOutcome = o.Kind
	switch o.Kind {
	case Success, Failure, TimedOut:
		e.job.LastRun = o.Time
		e.job.RunCount++
	}
}

// NextEstimate returns the earliest best-effort next fire time across all
// enabled jobs. ok is false when nothing is scheduled.
func (s *Store) NextEstimate(now time.Time) (next time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range s.order {
		e := s.jobs[name]
		if e == nil || !e.job.Enabled {
			continue
		}
		n := e.trig.nextEstimate(now)
		if n.IsZero() {
			continue
		}
		if !ok || n.Before(next) {
			next, ok = n, true
		}
	}
	return next, ok
}

// Len reports the number of registered jobs.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Summaries returns a read-only view of all jobs in registration order.
func (s *Store) Summaries(now time.Time) []JobSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobSummary, 0, len(s.order))
	for _, name := range s.order {
		e := s.jobs[name]
		if e == nil {
			continue
		}
		out = append(out, JobSummary{
			Name:        e.job.Name,
			Action:      e.job.Action,
			Enabled:     e.job.Enabled,
			Dispatching: e.dispatching,
			LastRun:     e.job.LastRun,
			LastOutcome: e.job.LastOutcome,
			RunCount:    e.job.RunCount,
			Next:        e.trig.nextEstimate(now),
		})
	}
	return out
}

// Restore applies checkpointed history to already-registered jobs.
// Unknown names are ignored; jobs without a checkpoint stay NeverRun.
func (s *Store) Restore(states map[string]JobState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	restored := 0
	for name, st := range states {
		e, ok := s.jobs[name]
		if !ok {
			continue
		}
		e.job.LastRun = st.LastRun
		e.job.LastOutcome = st.LastOutcome
		e.job.RunCount = st.RunCount
		restored++
	}
	if restored > 0 {
		s.log.Info("job history restored", logx.Int("jobs", restored))
	}
}

// Checkpoint captures every job's history for persistence.
func (s *Store) Checkpoint() map[string]JobState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]JobState, len(s.jobs))
	for name, e := range s.jobs {
		out[name] = JobState{
			LastRun:     e.job.LastRun,
			LastOutcome: e.job.LastOutcome,
			RunCount:    e.job.RunCount,
		}
	}
	return out
}
