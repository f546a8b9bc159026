// Package sched is the job scheduling and triggering core.
//
// It decides when an automation runs, guarantees a job is never dispatched
// while its previous dispatch is still in flight, and routes every dispatch
// outcome to a Deliverer (see internal/sink).
//
// Responsibilities are split the same way across types:
//   - TriggerSpec / trigger: "fire now?" evaluation (interval, fixed-time, fs-change)
//   - Store: registered jobs, due computation, execution history bookkeeping
//   - Registry: action name -> unit lookup
//   - Scheduler: the poll loop, dispatch, timeout enforcement
package sched
