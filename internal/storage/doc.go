// Package storage persists job execution history across restarts.
//
// It holds one checkpoint: job name -> {last run, last outcome, run count}.
// Missing checkpoint means every job starts as never-run.
package storage
