package cron

import (
	"context"
	"time"
)

// Report summarizes one job run. It is logged and returned by manual triggers.
type Report map[string]any

// Job is a scheduled task run by the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) (Report, error)
}

// Entry is a registered job and its cadence.
type Entry struct {
	Job      Job
	Interval time.Duration
}

// Registry tracks registered cron jobs.
type Registry struct {
	entries []Entry
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a job. A non-positive interval falls back to daily.
func (r *Registry) Register(job Job, interval time.Duration) {
	if job == nil {
		return
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	r.entries = append(r.entries, Entry{Job: job, Interval: interval})
}

// Entries returns the registered jobs in the order they were added.
func (r *Registry) Entries() []Entry {
	entries := make([]Entry, len(r.entries))
	copy(entries, r.entries)
	return entries
}

// Lookup finds a job by name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	for _, e := range r.entries {
		if e.Job.Name() == name {
			return e, true
		}
	}
	return Entry{}, false
}
