package cron

import (
	"context"
	"slices"
)

// Job is a housekeeping task run by the scheduler.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry is the ordered set of jobs a scheduler runs each cycle.
type Registry struct {
	jobs []Job
}

// NewRegistry builds a registry from jobs, dropping nils.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{}
	for _, job := range jobs {
		r.Register(job)
	}
	return r
}

// Register appends job unless it is nil.
func (r *Registry) Register(job Job) {
	if job != nil {
		r.jobs = append(r.jobs, job)
	}
}

// Jobs returns a snapshot of the registered jobs.
func (r *Registry) Jobs() []Job {
	return slices.Clone(r.jobs)
}
