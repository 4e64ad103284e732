package cron

import (
	"context"
	"fmt"

	pkgerrors "github.com/dealerbridge/dealerdesk-backend/pkg/errors"
)

// Job is a unit of scheduled background work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the jobs a worker executes each tick, in registration
// order.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

func (r *Registry) Register(job Job) error {
	if job == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "cannot register a nil job")
	}
	name := job.Name()
	if name == "" {
		return pkgerrors.New(pkgerrors.CodeInternal, "cron job requires a name")
	}
	if _, exists := r.names[name]; exists {
		return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("cron job %q already registered", name))
	}
	r.names[name] = struct{}{}
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *Registry) Jobs() []Job {
	out := make([]Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}
