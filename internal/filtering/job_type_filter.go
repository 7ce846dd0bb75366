package filtering

import (
	"context"
	"strings"

	"github.com/spigell/skillmatch/internal/market"
)

type jobTypeFilter struct {
	jobType string
	enabled bool
	reason  string
}

// NewJobType keeps jobs of the preferred type. Jobs without a declared type are dropped too.
// An empty preference disables the step.
func NewJobType(preferred string) Filter {
	preferred = strings.TrimSpace(preferred)
	f := &jobTypeFilter{jobType: preferred, enabled: true}
	if preferred == "" {
		f.Disable("no job type preference")
	}
	return f
}

func (f *jobTypeFilter) Name() string { return "job_type" }

func (f *jobTypeFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *jobTypeFilter) IsEnabled() bool { return f.enabled }

func (f *jobTypeFilter) Validate() error { return nil }

func (f *jobTypeFilter) Apply(_ context.Context, jobs *market.Jobs) (*market.Jobs, Step, error) {
	initial := jobs.Len()
	dropped := jobs.Keep(market.JobTypeField, []string{f.jobType})
	return jobs, Step{Initial: initial, Dropped: len(dropped), Left: jobs.Len()}, nil
}

func (f *jobTypeFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.enabled,
		Reason:  f.reason,
		Details: map[string]string{"job_type": f.jobType},
	}
}
