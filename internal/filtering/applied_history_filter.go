package filtering

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/skillmatch/internal/market"
)

// AppliedLister returns the ids of jobs a user already applied to.
type AppliedLister interface {
	AppliedJobIDs(ctx context.Context, userID string) ([]string, error)
}

type appliedHistoryFilter struct {
	lister AppliedLister
	userID string
	logger *zap.Logger
}

// NewAppliedHistory creates a filter that removes jobs userID already applied to.
func NewAppliedHistory(lister AppliedLister, userID string, logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &appliedHistoryFilter{lister: lister, userID: userID, logger: logger}
}

func (f *appliedHistoryFilter) Name() string { return "applied_history" }

// Disable is a no-op: applied jobs are always excluded.
func (f *appliedHistoryFilter) Disable(string) {}

func (f *appliedHistoryFilter) IsEnabled() bool { return true }

func (f *appliedHistoryFilter) Validate() error {
	if f.lister == nil {
		return errors.New("applications source is required")
	}
	if f.userID == "" {
		return errors.New("user id is required")
	}
	return nil
}

func (f *appliedHistoryFilter) Apply(ctx context.Context, jobs *market.Jobs) (*market.Jobs, Step, error) {
	initial := jobs.Len()

	applied, err := f.lister.AppliedJobIDs(ctx, f.userID)
	if err != nil {
		return jobs, Step{}, fmt.Errorf("get applied jobs: %w", err)
	}

	excluded := jobs.Exclude(market.JobIDField, applied)
	if len(excluded) > 0 {
		f.logger.Debug("excluding already applied jobs",
			zap.Strings("excluded_jobs", excluded),
			zap.Int("jobs_left", jobs.Len()),
		)
	}

	return jobs, Step{Initial: initial, Dropped: len(excluded), Left: jobs.Len()}, nil
}

func (f *appliedHistoryFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: true, Details: map[string]string{
		"exclude_applied": strconv.FormatBool(true),
	}}
}
