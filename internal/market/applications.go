package market

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/skillmatch/internal/backend"
	"github.com/spigell/skillmatch/internal/utils"
)

// ApplyToJob creates a pending application of userID for jobID.
// A second attempt for the same pair returns ErrAlreadyApplied.
func (r *Repository) ApplyToJob(ctx context.Context, jobID, userID string) (*Application, error) {
	row := map[string]string{
		"job_id":       jobID,
		"applicant_id": userID,
		"status":       string(StatusPending),
	}

	var created []*Application
	err := r.store.Insert(ctx, resourceApplications, row, &created)
	if backend.IsUniqueViolation(err) {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrAlreadyApplied)
	}
	if err != nil {
		return nil, fmt.Errorf("apply to job: %w", err)
	}
	if len(created) == 0 || created[0] == nil {
		return nil, errors.New("apply to job: empty response")
	}

	return created[0], nil
}

// AppliedJobIDs returns the distinct job ids userID applied to.
func (r *Repository) AppliedJobIDs(ctx context.Context, userID string) ([]string, error) {
	q := backend.From(resourceApplications).
		Select("job_id").
		Eq("applicant_id", userID)

	var rows []*Application
	if err := r.store.Select(ctx, q, &rows); err != nil {
		return []string{}, fmt.Errorf("fetch applied jobs: %w", err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			ids = append(ids, row.JobID)
		}
	}

	return utils.Unique(ids), nil
}

// FetchApplicationsWithJob returns the applications of userID with their job embedded.
// The embedded join is not reliable on the remote store, so failures degrade to an empty list.
func (r *Repository) FetchApplicationsWithJob(ctx context.Context, userID string) ([]*Application, error) {
	q := backend.From(resourceApplications).
		Select("*,jobs(*)").
		Eq("applicant_id", userID).
		Order("created_at", true)

	var rows []*Application
	if err := r.store.Select(ctx, q, &rows); err != nil {
		r.logger.Warn("fetching applications failed; treating as no applications",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return []*Application{}, nil
	}

	apps := make([]*Application, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		if row.Job == nil {
			r.logger.Debug("dropping application without joined job", zap.String("application_id", row.ID))
			continue
		}
		if _, ok := seen[row.ID]; ok {
			continue
		}
		seen[row.ID] = struct{}{}
		apps = append(apps, row)
	}

	return apps, nil
}

// FetchApplicantsForEmployer lists applicants to jobs owned by employerID,
// optionally restricted to jobID. Profiles are fetched in one batch and merged in memory.
func (r *Repository) FetchApplicantsForEmployer(ctx context.Context, employerID, jobID string) ([]*ApplicantView, error) {
	q := backend.From(resourceApplications).
		Select("id,job_id,applicant_id,status,created_at,jobs!inner(id,title,employer_id)").
		Eq("jobs.employer_id", employerID).
		Order("created_at", true)
	if jobID != "" {
		q.Eq("job_id", jobID)
	}

	var rows []*Application
	if err := r.store.Select(ctx, q, &rows); err != nil {
		return []*ApplicantView{}, fmt.Errorf("fetch applications for employer: %w", err)
	}

	apps := make([]*Application, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	applicantIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		if row == nil || row.Job == nil || row.Job.EmployerID != employerID {
			continue
		}
		if _, ok := seen[row.ID]; ok {
			continue
		}
		seen[row.ID] = struct{}{}
		apps = append(apps, row)
		applicantIDs = append(applicantIDs, row.ApplicantID)
	}

	if len(apps) == 0 {
		return []*ApplicantView{}, nil
	}

	profiles := r.profilesByID(ctx, applicantIDs)

	views := make([]*ApplicantView, 0, len(apps))
	for _, app := range apps {
		profile := profiles[app.ApplicantID]
		view := &ApplicantView{
			ApplicationID: app.ID,
			ApplicantID:   app.ApplicantID,
			Name:          profile.DisplayName(),
			JobID:         app.JobID,
			JobTitle:      app.Job.Title,
			Status:        app.Status,
			AppliedAt:     app.CreatedAt,
		}
		if profile != nil {
			view.Headline = profile.Headline
			view.AvatarURL = profile.AvatarURL
		}
		views = append(views, view)
	}

	return views, nil
}

// UpdateApplicationStatus moves an application of a job owned by employerID to status.
func (r *Repository) UpdateApplicationStatus(ctx context.Context, employerID, applicationID string, status ApplicationStatus) (*Application, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}

	q := backend.From(resourceApplications).
		Select("*,jobs(id,title,employer_id)").
		Eq("id", applicationID).
		Limit(1)

	var rows []*Application
	if err := r.store.Select(ctx, q, &rows); err != nil {
		return nil, fmt.Errorf("get application %s: %w", applicationID, err)
	}
	if len(rows) == 0 || rows[0] == nil {
		return nil, fmt.Errorf("application %s: %w", applicationID, ErrNotFound)
	}

	current := rows[0]
	if current.Job == nil || current.Job.EmployerID != employerID {
		return nil, ErrNotOwner
	}
	if IsTerminal(current.Status) {
		return nil, fmt.Errorf("%w: application is %s, no further changes", ErrInvalidTransition, current.Status)
	}
	if !IsTransitionAllowed(current.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, status)
	}

	update := backend.From(resourceApplications).
		Eq("id", applicationID).
		Eq("status", string(current.Status))

	var updated []*Application
	if err := r.store.Update(ctx, update, map[string]string{"status": string(status)}, &updated); err != nil {
		return nil, fmt.Errorf("update application status: %w", err)
	}
	if len(updated) == 0 {
		// The status moved under us; the next read shows the winner.
		return nil, fmt.Errorf("%w: application %s changed concurrently", ErrInvalidTransition, applicationID)
	}

	updated[0].Job = current.Job
	return updated[0], nil
}
