package market

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/skillmatch/internal/backend"
)

const recentlyViewedLimit = 20

// FetchJobsExcludingApplied returns active jobs, optionally constrained by a
// location substring, minus the jobs userID already applied to.
// An empty location is no constraint.
func (r *Repository) FetchJobsExcludingApplied(ctx context.Context, userID, location string) ([]*Job, error) {
	q := backend.From(resourceJobs).
		Select("*").
		Eq("status", string(JobActive)).
		Order("created_at", true)
	if location = strings.TrimSpace(location); location != "" {
		q.ILike("location", location)
	}

	var rows []*Job
	if err := r.store.Select(ctx, q, &rows); err != nil {
		return []*Job{}, fmt.Errorf("fetch jobs: %w", err)
	}

	applied, err := r.AppliedJobIDs(ctx, userID)
	if err != nil {
		// Without the applied set we cannot guarantee the exclusion.
		return []*Job{}, err
	}

	jobs := NewJobs(rows)
	excluded := jobs.Exclude(JobIDField, applied)
	if len(excluded) > 0 {
		r.logger.Debug("excluding already applied jobs",
			zap.String("user_id", userID),
			zap.Strings("excluded_jobs", excluded),
			zap.Int("jobs_left", jobs.Len()),
		)
	}

	return jobs.Items, nil
}

// SearchJobs matches q against title and company name of active jobs.
func (r *Repository) SearchJobs(ctx context.Context, query string) ([]*Job, error) {
	q := backend.From(resourceJobs).
		Select("*").
		Eq("status", string(JobActive)).
		Order("created_at", true)
	if query = strings.TrimSpace(query); query != "" {
		q.Or(backend.ILikeCond("title", query), backend.ILikeCond("company_name", query))
	}

	var rows []*Job
	if err := r.store.Select(ctx, q, &rows); err != nil {
		return []*Job{}, fmt.Errorf("search jobs: %w", err)
	}

	return NewJobs(rows).Items, nil
}

func (r *Repository) GetJob(ctx context.Context, jobID string) (*Job, error) {
	var rows []*Job
	q := backend.From(resourceJobs).Select("*").Eq("id", jobID).Limit(1)
	if err := r.store.Select(ctx, q, &rows); err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	if len(rows) == 0 || rows[0] == nil {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	return rows[0], nil
}

// EmployerJobs lists every job owned by employerID, active or closed.
func (r *Repository) EmployerJobs(ctx context.Context, employerID string) ([]*Job, error) {
	var rows []*Job
	q := backend.From(resourceJobs).
		Select("*").
		Eq("employer_id", employerID).
		Order("created_at", true)
	if err := r.store.Select(ctx, q, &rows); err != nil {
		return []*Job{}, fmt.Errorf("fetch employer jobs: %w", err)
	}
	return NewJobs(rows).Items, nil
}

// JobDraft holds the fields an employer provides when posting.
type JobDraft struct {
	Title        string
	CompanyName  string
	Location     string
	SalaryRange  string
	JobType      string
	Description  string
	Requirements []string
	Skills       []string
	Benefits     []string
}

// PostJob publishes a new active job owned by employerID.
func (r *Repository) PostJob(ctx context.Context, employerID string, draft JobDraft) (*Job, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return nil, &ValidationError{Msg: "job title is required"}
	}

	row := map[string]any{
		"employer_id":  employerID,
		"title":        strings.TrimSpace(draft.Title),
		"company_name": strings.TrimSpace(draft.CompanyName),
		"location":     strings.TrimSpace(draft.Location),
		"salary_range": strings.TrimSpace(draft.SalaryRange),
		"job_type":     strings.TrimSpace(draft.JobType),
		"description":  strings.TrimSpace(draft.Description),
		"requirements": nonNil(draft.Requirements),
		"skills":       nonNil(draft.Skills),
		"benefits":     nonNil(draft.Benefits),
		"status":       string(JobActive),
	}

	var created []*Job
	if err := r.store.Insert(ctx, resourceJobs, row, &created); err != nil {
		return nil, fmt.Errorf("post job: %w", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("post job: empty response")
	}

	return created[0], nil
}

// CloseJob moves a job owned by employerID to closed. The record is kept for history.
func (r *Repository) CloseJob(ctx context.Context, employerID, jobID string) error {
	job, err := r.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.EmployerID != employerID {
		return ErrNotOwner
	}

	q := backend.From(resourceJobs).Eq("id", jobID).Eq("employer_id", employerID)
	if err := r.store.Update(ctx, q, map[string]string{"status": string(JobClosed)}, nil); err != nil {
		return fmt.Errorf("close job %s: %w", jobID, err)
	}

	return nil
}

// RecordJobView upserts the (user, job) view, refreshing its timestamp.
func (r *Repository) RecordJobView(ctx context.Context, userID, jobID string) error {
	row := map[string]string{
		"user_id":   userID,
		"job_id":    jobID,
		"viewed_at": r.now().Format(timeLayout),
	}

	if err := r.store.Upsert(ctx, resourceRecentlyViewed, row, []string{"user_id", "job_id"}, nil); err != nil {
		return fmt.Errorf("record job view: %w", err)
	}

	return nil
}

// FetchRecentlyViewed returns the latest viewed jobs of userID, newest first.
func (r *Repository) FetchRecentlyViewed(ctx context.Context, userID string, limit int) ([]*RecentlyViewed, error) {
	if limit <= 0 {
		limit = recentlyViewedLimit
	}

	q := backend.From(resourceRecentlyViewed).
		Select("*,jobs(*)").
		Eq("user_id", userID).
		Order("viewed_at", true).
		Limit(limit)

	var rows []*RecentlyViewed
	if err := r.store.Select(ctx, q, &rows); err != nil {
		return []*RecentlyViewed{}, fmt.Errorf("fetch recently viewed: %w", err)
	}

	views := make([]*RecentlyViewed, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if row == nil || row.Job == nil {
			continue
		}
		if _, ok := seen[row.JobID]; ok {
			continue
		}
		seen[row.JobID] = struct{}{}
		views = append(views, row)
	}

	return views, nil
}

// SaveJob bookmarks a job. Saving an already saved job succeeds without creating a row.
func (r *Repository) SaveJob(ctx context.Context, userID, jobID string) error {
	row := map[string]string{"user_id": userID, "job_id": jobID}

	err := r.store.Insert(ctx, resourceSavedJobs, row, nil)
	if backend.IsUniqueViolation(err) {
		r.logger.Debug("job already saved", zap.String("user_id", userID), zap.String("job_id", jobID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("save job: %w", err)
	}

	return nil
}

func (r *Repository) UnsaveJob(ctx context.Context, userID, jobID string) error {
	q := backend.From(resourceSavedJobs).Eq("user_id", userID).Eq("job_id", jobID)
	if err := r.store.Delete(ctx, q); err != nil {
		return fmt.Errorf("unsave job: %w", err)
	}
	return nil
}

// FetchSavedJobs returns the bookmarked jobs of userID, newest bookmark first.
func (r *Repository) FetchSavedJobs(ctx context.Context, userID string) ([]*Job, error) {
	q := backend.From(resourceSavedJobs).
		Select("*,jobs(*)").
		Eq("user_id", userID).
		Order("created_at", true)

	var rows []*SavedJob
	if err := r.store.Select(ctx, q, &rows); err != nil {
		return []*Job{}, fmt.Errorf("fetch saved jobs: %w", err)
	}

	jobs := make([]*Job, 0, len(rows))
	for _, row := range rows {
		if row != nil && row.Job != nil {
			jobs = append(jobs, row.Job)
		}
	}

	return NewJobs(jobs).Items, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
