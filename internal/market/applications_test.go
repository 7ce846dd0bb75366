package market

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/skillmatch/internal/backend"
)

func TestApplyToJobTwice(t *testing.T) {
	store := newFakeStore()
	store.unique[resourceApplications] = []string{"job_id", "applicant_id"}
	repo := newTestRepository(store)

	app, err := repo.ApplyToJob(context.Background(), "j1", "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app.Status != StatusPending || app.JobID != "j1" || app.ApplicantID != "u1" {
		t.Fatalf("unexpected application %+v", app)
	}

	_, err = repo.ApplyToJob(context.Background(), "j1", "u1")
	if !errors.Is(err, ErrAlreadyApplied) {
		t.Fatalf("expected ErrAlreadyApplied, got %v", err)
	}
	if n := store.count(resourceApplications); n != 1 {
		t.Fatalf("expected a single application row, got %d", n)
	}
}

func foreignKeyConflict(constraint string) error {
	return &backend.APIError{
		Status:  409,
		Code:    "23503",
		Message: `insert or update violates foreign key constraint "` + constraint + `"`,
	}
}

func TestApplyToJobMissingJobIsNotDuplicate(t *testing.T) {
	store := newFakeStore()
	store.failWrite[resourceApplications] = foreignKeyConflict("applications_job_id_fkey")
	repo := newTestRepository(store)

	_, err := repo.ApplyToJob(context.Background(), "gone", "u1")
	if err == nil {
		t.Fatal("expected error for a job that does not exist")
	}
	if errors.Is(err, ErrAlreadyApplied) {
		t.Fatalf("foreign key conflict must not read as a duplicate: %v", err)
	}

	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "23503" {
		t.Fatalf("expected the backend error to be kept, got %v", err)
	}
}

func TestApplyThenFetchExcludesJob(t *testing.T) {
	store := newFakeStore()
	store.seed(resourceJobs, jobRow("j1", "e1", "Go Developer"), jobRow("j2", "e1", "Rust Developer"))
	repo := newTestRepository(store)

	if _, err := repo.ApplyToJob(context.Background(), "j1", "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	jobs, err := repo.FetchJobsExcludingApplied(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ids := NewJobs(jobs).IDs(); len(ids) != 1 || ids[0] != "j2" {
		t.Fatalf("expected only j2, got %v", ids)
	}
}

func TestFetchApplicationsWithJobDegrades(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := newFakeStore()
	store.handlers[resourceApplications] = func(*backend.Query) ([]map[string]any, error) {
		return nil, &backend.APIError{Status: 400, Message: "Could not find a relationship"}
	}
	repo := NewRepository(store, zap.New(core))

	apps, err := repo.FetchApplicationsWithJob(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected degraded success, got %v", err)
	}
	if apps == nil || len(apps) != 0 {
		t.Fatalf("expected empty non-nil list, got %v", apps)
	}
	if logs.Len() != 1 {
		t.Fatalf("expected one warning, got %d", logs.Len())
	}
}

func TestFetchApplicationsWithJobDropsMissingJoin(t *testing.T) {
	store := newFakeStore()
	store.handlers[resourceApplications] = func(*backend.Query) ([]map[string]any, error) {
		return []map[string]any{
			{"id": "a1", "job_id": "j1", "applicant_id": "u1", "status": "pending", "jobs": jobRow("j1", "e1", "Go")},
			{"id": "a2", "job_id": "j2", "applicant_id": "u1", "status": "pending"},
			{"id": "a1", "job_id": "j1", "applicant_id": "u1", "status": "pending", "jobs": jobRow("j1", "e1", "Go")},
		}, nil
	}
	repo := newTestRepository(store)

	apps, err := repo.FetchApplicationsWithJob(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(apps) != 1 || apps[0].ID != "a1" || apps[0].Job.Title != "Go" {
		t.Fatalf("unexpected applications %+v", apps)
	}
}

func TestFetchApplicantsForEmployerNoApplications(t *testing.T) {
	store := newFakeStore()
	store.handlers[resourceApplications] = func(*backend.Query) ([]map[string]any, error) {
		return nil, nil
	}
	repo := newTestRepository(store)

	views, err := repo.FetchApplicantsForEmployer(context.Background(), "e1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if views == nil || len(views) != 0 {
		t.Fatalf("expected empty non-nil list, got %v", views)
	}
	if q := store.queriesWith("profiles?"); len(q) != 0 {
		t.Fatalf("expected no profile batch, got %d queries", len(q))
	}
}

func employerApplications(*backend.Query) ([]map[string]any, error) {
	job := map[string]any{"id": "j1", "title": "Go Developer", "employer_id": "e1"}
	return []map[string]any{
		{"id": "a1", "job_id": "j1", "applicant_id": "u1", "status": "pending", "created_at": "2024-04-02T10:00:00Z", "jobs": job},
		{"id": "a2", "job_id": "j1", "applicant_id": "u2", "status": "interview", "created_at": "2024-04-01T10:00:00Z", "jobs": job},
		{"id": "a3", "job_id": "j9", "applicant_id": "u3", "status": "pending", "created_at": "2024-04-01T09:00:00Z",
			"jobs": map[string]any{"id": "j9", "title": "Other", "employer_id": "e2"}},
	}, nil
}

func TestFetchApplicantsForEmployerMergesProfiles(t *testing.T) {
	store := newFakeStore()
	store.handlers[resourceApplications] = employerApplications
	store.seed(resourceProfiles, map[string]any{"id": "u1", "role": "seeker", "full_name": "Ada Lovelace", "headline": "Go developer"})
	repo := newTestRepository(store)

	views, err := repo.FetchApplicantsForEmployer(context.Background(), "e1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 applicants, got %d", len(views))
	}
	if views[0].Name != "Ada Lovelace" || views[0].Headline != "Go developer" || views[0].JobTitle != "Go Developer" {
		t.Fatalf("unexpected first view %+v", views[0])
	}
	if views[1].Name != "Anonymous Applicant" || views[1].Status != StatusInterview {
		t.Fatalf("unexpected second view %+v", views[1])
	}

	profileQueries := store.queriesWith("profiles?")
	if len(profileQueries) != 1 {
		t.Fatalf("expected a single profile batch, got %d", len(profileQueries))
	}
	if got := profileQueries[0].Get("id"); got != "in.(u1,u2)" {
		t.Fatalf("unexpected profile filter %q", got)
	}

	appQuery := store.queriesWith("applications?")[0]
	if appQuery.Get("jobs.employer_id") != "eq.e1" {
		t.Fatalf("expected employer filter on the joined job, got %s", appQuery)
	}
}

func TestFetchApplicantsForEmployerProfileFailure(t *testing.T) {
	store := newFakeStore()
	store.handlers[resourceApplications] = employerApplications
	store.handlers[resourceProfiles] = func(*backend.Query) ([]map[string]any, error) {
		return nil, errors.New("timeout")
	}
	repo := newTestRepository(store)

	views, err := repo.FetchApplicantsForEmployer(context.Background(), "e1", "j1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, v := range views {
		if v.Name != "Anonymous Applicant" {
			t.Fatalf("expected anonymous applicant, got %q", v.Name)
		}
	}
	if q := store.queriesWith("applications?")[0]; q.Get("job_id") != "eq.j1" {
		t.Fatalf("expected job filter, got %s", q)
	}
}

func seedOwnedApplication(store *fakeStore, status string) {
	store.seed(resourceApplications, map[string]any{
		"id": "a1", "job_id": "j1", "applicant_id": "u1", "status": status, "created_at": "2024-04-01T10:00:00Z",
	})
	store.handlers[resourceApplications] = func(q *backend.Query) ([]map[string]any, error) {
		values, _ := q.Values()
		rows := store.filter(resourceApplications, values)
		out := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			joined := make(map[string]any, len(row)+1)
			for k, v := range row {
				joined[k] = v
			}
			joined["jobs"] = map[string]any{"id": "j1", "title": "Go Developer", "employer_id": "e1"}
			out = append(out, joined)
		}
		return out, nil
	}
}

func TestUpdateApplicationStatus(t *testing.T) {
	store := newFakeStore()
	seedOwnedApplication(store, "pending")
	repo := newTestRepository(store)

	app, err := repo.UpdateApplicationStatus(context.Background(), "e1", "a1", StatusInterview)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app.Status != StatusInterview || app.Job == nil {
		t.Fatalf("unexpected application %+v", app)
	}
	if status := store.tables[resourceApplications][0]["status"]; status != "interview" {
		t.Fatalf("expected stored interview, got %v", status)
	}
}

func TestUpdateApplicationStatusRejections(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		employer string
		next     ApplicationStatus
		check    func(error) bool
	}{
		{
			name: "not owner", current: "pending", employer: "e2", next: StatusShortlisted,
			check: func(err error) bool { return errors.Is(err, ErrNotOwner) },
		},
		{
			name: "terminal status", current: "rejected", employer: "e1", next: StatusPending,
			check: func(err error) bool {
				return errors.Is(err, ErrInvalidTransition) && strings.Contains(err.Error(), "no further changes")
			},
		},
		{
			name: "backwards transition", current: "interview", employer: "e1", next: StatusShortlisted,
			check: func(err error) bool {
				return errors.Is(err, ErrInvalidTransition) && !strings.Contains(err.Error(), "no further changes")
			},
		},
		{
			name: "unknown status", current: "pending", employer: "e1", next: ApplicationStatus("hired"),
			check: func(err error) bool {
				var verr *ValidationError
				return errors.As(err, &verr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			seedOwnedApplication(store, tt.current)
			repo := newTestRepository(store)

			_, err := repo.UpdateApplicationStatus(context.Background(), tt.employer, "a1", tt.next)
			if !tt.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
			if status := store.tables[resourceApplications][0]["status"]; status != tt.current {
				t.Fatalf("status must stay %s, got %v", tt.current, status)
			}
		})
	}
}
