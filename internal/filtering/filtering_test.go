package filtering

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/skillmatch/internal/market"
	"github.com/spigell/skillmatch/internal/matching"
)

type stubLister struct {
	ids []string
	err error
}

func (s *stubLister) AppliedJobIDs(context.Context, string) ([]string, error) {
	return s.ids, s.err
}

type stubExplainer struct {
	notes map[string]string
	errs  map[string]error
	calls []string
}

func (s *stubExplainer) Explain(_ context.Context, _ *market.Profile, job *market.Job, _ int) (string, error) {
	s.calls = append(s.calls, job.ID)
	if err := s.errs[job.ID]; err != nil {
		return "", err
	}
	return s.notes[job.ID], nil
}

func testJobs() *market.Jobs {
	return market.NewJobs([]*market.Job{
		{ID: "j1", CompanyName: "Acme", JobType: "full-time", Title: "Go Developer", Skills: []string{"go", "sql"}},
		{ID: "j2", CompanyName: "Globex", JobType: "Full-Time", Title: "Barista", Skills: []string{"coffee"}},
		{ID: "j3", CompanyName: "Initech", JobType: "contract", Title: "Go Engineer", Skills: []string{"go"}},
		{ID: "j4", CompanyName: "acme ", JobType: "full-time", Title: "SQL Analyst", Skills: []string{"sql", "excel", "python"}},
	})
}

func TestRunPipeline(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	seeker := matching.Seeker{Skills: []string{"Go", "SQL"}}

	steps := []Filter{
		NewAppliedHistory(&stubLister{ids: []string{"j3"}}, "u1", nil),
		NewExcludedEmployers([]string{"Globex"}, nil),
		NewJobType(""),
		NewMatch(seeker),
	}

	jobs, err := Run(context.Background(), zap.New(core), steps, testJobs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids := jobs.IDs()
	if len(ids) != 1 || ids[0] != "j1" {
		t.Fatalf("expected [j1], got %v", ids)
	}
	if jobs.Items[0].Match == nil || jobs.Items[0].Match.Score != 98 {
		t.Fatalf("unexpected match %+v", jobs.Items[0].Match)
	}

	stepLogs := logs.FilterMessage("filter step").All()
	if len(stepLogs) != 3 {
		t.Fatalf("expected 3 executed steps, got %d", len(stepLogs))
	}
	match := stepLogs[2].ContextMap()
	if match["name"] != "match" || match["initial"] != int64(2) || match["dropped"] != int64(1) || match["left"] != int64(1) {
		t.Fatalf("unexpected match step log %v", match)
	}
}

func TestRunStopsOnValidationError(t *testing.T) {
	steps := []Filter{
		NewAppliedHistory(nil, "u1", nil),
		NewMatch(matching.Seeker{}),
	}

	_, err := Run(context.Background(), nil, steps, testJobs())
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestAppliedHistoryFailurePropagates(t *testing.T) {
	steps := []Filter{NewAppliedHistory(&stubLister{err: errors.New("offline")}, "u1", nil)}

	if _, err := Run(context.Background(), nil, steps, testJobs()); err == nil {
		t.Fatal("expected error when applied jobs cannot be listed")
	}
}

func TestExcludedEmployersCaseInsensitive(t *testing.T) {
	jobs, step, err := NewExcludedEmployers([]string{"ACME"}, nil).Apply(context.Background(), testJobs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if step.Dropped != 2 || step.Left != 2 {
		t.Fatalf("unexpected step %+v", step)
	}
	if ids := jobs.IDs(); ids[0] != "j2" || ids[1] != "j3" {
		t.Fatalf("unexpected jobs %v", ids)
	}
}

func TestJobTypeFilter(t *testing.T) {
	f := NewJobType("full-time")
	if !f.IsEnabled() {
		t.Fatal("expected filter to be enabled")
	}

	jobs, step, err := f.Apply(context.Background(), testJobs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if step.Dropped != 1 || jobs.FindByID("j3") != nil {
		t.Fatalf("expected contract job dropped, got %v", jobs.IDs())
	}

	if NewJobType("  ").IsEnabled() {
		t.Fatal("empty preference must disable the filter")
	}
}

func TestAINote(t *testing.T) {
	explainer := &stubExplainer{
		notes: map[string]string{"j1": "Strong Go overlap."},
		errs:  map[string]error{"j2": errors.New("quota")},
	}
	f := NewAINote(&AINoteConfig{Enabled: true, MaxNotes: 2}, &AINoteDeps{
		Explainer: explainer,
		Seeker:    &market.Profile{ID: "u1"},
	})

	if err := f.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	jobs, step, err := f.Apply(context.Background(), testJobs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if step.Dropped != 0 || step.Left != 4 {
		t.Fatalf("notes must never drop jobs, got %+v", step)
	}
	if len(explainer.calls) != 2 {
		t.Fatalf("expected 2 explained jobs, got %v", explainer.calls)
	}
	if jobs.Items[0].Match.Note != "Strong Go overlap." {
		t.Fatalf("unexpected note %+v", jobs.Items[0].Match)
	}
	if jobs.Items[1].Match.NoteError != "quota" {
		t.Fatalf("expected recorded error, got %+v", jobs.Items[1].Match)
	}
	if jobs.Items[2].Match != nil {
		t.Fatalf("jobs past the limit must stay untouched, got %+v", jobs.Items[2].Match)
	}
}

func TestAINoteValidation(t *testing.T) {
	f := NewAINote(&AINoteConfig{Enabled: true}, nil)
	if err := f.Validate(); err == nil {
		t.Fatal("expected error without explainer")
	}

	disabled := NewAINote(nil, nil)
	if disabled.IsEnabled() {
		t.Fatal("expected disabled filter by default")
	}
	if _, err := Run(context.Background(), nil, []Filter{disabled}, testJobs()); err != nil {
		t.Fatalf("disabled step must be skipped, got %v", err)
	}
}

func TestDescribeAndDisable(t *testing.T) {
	steps := []Filter{
		NewExcludedEmployers([]string{"Acme", "Globex"}, nil),
		NewAINote(&AINoteConfig{Enabled: true, Model: "m"}, nil),
	}

	DisableByName(steps, "ai_note", "flag not set")

	statuses := Describe(steps)
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[0].Details["companies"] != "Acme,Globex" {
		t.Fatalf("unexpected employers status %+v", statuses[0])
	}
	if statuses[1].Enabled || statuses[1].Reason != "flag not set" || statuses[1].Details["model"] != "m" {
		t.Fatalf("unexpected ai_note status %+v", statuses[1])
	}
}
