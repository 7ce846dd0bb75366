package filtering

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/skillmatch/internal/ai"
	"github.com/spigell/skillmatch/internal/logger"
	"github.com/spigell/skillmatch/internal/market"
)

const defaultMaxNotes = 5

type aiNoteFilter struct {
	enabled bool
	reason  string
	config  *AINoteConfig
	deps    *AINoteDeps
}

type AINoteDeps struct {
	Logger    *zap.Logger
	Explainer ai.Explainer
	Seeker    *market.Profile
}

type AINoteConfig struct {
	Enabled  bool
	Provider string
	Model    string
	// MaxNotes bounds the number of explained jobs, counted from the top of the ranking.
	MaxNotes int
}

// NewAINote creates the step that attaches a generated note to the top ranked jobs.
// Generation failures are recorded on the job and never drop it.
func NewAINote(cfg *AINoteConfig, deps *AINoteDeps) Filter {
	if cfg == nil {
		cfg = &AINoteConfig{}
	}
	if deps == nil {
		deps = &AINoteDeps{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &aiNoteFilter{enabled: cfg.Enabled, config: cfg, deps: deps}
}

func (f *aiNoteFilter) Name() string { return "ai_note" }

func (f *aiNoteFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *aiNoteFilter) IsEnabled() bool { return f.enabled }

func (f *aiNoteFilter) Validate() error {
	if f.deps.Explainer == nil {
		return errors.New("explainer is required when ai notes are enabled")
	}
	if f.deps.Seeker == nil {
		return errors.New("seeker profile is required when ai notes are enabled")
	}
	return nil
}

func (f *aiNoteFilter) Apply(ctx context.Context, jobs *market.Jobs) (*market.Jobs, Step, error) {
	initial := jobs.Len()
	limit := f.config.MaxNotes
	if limit <= 0 {
		limit = defaultMaxNotes
	}

	log := logger.WithAI(f.deps.Logger, f.config.Provider, f.config.Model)

	explained := 0
	for _, job := range jobs.Items {
		if explained >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return jobs, Step{}, err
		}

		if job.Match == nil {
			job.Match = &market.Match{}
		}

		note, err := f.deps.Explainer.Explain(ctx, f.deps.Seeker, job, job.Match.Score)
		explained++
		if err != nil {
			log.Warn("AI note failed", logger.JobID(job.ID), zap.Error(err))
			job.Match.NoteError = err.Error()
			continue
		}

		job.Match.Note = note
	}

	return jobs, Step{Initial: initial, Dropped: 0, Left: jobs.Len()}, nil
}

func (f *aiNoteFilter) Status() Status {
	details := map[string]string{
		"max_notes": strconv.Itoa(f.config.MaxNotes),
	}
	if f.config.Model != "" {
		details["model"] = f.config.Model
	}
	if f.config.Provider != "" {
		details["provider"] = f.config.Provider
	}
	return Status{Name: f.Name(), Enabled: f.enabled, Reason: f.reason, Details: details}
}
