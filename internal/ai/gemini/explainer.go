package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/skillmatch/internal/logger"
	"github.com/spigell/skillmatch/internal/market"
	"github.com/spigell/skillmatch/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

//go:embed prompt.md
var systemPrompt string

const (
	defaultMaxLogLength = 200
	maxNoteLength       = 300
)

// Explainer writes match notes for recommended jobs.
type Explainer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewExplainer(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Explainer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Explainer{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

type seekerPayload struct {
	Headline string   `json:"headline,omitempty"`
	Skills   []string `json:"skills"`
	Bio      string   `json:"bio,omitempty"`
}

type jobPayload struct {
	Title        string   `json:"title"`
	Company      string   `json:"company,omitempty"`
	Location     string   `json:"location,omitempty"`
	JobType      string   `json:"job_type,omitempty"`
	Description  string   `json:"description,omitempty"`
	Requirements []string `json:"requirements,omitempty"`
	Skills       []string `json:"skills"`
}

func (e *Explainer) Explain(ctx context.Context, seeker *market.Profile, job *market.Job, score int) (string, error) {
	if seeker == nil {
		return "", errors.New("seeker profile is required")
	}
	if job == nil {
		return "", errors.New("job is required")
	}

	message, err := buildMessage(seeker, job, score)
	if err != nil {
		return "", err
	}

	e.logger.Debug("gemini explain request",
		logger.JobID(job.ID),
		logger.MatchScore(score),
		zap.Int("prompt_length", utf8.RuneCountInString(message)),
		zap.String("prompt_preview", utils.TruncateForLog(message, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateContent(ctx, systemPrompt, message)
	if err != nil {
		return "", err
	}

	e.logger.Debug("gemini explain response",
		logger.JobID(job.ID),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	return parseNote(raw)
}

func buildMessage(seeker *market.Profile, job *market.Job, score int) (string, error) {
	seekerJSON, err := json.MarshalIndent(seekerPayload{
		Headline: seeker.Headline,
		Skills:   nonNilStrings(seeker.Skills),
		Bio:      seeker.Bio,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal seeker payload: %w", err)
	}

	jobJSON, err := json.MarshalIndent(jobPayload{
		Title:        job.Title,
		Company:      job.CompanyName,
		Location:     job.Location,
		JobType:      job.JobType,
		Description:  job.Description,
		Requirements: job.Requirements,
		Skills:       nonNilStrings(job.Skills),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal job payload: %w", err)
	}

	var b strings.Builder
	b.WriteString("Seeker:\n")
	b.Write(seekerJSON)
	b.WriteString("\n\nJob:\n")
	b.Write(jobJSON)
	fmt.Fprintf(&b, "\n\nMatch score: %d\n\nJSON Response:", score)
	return b.String(), nil
}

// parseNote accepts {"note": "..."} optionally wrapped in a code block.
// A plain text answer is used as is.
func parseNote(raw string) (string, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return "", errors.New("gemini returned an empty note")
	}

	note := cleaned
	if strings.HasPrefix(cleaned, "{") {
		var data map[string]any
		if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
			return "", fmt.Errorf("parse gemini response: %w", err)
		}
		note = coerceString(data["note"])
	}

	if note == "" {
		return "", errors.New("gemini response has no note")
	}

	return utils.TruncateForLog(note, maxNoteLength), nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case nil:
		return ""
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
