// Package ai declares the optional language-model features of recommendations.
package ai

import (
	"context"

	"github.com/spigell/skillmatch/internal/market"
)

// Explainer writes a short note on why a job fits a seeker.
type Explainer interface {
	Explain(ctx context.Context, seeker *market.Profile, job *market.Job, score int) (string, error)
}
