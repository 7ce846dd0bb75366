// Package market is the data access layer of the marketplace. It turns domain
// operations into filtered REST calls and rebuilds the relational views the
// remote store cannot express in one round trip.
package market

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/skillmatch/internal/backend"
)

const (
	resourceProfiles       = "profiles"
	resourceJobs           = "jobs"
	resourceApplications   = "applications"
	resourceSavedJobs      = "saved_jobs"
	resourceRecentlyViewed = "recently_viewed"
	resourceMessages       = "messages"

	timeLayout = time.RFC3339Nano
)

var (
	// ErrAlreadyApplied is returned when the (job, applicant) pair already has an application.
	ErrAlreadyApplied = errors.New("already applied to this job")
	// ErrNotOwner is returned when a caller mutates a record it does not own.
	ErrNotOwner = errors.New("record is owned by another user")
	// ErrInvalidTransition is returned for application status changes outside the transition table.
	ErrInvalidTransition = errors.New("invalid application status transition")
	// ErrNotFound is returned when a single requested record does not exist.
	ErrNotFound = errors.New("record not found")
)

// Store is the transport the repository runs on. backend.Client implements it.
type Store interface {
	Select(ctx context.Context, q *backend.Query, target any) error
	Insert(ctx context.Context, resource string, row any, target any) error
	Upsert(ctx context.Context, resource string, row any, onConflict []string, target any) error
	Update(ctx context.Context, q *backend.Query, patch any, target any) error
	Delete(ctx context.Context, q *backend.Query) error
}

// ValidationError wraps a user-facing validation message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

type Repository struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewRepository(store Store, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Repository{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}
