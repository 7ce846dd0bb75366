package market

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/skillmatch/internal/backend"
	"github.com/spigell/skillmatch/internal/utils"
)

func (r *Repository) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var rows []*Profile
	q := backend.From(resourceProfiles).Select("*").Eq("id", userID).Limit(1)
	if err := r.store.Select(ctx, q, &rows); err != nil {
		return nil, fmt.Errorf("get profile %s: %w", userID, err)
	}
	if len(rows) == 0 || rows[0] == nil {
		return nil, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
	}
	return rows[0], nil
}

// ProfileUpdate lists the owner-editable fields. Nil fields are left untouched.
type ProfileUpdate struct {
	FullName    *string
	CompanyName *string
	Headline    *string
	Skills      []string
	Bio         *string
	ResumeURL   *string
	AvatarURL   *string
	Preferences *Preferences
}

func (u ProfileUpdate) patch() map[string]any {
	patch := make(map[string]any)
	setString := func(key string, v *string) {
		if v != nil {
			patch[key] = strings.TrimSpace(*v)
		}
	}
	setString("full_name", u.FullName)
	setString("company_name", u.CompanyName)
	setString("headline", u.Headline)
	setString("bio", u.Bio)
	setString("resume_url", u.ResumeURL)
	setString("avatar_url", u.AvatarURL)
	if u.Skills != nil {
		skills := make([]string, 0, len(u.Skills))
		seen := make(map[string]struct{}, len(u.Skills))
		for _, s := range u.Skills {
			s = strings.TrimSpace(s)
			key := strings.ToLower(s)
			if s == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			skills = append(skills, s)
		}
		patch["skills"] = skills
	}
	if u.Preferences != nil {
		patch["preferences"] = u.Preferences
	}
	return patch
}

// UpdateProfile applies update to profileID. Only the owner may mutate a profile.
func (r *Repository) UpdateProfile(ctx context.Context, actorID, profileID string, update ProfileUpdate) (*Profile, error) {
	if actorID == "" || actorID != profileID {
		return nil, ErrNotOwner
	}

	patch := update.patch()
	if len(patch) == 0 {
		return r.GetProfile(ctx, profileID)
	}

	var rows []*Profile
	q := backend.From(resourceProfiles).Eq("id", profileID)
	if err := r.store.Update(ctx, q, patch, &rows); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if len(rows) == 0 || rows[0] == nil {
		return nil, fmt.Errorf("profile %s: %w", profileID, ErrNotFound)
	}

	return rows[0], nil
}

// CreateProfile inserts the profile created at sign up.
func (r *Repository) CreateProfile(ctx context.Context, profile *Profile) error {
	if profile == nil || profile.ID == "" {
		return &ValidationError{Msg: "profile id is required"}
	}
	if profile.Role != RoleSeeker && profile.Role != RoleEmployer {
		return &ValidationError{Msg: fmt.Sprintf("unknown role %q", profile.Role)}
	}

	if err := r.store.Insert(ctx, resourceProfiles, profile, nil); err != nil {
		if backend.IsUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("create profile: %w", err)
	}

	return nil
}

// profilesByID fetches distinct profiles in a single in.() request.
// Failures are logged and yield an empty map: callers render missing profiles anonymously.
func (r *Repository) profilesByID(ctx context.Context, ids []string) map[string]*Profile {
	profiles := make(map[string]*Profile)

	ids = utils.Unique(ids)
	if len(ids) == 0 {
		return profiles
	}

	q := backend.From(resourceProfiles).
		Select("id,role,full_name,company_name,headline,avatar_url").
		In("id", ids)

	var rows []*Profile
	if err := r.store.Select(ctx, q, &rows); err != nil {
		r.logger.Warn("fetching profiles failed; rendering applicants anonymously",
			zap.Int("profiles", len(ids)),
			zap.Error(err),
		)
		return profiles
	}

	for _, p := range rows {
		if p != nil {
			profiles[p.ID] = p
		}
	}

	return profiles
}
