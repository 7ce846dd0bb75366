package market

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/skillmatch/internal/backend"
)

// FetchEmployerChats builds one conversation summary per application to any
// job of employerID: jobs, then applications, then applicant profiles, then
// the latest message of each conversation. Each phase with no rows ends the
// fan-out with an empty result.
func (r *Repository) FetchEmployerChats(ctx context.Context, employerID string) ([]*ConversationSummary, error) {
	var jobs []*Job
	jobsQuery := backend.From(resourceJobs).Select("id,title,employer_id").Eq("employer_id", employerID)
	if err := r.store.Select(ctx, jobsQuery, &jobs); err != nil {
		return []*ConversationSummary{}, fmt.Errorf("fetch employer jobs: %w", err)
	}

	owned := NewJobs(jobs)
	if owned.Len() == 0 {
		return []*ConversationSummary{}, nil
	}

	var rows []*Application
	appsQuery := backend.From(resourceApplications).
		Select("id,job_id,applicant_id,status,created_at").
		In("job_id", owned.IDs()).
		Order("created_at", true)
	if err := r.store.Select(ctx, appsQuery, &rows); err != nil {
		return []*ConversationSummary{}, fmt.Errorf("fetch applications for chats: %w", err)
	}

	apps := make([]*Application, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	applicantIDs := make([]string, 0, len(rows))
	for _, app := range rows {
		if app == nil || owned.FindByID(app.JobID) == nil {
			continue
		}
		if _, ok := seen[app.ID]; ok {
			continue
		}
		seen[app.ID] = struct{}{}
		apps = append(apps, app)
		applicantIDs = append(applicantIDs, app.ApplicantID)
	}

	if len(apps) == 0 {
		return []*ConversationSummary{}, nil
	}

	profiles := r.profilesByID(ctx, applicantIDs)

	summaries := make([]*ConversationSummary, 0, len(apps))
	for _, app := range apps {
		profile := profiles[app.ApplicantID]
		summary := &ConversationSummary{
			ApplicationID: app.ID,
			JobID:         app.JobID,
			JobTitle:      owned.FindByID(app.JobID).Title,
			ApplicantID:   app.ApplicantID,
			ApplicantName: profile.DisplayName(),
			Status:        app.Status,
			StartedAt:     app.CreatedAt,
		}
		if profile != nil {
			summary.AvatarURL = profile.AvatarURL
		}

		last, err := r.LastMessage(ctx, app.ID)
		if err != nil {
			r.logger.Warn("fetching last message failed",
				zap.String("application_id", app.ID),
				zap.Error(err),
			)
		}
		summary.LastMessage = last

		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastActivity().After(summaries[j].LastActivity())
	})

	return summaries, nil
}

// SendMessage appends content to the conversation of applicationID.
func (r *Repository) SendMessage(ctx context.Context, applicationID, senderID, content string) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &ValidationError{Msg: "message content is required"}
	}
	if applicationID == "" {
		return nil, &ValidationError{Msg: "application id is required"}
	}

	row := map[string]string{
		"application_id": applicationID,
		"sender_id":      senderID,
		"content":        content,
	}

	var created []*Message
	if err := r.store.Insert(ctx, resourceMessages, row, &created); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	if len(created) == 0 || created[0] == nil {
		return nil, fmt.Errorf("send message: empty response")
	}

	return created[0], nil
}

// FetchMessages returns the conversation of applicationID, oldest first.
func (r *Repository) FetchMessages(ctx context.Context, applicationID string) ([]*Message, error) {
	q := backend.From(resourceMessages).
		Select("*").
		Eq("application_id", applicationID).
		Order("created_at", false)

	var rows []*Message
	if err := r.store.Select(ctx, q, &rows); err != nil {
		return []*Message{}, fmt.Errorf("fetch messages: %w", err)
	}

	messages := make([]*Message, 0, len(rows))
	for _, m := range rows {
		if m != nil {
			messages = append(messages, m)
		}
	}

	return messages, nil
}

// LastMessage returns the newest message of applicationID or nil for an empty conversation.
func (r *Repository) LastMessage(ctx context.Context, applicationID string) (*Message, error) {
	q := backend.From(resourceMessages).
		Select("*").
		Eq("application_id", applicationID).
		Order("created_at", true).
		Limit(1)

	var rows []*Message
	if err := r.store.Select(ctx, q, &rows); err != nil {
		return nil, fmt.Errorf("fetch last message: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	return rows[0], nil
}
