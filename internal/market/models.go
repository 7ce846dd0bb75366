package market

import (
	"strings"
	"time"
)

type Role string

const (
	RoleSeeker   Role = "seeker"
	RoleEmployer Role = "employer"
)

type JobStatus string

const (
	JobActive JobStatus = "active"
	JobClosed JobStatus = "closed"
)

const anonymousApplicant = "Anonymous Applicant"

type Preferences struct {
	SalaryMin       int    `json:"salary_min,omitempty"`
	SalaryMax       int    `json:"salary_max,omitempty"`
	MaxDistanceKm   int    `json:"max_distance_km,omitempty"`
	JobType         string `json:"job_type,omitempty"`
	Shift           string `json:"shift,omitempty"`
	ExperienceLevel string `json:"experience_level,omitempty"`
}

type Profile struct {
	ID          string       `json:"id"`
	Role        Role         `json:"role"`
	FullName    string       `json:"full_name,omitempty"`
	CompanyName string       `json:"company_name,omitempty"`
	Headline    string       `json:"headline,omitempty"`
	Skills      []string     `json:"skills,omitempty"`
	Bio         string       `json:"bio,omitempty"`
	ResumeURL   string       `json:"resume_url,omitempty"`
	AvatarURL   string       `json:"avatar_url,omitempty"`
	Preferences *Preferences `json:"preferences,omitempty"`
}

// DisplayName returns the company name for employers and the full name otherwise.
func (p *Profile) DisplayName() string {
	if p == nil {
		return anonymousApplicant
	}
	if p.Role == RoleEmployer && strings.TrimSpace(p.CompanyName) != "" {
		return p.CompanyName
	}
	if name := strings.TrimSpace(p.FullName); name != "" {
		return name
	}
	return anonymousApplicant
}

type Job struct {
	ID           string    `json:"id"`
	EmployerID   string    `json:"employer_id"`
	Title        string    `json:"title"`
	CompanyName  string    `json:"company_name,omitempty"`
	Location     string    `json:"location,omitempty"`
	SalaryRange  string    `json:"salary_range,omitempty"`
	JobType      string    `json:"job_type,omitempty"`
	Description  string    `json:"description,omitempty"`
	Requirements []string  `json:"requirements,omitempty"`
	Skills       []string  `json:"skills,omitempty"`
	Benefits     []string  `json:"benefits,omitempty"`
	Status       JobStatus `json:"status,omitempty"`
	CreatedAt    time.Time `json:"created_at"`

	// Match is filled by the recommendation pipeline.
	Match *Match `json:"-"`
}

// Match is the scoring annotation attached to a recommended job.
type Match struct {
	Score     int
	RawScore  int
	Boosted   bool
	Note      string
	NoteError string
}

type Application struct {
	ID          string            `json:"id"`
	JobID       string            `json:"job_id"`
	ApplicantID string            `json:"applicant_id"`
	Status      ApplicationStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`

	// Job is the embedded "jobs" relation when requested.
	Job *Job `json:"jobs,omitempty"`
}

type SavedJob struct {
	UserID    string    `json:"user_id"`
	JobID     string    `json:"job_id"`
	CreatedAt time.Time `json:"created_at"`
	Job       *Job      `json:"jobs,omitempty"`
}

type RecentlyViewed struct {
	UserID   string    `json:"user_id"`
	JobID    string    `json:"job_id"`
	ViewedAt time.Time `json:"viewed_at"`
	Job      *Job      `json:"jobs,omitempty"`
}

type Message struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"application_id"`
	SenderID      string    `json:"sender_id"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
}

// ApplicantView is the denormalized row shown to employers.
type ApplicantView struct {
	ApplicationID string
	ApplicantID   string
	Name          string
	Headline      string
	AvatarURL     string
	JobID         string
	JobTitle      string
	Status        ApplicationStatus
	AppliedAt     time.Time
}

// ConversationSummary is one chat per application with its latest message.
type ConversationSummary struct {
	ApplicationID string
	JobID         string
	JobTitle      string
	ApplicantID   string
	ApplicantName string
	AvatarURL     string
	Status        ApplicationStatus
	StartedAt     time.Time
	LastMessage   *Message
}

// LastActivity is the time of the latest message or the application itself.
func (c *ConversationSummary) LastActivity() time.Time {
	if c.LastMessage != nil {
		return c.LastMessage.CreatedAt
	}
	return c.StartedAt
}
