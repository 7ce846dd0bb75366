package market

import "fmt"

// ApplicationStatus values mirror the application status column of the store.
//
//	pending ──► shortlisted ──► interview
//	   │             │              │
//	   └─────────────┴──────────────┴──► rejected
//
// pending may also jump straight to interview. rejected is terminal.
type ApplicationStatus string

const (
	StatusPending     ApplicationStatus = "pending"
	StatusShortlisted ApplicationStatus = "shortlisted"
	StatusInterview   ApplicationStatus = "interview"
	StatusRejected    ApplicationStatus = "rejected"
)

var validTransitions = map[ApplicationStatus][]ApplicationStatus{
	StatusPending:     {StatusShortlisted, StatusInterview, StatusRejected},
	StatusShortlisted: {StatusInterview, StatusRejected},
	StatusInterview:   {StatusRejected},
}

// ParseStatus converts a raw string to an ApplicationStatus.
func ParseStatus(s string) (ApplicationStatus, error) {
	st := ApplicationStatus(s)
	switch st {
	case StatusPending, StatusShortlisted, StatusInterview, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// IsTransitionAllowed reports whether an application may move from → to.
func IsTransitionAllowed(from, to ApplicationStatus) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s ApplicationStatus) bool {
	return len(validTransitions[s]) == 0
}
