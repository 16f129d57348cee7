package domain

import "time"

type ImportStatus string

const (
	StatusPending   ImportStatus = "pending"
	StatusCounting  ImportStatus = "counting"
	StatusImporting ImportStatus = "importing"
	StatusCompleted ImportStatus = "completed"
	StatusFailed    ImportStatus = "failed"
	StatusCancelled ImportStatus = "cancelled"
)

// transitions is the closed set of legal status moves. failed and
// cancelled are reachable from any non-terminal state.
var transitions = map[ImportStatus][]ImportStatus{
	StatusPending:   {StatusCounting, StatusFailed, StatusCancelled},
	StatusCounting:  {StatusImporting, StatusFailed, StatusCancelled},
	StatusImporting: {StatusCompleted, StatusFailed, StatusCancelled},
}

// CanTransition reports whether from -> to is a legal status move.
// Terminal states have no outgoing transitions.
func CanTransition(from, to ImportStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a run in this status can never move again.
func (s ImportStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

type ImportRange string

const (
	RangeThreeMonths ImportRange = "last_3_months"
	RangeOneYear     ImportRange = "last_1_year"
	RangeThreeYears  ImportRange = "last_3_years"
)

// Valid reports whether the range is one of the supported values.
func (r ImportRange) Valid() bool {
	switch r {
	case RangeThreeMonths, RangeOneYear, RangeThreeYears:
		return true
	}
	return false
}

// Cutoff returns the earliest receivedDateTime the backfill reaches back to.
func (r ImportRange) Cutoff(now time.Time) time.Time {
	switch r {
	case RangeOneYear:
		return now.AddDate(-1, 0, 0)
	case RangeThreeYears:
		return now.AddDate(-3, 0, 0)
	default:
		return now.AddDate(0, -3, 0)
	}
}

// ImportRun is one historical backfill attempt. Status, FolderIndex and
// PageLink are the only memory the orchestrator needs to resume after a
// crash; PageLink is the provider-issued cursor stored verbatim.
type ImportRun struct {
	ID             string       `json:"id" gorm:"primaryKey"`
	UserID         string       `json:"user_id" gorm:"index;not null"`
	Range          ImportRange  `json:"range"`
	Status         ImportStatus `json:"status" gorm:"index"`
	TotalEmails    int64        `json:"total_emails"`
	ImportedEmails int64        `json:"imported_emails"`
	SkippedEmails  int64        `json:"skipped_emails"`
	FailedEmails   int64        `json:"failed_emails"`
	EnrichedEmails int64        `json:"enriched_emails"`
	FolderIndex    int          `json:"folder_index"`
	PageLink       string       `json:"-"`
	Error          string       `json:"error,omitempty"`
	StartedAt      time.Time    `json:"started_at"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// MaxErrorLength bounds the stored human-readable failure message.
const MaxErrorLength = 500

// TruncateError shortens an error message to fit the Error column.
func TruncateError(msg string) string {
	if len(msg) > MaxErrorLength {
		return msg[:MaxErrorLength]
	}
	return msg
}
