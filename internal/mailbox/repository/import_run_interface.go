package repository

import (
	"time"

	"github.com/eliOcs/crm-backend/internal/mailbox/domain"
)

// ImportRunRepository persists backfill runs. The run record is the state
// machine's only memory between steps, and every write is guarded against
// concurrent writers: a step that lost the race discards its progress
// instead of overwriting the winner's.
type ImportRunRepository interface {
	// FindByID returns (nil, nil) when the run no longer exists.
	FindByID(id string) (*domain.ImportRun, error)
	// FindActiveByUser returns the user's non-terminal run, if any.
	FindActiveByUser(userID string) (*domain.ImportRun, error)
	FindLatestByUser(userID string) (*domain.ImportRun, error)
	// FindStalled returns non-terminal runs not written since the cutoff,
	// oldest first. Used to revive step chains after a crash.
	FindStalled(updatedBefore time.Time) ([]domain.ImportRun, error)
	Create(run *domain.ImportRun) error
	// Transition moves the run to a new status, enforcing the legal
	// transition set. Returns ErrRunMoved when the stored status no longer
	// matches the one the run was loaded in.
	Transition(run *domain.ImportRun, to domain.ImportStatus) error
	// UpdateStep persists one page of progress, guarded on the cursor,
	// folder and status the step started from; reports whether the write
	// landed.
	UpdateStep(run *domain.ImportRun, fromLink string, fromFolder int) (bool, error)
}
