package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/eliOcs/crm-backend/internal/mailbox/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrRunMoved means the stored run no longer matches the state a writer
// loaded it in; the writer's change was discarded.
var ErrRunMoved = errors.New("import run was changed by another writer")

type importRunRepository struct {
	db *gorm.DB
}

func NewImportRunRepository(db *gorm.DB) ImportRunRepository {
	return &importRunRepository{db: db}
}

func (r *importRunRepository) FindByID(id string) (*domain.ImportRun, error) {
	var run domain.ImportRun
	err := r.db.Where("id = ?", id).First(&run).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

func (r *importRunRepository) FindActiveByUser(userID string) (*domain.ImportRun, error) {
	var run domain.ImportRun
	err := r.db.
		Where("user_id = ? AND status IN ?", userID, []domain.ImportStatus{
			domain.StatusPending, domain.StatusCounting, domain.StatusImporting,
		}).
		First(&run).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

func (r *importRunRepository) FindLatestByUser(userID string) (*domain.ImportRun, error) {
	var run domain.ImportRun
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").First(&run).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

func (r *importRunRepository) FindStalled(updatedBefore time.Time) ([]domain.ImportRun, error) {
	var runs []domain.ImportRun
	err := r.db.
		Where("status IN ? AND updated_at < ?", []domain.ImportStatus{
			domain.StatusPending, domain.StatusCounting, domain.StatusImporting,
		}, updatedBefore).
		Order("created_at").
		Find(&runs).Error
	return runs, err
}

func (r *importRunRepository) Create(run *domain.ImportRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	now := time.Now()
	run.CreatedAt = now
	run.UpdatedAt = now
	return r.db.Create(run).Error
}

// Transition moves the run to a new status. The write is guarded on the
// status the caller loaded it in: if another writer moved the run in the
// meantime (a cancellation, a duplicate step) the write misses and
// ErrRunMoved is returned, so a terminal state is never clobbered.
func (r *importRunRepository) Transition(run *domain.ImportRun, to domain.ImportStatus) error {
	from := run.Status
	if !domain.CanTransition(from, to) {
		return fmt.Errorf("illegal import run transition %s -> %s", from, to)
	}

	run.Status = to
	if to.IsTerminal() {
		now := time.Now()
		run.CompletedAt = &now
	}

	res := r.db.Model(&domain.ImportRun{}).
		Where("id = ? AND status = ?", run.ID, from).
		Updates(r.runColumns(run))
	if res.Error != nil {
		run.Status = from
		return res.Error
	}
	if res.RowsAffected == 0 {
		run.Status = from
		return ErrRunMoved
	}
	return nil
}

// UpdateStep persists one page of progress. The write is guarded on the
// status, cursor and folder the step was loaded with, so a cancelled run
// is never resurrected and a duplicate step's counters are discarded
// instead of overwriting the winner's.
func (r *importRunRepository) UpdateStep(run *domain.ImportRun, fromLink string, fromFolder int) (bool, error) {
	res := r.db.Model(&domain.ImportRun{}).
		Where("id = ? AND status = ? AND page_link = ? AND folder_index = ?",
			run.ID, run.Status, fromLink, fromFolder).
		Updates(r.runColumns(run))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *importRunRepository) runColumns(run *domain.ImportRun) map[string]interface{} {
	run.UpdatedAt = time.Now()
	return map[string]interface{}{
		"status":          run.Status,
		"total_emails":    run.TotalEmails,
		"imported_emails": run.ImportedEmails,
		"skipped_emails":  run.SkippedEmails,
		"failed_emails":   run.FailedEmails,
		"enriched_emails": run.EnrichedEmails,
		"folder_index":    run.FolderIndex,
		"page_link":       run.PageLink,
		"error":           run.Error,
		"completed_at":    run.CompletedAt,
		"updated_at":      run.UpdatedAt,
	}
}
