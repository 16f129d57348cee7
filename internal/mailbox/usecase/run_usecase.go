package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/eliOcs/crm-backend/internal/mailbox/domain"
	"github.com/eliOcs/crm-backend/internal/mailbox/repository"
	"github.com/eliOcs/crm-backend/pkg/graph"
	"github.com/eliOcs/crm-backend/pkg/jobs"
)

// pageSize is the maximum number of messages pulled per step.
const pageSize = 50

// JobQueue is the slice of the worker pool the orchestrator needs to chain
// steps. Satisfied by *jobs.Pool.
type JobQueue interface {
	Submit(job jobs.Job) bool
}

// runUsecase implements RunUsecase as a resumable state machine. Each
// Advance call performs one step and re-enqueues itself, so a crash
// mid-run loses at most one page of progress.
type runUsecase struct {
	runRepo    repository.ImportRunRepository
	credRepo   repository.CredentialRepository
	importer   ImportUsecase
	tokens     TokenUsecase
	client     GraphClient
	queue      JobQueue
	folders    []string
	retryDelay time.Duration
}

func NewRunUsecase(
	runRepo repository.ImportRunRepository,
	credRepo repository.CredentialRepository,
	importer ImportUsecase,
	tokens TokenUsecase,
	client GraphClient,
	queue JobQueue,
	folders []string,
) RunUsecase {
	return &runUsecase{
		runRepo:    runRepo,
		credRepo:   credRepo,
		importer:   importer,
		tokens:     tokens,
		client:     client,
		queue:      queue,
		folders:    folders,
		retryDelay: time.Second,
	}
}

func (u *runUsecase) Start(ctx context.Context, userID string, rng domain.ImportRange) (*domain.ImportRun, error) {
	if !rng.Valid() {
		return nil, ErrInvalidRange
	}

	cred, err := u.credRepo.FindByUserID(userID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrNotConnected
	}

	active, err := u.runRepo.FindActiveByUser(userID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, ErrRunActive
	}

	run := &domain.ImportRun{
		UserID:    userID,
		Range:     rng,
		Status:    domain.StatusPending,
		StartedAt: time.Now(),
	}
	if err := u.runRepo.Create(run); err != nil {
		return nil, err
	}

	u.enqueueStep(run.ID)
	return run, nil
}

func (u *runUsecase) Cancel(userID string) error {
	// Cooperative: the next write of any in-flight step misses its guard
	// and is discarded. The guard can also bounce this write when a step
	// advances the run between our read and it; re-read and try again.
	for attempt := 0; attempt < 3; attempt++ {
		run, err := u.runRepo.FindActiveByUser(userID)
		if err != nil {
			return err
		}
		if run == nil {
			return ErrNoActiveRun
		}

		err = u.runRepo.Transition(run, domain.StatusCancelled)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrRunMoved) {
			return err
		}
	}
	return ErrNoActiveRun
}

func (u *runUsecase) Status(userID string) (*domain.ImportRun, error) {
	return u.runRepo.FindLatestByUser(userID)
}

// Resume re-enqueues the step chain for non-terminal runs whose last
// write is older than olderThan. The chain otherwise lives only in
// process memory: it dies with a crash and is severed when the queue is
// full. Zero resumes everything unfinished, regardless of age.
func (u *runUsecase) Resume(olderThan time.Duration) error {
	stalled, err := u.runRepo.FindStalled(time.Now().Add(-olderThan))
	if err != nil {
		return err
	}

	for i := range stalled {
		log.Printf("[Import] Resuming run %s in status %s", stalled[i].ID, stalled[i].Status)
		u.enqueueStep(stalled[i].ID)
	}
	return nil
}

// Advance performs exactly one state-machine step. It is idempotent with
// respect to duplicate enqueues: the persisted status and pagination
// cursor are re-read at entry and are the only memory the run needs.
func (u *runUsecase) Advance(ctx context.Context, runID string) error {
	run, err := u.runRepo.FindByID(runID)
	if err != nil {
		return err
	}
	if run == nil {
		// Run deleted since the task was queued; nothing to do.
		log.Printf("[Import] Run %s no longer exists, discarding step", runID)
		return nil
	}
	if run.Status.IsTerminal() {
		return nil
	}

	cred, err := u.credRepo.FindByUserID(run.UserID)
	if err != nil {
		return err
	}
	if cred == nil {
		return u.fail(run, ErrNotConnected)
	}

	// A guard miss anywhere below means another writer (a cancellation,
	// a duplicate step) moved the run while this step held it; the step
	// abandons its work without touching the stored state.
	switch run.Status {
	case domain.StatusPending:
		if err := u.runRepo.Transition(run, domain.StatusCounting); err != nil {
			if errors.Is(err, repository.ErrRunMoved) {
				return nil
			}
			return err
		}
		u.enqueueStep(run.ID)
		return nil

	case domain.StatusCounting:
		if err := u.count(ctx, run, cred); err != nil {
			if errors.Is(err, repository.ErrRunMoved) {
				return nil
			}
			return u.fail(run, err)
		}
		u.enqueueStep(run.ID)
		return nil

	case domain.StatusImporting:
		done, err := u.importPage(ctx, run, cred)
		if err != nil {
			if errors.Is(err, repository.ErrRunMoved) {
				return nil
			}
			return u.fail(run, err)
		}
		if !done {
			u.enqueueStep(run.ID)
		}
		return nil
	}

	return fmt.Errorf("import run %s in unexpected status %s", run.ID, run.Status)
}

// count queries the provider for total matching messages across all
// watched folders, then moves the run to importing.
func (u *runUsecase) count(ctx context.Context, run *domain.ImportRun, cred *domain.Credential) error {
	cutoff := run.Range.Cutoff(run.StartedAt)

	var total int64
	for _, folder := range u.folders {
		var count int64
		err := withRetry(ctx, apiRetryAttempts, u.retryDelay, func() error {
			return callWithToken(ctx, u.tokens, cred, func(accessToken string) error {
				var callErr error
				count, callErr = u.client.CountMessages(ctx, accessToken, folder, cutoff)
				return callErr
			})
		})
		if err != nil {
			return fmt.Errorf("failed to count folder %s: %w", folder, err)
		}
		total += count
	}

	run.TotalEmails = total
	return u.runRepo.Transition(run, domain.StatusImporting)
}

// importPage fetches one page from the current folder and imports every
// message on it. Per-message failures are counted, never fatal; only the
// page fetch itself can fail the run. Returns true when the run reached a
// terminal state.
func (u *runUsecase) importPage(ctx context.Context, run *domain.ImportRun, cred *domain.Credential) (bool, error) {
	if run.FolderIndex >= len(u.folders) {
		return true, u.complete(run)
	}

	// The write at the end is guarded on these; a duplicate step loads
	// the same pair and only one of the two writes can land.
	fromLink, fromFolder := run.PageLink, run.FolderIndex

	cutoff := run.Range.Cutoff(run.StartedAt)
	folder := u.folders[run.FolderIndex]

	var page *graph.MessagePage
	err := withRetry(ctx, apiRetryAttempts, u.retryDelay, func() error {
		return callWithToken(ctx, u.tokens, cred, func(accessToken string) error {
			var callErr error
			if run.PageLink != "" {
				page, callErr = u.client.NextPage(ctx, accessToken, run.PageLink)
			} else {
				page, callErr = u.client.ListMessages(ctx, accessToken, folder, graph.ListOptions{
					Top:           pageSize,
					ReceivedAfter: cutoff,
				})
			}
			return callErr
		})
	})
	if err != nil {
		return false, fmt.Errorf("failed to fetch page from folder %s: %w", folder, err)
	}

	for _, msg := range page.Value {
		result, err := u.importer.ImportByID(ctx, run.UserID, msg.ID)
		switch {
		case err != nil:
			run.FailedEmails++
			log.Printf("[Import] Run %s: failed to import message %s: %v", run.ID, msg.ID, err)
		case result.AlreadyExists:
			run.SkippedEmails++
		default:
			run.ImportedEmails++
		}
	}

	// The cursor is authoritative for "have we seen this page": totals are
	// only moved together with it, in the same write.
	run.PageLink = page.NextLink
	if page.NextLink == "" {
		run.FolderIndex++
		if run.FolderIndex >= len(u.folders) {
			return true, u.complete(run)
		}
	}

	ok, err := u.runRepo.UpdateStep(run, fromLink, fromFolder)
	if err != nil {
		return false, err
	}
	if !ok {
		log.Printf("[Import] Run %s changed underneath, discarding step progress", run.ID)
		return true, nil
	}
	return false, nil
}

func (u *runUsecase) complete(run *domain.ImportRun) error {
	// Enrichment happens asynchronously downstream; the run reports what
	// it handed over.
	run.EnrichedEmails = run.ImportedEmails
	if err := u.runRepo.Transition(run, domain.StatusCompleted); err != nil {
		return err
	}
	log.Printf("[Import] Run %s completed: total=%d imported=%d skipped=%d failed=%d",
		run.ID, run.TotalEmails, run.ImportedEmails, run.SkippedEmails, run.FailedEmails)
	return nil
}

func (u *runUsecase) fail(run *domain.ImportRun, cause error) error {
	run.Error = domain.TruncateError(cause.Error())
	if err := u.runRepo.Transition(run, domain.StatusFailed); err != nil {
		if errors.Is(err, repository.ErrRunMoved) {
			// Already cancelled or failed by another writer; the step's
			// own error is moot.
			log.Printf("[Import] Run %s moved before failure could be recorded: %v", run.ID, cause)
			return nil
		}
		return err
	}
	log.Printf("[Import] Run %s failed: %s", run.ID, run.Error)
	return cause
}

func (u *runUsecase) enqueueStep(runID string) {
	submitted := u.queue.Submit(jobs.Job{
		Name: "import-step " + runID,
		Run: func() {
			if err := u.Advance(context.Background(), runID); err != nil {
				log.Printf("[Import] Step failed for run %s: %v", runID, err)
			}
		},
	})
	if !submitted {
		// The rescue sweep picks the run up again once it goes stale.
		log.Printf("[Import] Queue full, step for run %s deferred to rescue sweep", runID)
	}
}
