package scheduler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/eliOcs/crm-backend/internal/mailbox/domain"
	"github.com/eliOcs/crm-backend/internal/mailbox/repository"
	"github.com/eliOcs/crm-backend/internal/mailbox/usecase"
	"github.com/eliOcs/crm-backend/pkg/graph"
)

// RenewalScheduler periodically renews webhook subscriptions before they
// expire.
type RenewalScheduler struct {
	subRepo  repository.SubscriptionRepository
	subs     usecase.SubscriptionUsecase
	interval time.Duration
	stopChan chan struct{}
}

func NewRenewalScheduler(subRepo repository.SubscriptionRepository, subs usecase.SubscriptionUsecase, interval time.Duration) *RenewalScheduler {
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	return &RenewalScheduler{
		subRepo:  subRepo,
		subs:     subs,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the sweep loop.
func (s *RenewalScheduler) Start() {
	log.Printf("[Renewal] Starting subscription renewal sweep (interval: %s)", s.interval)

	go func() {
		// Run immediately on start
		s.Sweep(context.Background())

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.Sweep(context.Background())
			case <-s.stopChan:
				log.Println("[Renewal] Sweep stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *RenewalScheduler) Stop() {
	close(s.stopChan)
}

// Sweep renews every subscription expiring within the renewal buffer.
// Failures on one subscription never block renewal of the others.
func (s *RenewalScheduler) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(domain.RenewalBuffer)

	subs, err := s.subRepo.FindExpiring(cutoff)
	if err != nil {
		log.Printf("[Renewal] Error finding expiring subscriptions: %v", err)
		return
	}

	if len(subs) == 0 {
		return
	}

	log.Printf("[Renewal] Found %d subscriptions expiring before %s", len(subs), cutoff.Format(time.RFC3339))

	for i := range subs {
		sub := &subs[i]
		if err := s.subs.Renew(ctx, sub); err != nil {
			if errors.Is(err, usecase.ErrNotConnected) {
				// User disconnected since the subscription was created.
				log.Printf("[Renewal] Dropping subscription %s: owner no longer connected", sub.ProviderID)
				if err := s.subRepo.Delete(sub.ID); err != nil {
					log.Printf("[Renewal] Failed to delete orphaned subscription %s: %v", sub.ID, err)
				}
				continue
			}

			// The provider has forgotten the subscription (e.g. it expired
			// while the service was down); recreate instead of retrying a
			// renew that can never succeed.
			var apiErr *graph.APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
				log.Printf("[Renewal] Provider no longer knows subscription %s, recreating", sub.ProviderID)
				if _, err := s.subs.CreateForFolder(ctx, sub.UserID, sub.Folder); err != nil {
					log.Printf("[Renewal] Failed to recreate subscription for user %s folder %s: %v", sub.UserID, sub.Folder, err)
				}
				continue
			}

			log.Printf("[Renewal] Failed to renew subscription %s: %v", sub.ProviderID, err)
			continue
		}
		log.Printf("[Renewal] Renewed subscription %s until %s", sub.ProviderID, sub.ExpiresAt.Format(time.RFC3339))
	}
}
