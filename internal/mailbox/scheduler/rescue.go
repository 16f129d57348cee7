package scheduler

import (
	"log"
	"time"

	"github.com/eliOcs/crm-backend/internal/mailbox/usecase"
)

// RescueAfter is how long a non-terminal run may go without a write
// before the sweep assumes its step chain is dead and re-enqueues it.
// Long enough that a healthy chain, including retry backoff, never
// trips it.
const RescueAfter = 5 * time.Minute

// RescueScheduler periodically revives import runs whose step chain was
// lost to a crash or a full queue.
type RescueScheduler struct {
	runs     usecase.RunUsecase
	interval time.Duration
	stopChan chan struct{}
}

func NewRescueScheduler(runs usecase.RunUsecase, interval time.Duration) *RescueScheduler {
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	return &RescueScheduler{
		runs:     runs,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the sweep loop.
func (s *RescueScheduler) Start() {
	log.Printf("[Rescue] Starting import run rescue sweep (interval: %s)", s.interval)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stopChan:
				log.Println("[Rescue] Sweep stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *RescueScheduler) Stop() {
	close(s.stopChan)
}

// Sweep re-enqueues every stalled run. A run whose chain is actually
// alive keeps its updated_at fresh and is never picked up.
func (s *RescueScheduler) Sweep() {
	if err := s.runs.Resume(RescueAfter); err != nil {
		log.Printf("[Rescue] Error resuming stalled import runs: %v", err)
	}
}
