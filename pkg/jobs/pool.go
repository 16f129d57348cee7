package jobs

import (
	"log"
	"sync"
)

// Job is one unit of background work.
type Job struct {
	Name string
	Run  func()
}

// Pool executes jobs on a fixed set of workers off the request path.
// Webhook fetches and import-run steps are both submitted here.
type Pool struct {
	queue       chan Job
	workerWg    sync.WaitGroup
	workerCount int
	started     bool
	mu          sync.Mutex
}

func NewPool(workerCount int) *Pool {
	if workerCount <= 0 {
		workerCount = 4
	}

	return &Pool{
		queue:       make(chan Job, 500),
		workerCount: workerCount,
	}
}

// Start launches the workers. Safe to call once.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}

	for i := 0; i < p.workerCount; i++ {
		p.workerWg.Add(1)
		go p.worker()
	}
	p.started = true
	log.Printf("[Jobs] Started %d workers", p.workerCount)
}

// Stop drains the queue and waits for in-flight jobs.
func (p *Pool) Stop() {
	close(p.queue)
	p.workerWg.Wait()
	log.Println("[Jobs] All workers stopped")
}

// Submit enqueues a job. Returns false when the queue is full; callers that
// chain steps re-submit on the next trigger instead of blocking.
func (p *Pool) Submit(job Job) bool {
	select {
	case p.queue <- job:
		return true
	default:
		log.Printf("[Jobs] Queue full, dropping job %s", job.Name)
		return false
	}
}

func (p *Pool) worker() {
	defer p.workerWg.Done()

	for job := range p.queue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[Jobs] Panic in job %s: %v", job.Name, r)
				}
			}()
			job.Run()
		}()
	}
}
