/*
scheduler.go - Automated batch scheduler

PURPOSE:
  Periodically runs the tier evaluation batch and, after a month
  closes, the bonus batch for the previous month. This is the cron
  seam: the engine itself stays a library.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Tier batch runs on every tick
  - Bonus batch targets the previous calendar month; deterministic
    bonus ledger ids make re-runs idempotent, so a restarted server
    cannot double-post

CONFIGURATION:
  - CheckInterval: How often to run (default: 24 hours)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewBatchScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: Manual trigger endpoints for the same batches
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"
)

// BatchScheduler handles automated tier and bonus runs.
type BatchScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewBatchScheduler creates a new scheduler.
func NewBatchScheduler(handler *Handler) *BatchScheduler {
	return &BatchScheduler{
		Handler:       handler,
		CheckInterval: 24 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (bs *BatchScheduler) Start() {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if !bs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	bs.ticker = time.NewTicker(bs.CheckInterval)
	bs.wg.Add(1)

	go bs.run()

	log.Printf("[Scheduler] Started with check interval: %v", bs.CheckInterval)
}

// Stop stops the scheduler.
func (bs *BatchScheduler) Stop() {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.ticker != nil {
		bs.ticker.Stop()
		close(bs.stop)
		bs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (bs *BatchScheduler) run() {
	defer bs.wg.Done()

	// Run immediately on start
	bs.runBatches()

	for {
		select {
		case <-bs.ticker.C:
			bs.runBatches()
		case <-bs.stop:
			return
		}
	}
}

func (bs *BatchScheduler) runBatches() {
	ctx := context.Background()
	now := time.Now()

	log.Printf("[Scheduler] Running tier batch at %v", now)
	if _, err := bs.Handler.TierRunner.Run(ctx); err != nil {
		log.Printf("[Scheduler] Tier batch failed: %v", err)
	}

	// Post bonuses for the previous month; duplicate postings are
	// skipped by the processor.
	prev := now.AddDate(0, -1, 0)
	log.Printf("[Scheduler] Running bonus batch for %s %d", prev.Month(), prev.Year())
	if _, err := bs.Handler.BonusBatch.Process(ctx, prev.Year(), prev.Month()); err != nil {
		log.Printf("[Scheduler] Bonus batch failed: %v", err)
	}
}

// RunNow triggers an immediate run (for testing/admin).
func (bs *BatchScheduler) RunNow() {
	bs.runBatches()
}
