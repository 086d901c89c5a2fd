/*
scheduler.go - Automated overdue sweep scheduler

PURPOSE:
  Runs the overdue sweep on a fixed cadence: stale loans move to OVERDUE
  and accruing fines are recomputed without waiting for a return.

DESIGN:
  - Background goroutine with a configurable check interval
  - Runs immediately on start, then on every tick
  - A pass is idempotent, so overlapping deployments or manual triggers
    (POST /api/admin/sweep) are harmless

USAGE:
  scheduler := NewSweepScheduler(sweeper)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - lending/sweeper.go: the pass itself
  - handlers.go: RunSweep endpoint (manual trigger)
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/shelfwise/lending-engine/lending"
)

// SweepScheduler periodically runs the overdue sweep.
type SweepScheduler struct {
	Sweeper       *lending.OverdueSweeper
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewSweepScheduler(sweeper *lending.OverdueSweeper) *SweepScheduler {
	return &SweepScheduler{
		Sweeper:       sweeper,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (ss *SweepScheduler) Start() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if !ss.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	ss.ticker = time.NewTicker(ss.CheckInterval)
	ss.wg.Add(1)
	go ss.run()

	log.Printf("[Scheduler] Started with check interval: %v", ss.CheckInterval)
}

// Stop stops the scheduler and waits for an in-flight pass to finish.
func (ss *SweepScheduler) Stop() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.ticker != nil {
		ss.ticker.Stop()
		close(ss.stop)
		ss.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (ss *SweepScheduler) run() {
	defer ss.wg.Done()

	// Run immediately on start.
	ss.sweep()

	for {
		select {
		case <-ss.ticker.C:
			ss.sweep()
		case <-ss.stop:
			return
		}
	}
}

func (ss *SweepScheduler) sweep() {
	if _, err := ss.Sweeper.RunOverdueSweep(context.Background()); err != nil {
		log.Printf("[Scheduler] Sweep failed: %v", err)
	}
}

// RunNow triggers an immediate pass (for testing/admin).
func (ss *SweepScheduler) RunNow() {
	ss.sweep()
}
