/*
scheduler.go - Forward book snapshot scheduler

PURPOSE:
  Periodically records the forward book of every scheduled contract so
  the forward book can be charted over time. The forward book moves with
  the calendar alone (entries become earned as their dates pass), so a
  snapshot is the only way to keep its history.

DESIGN:
  - Runs on a cron spec (default "@daily") via robfig/cron
  - Overlapping runs are skipped, never queued
  - Contracts are snapshotted concurrently with a bounded errgroup
  - Contracts without a calculated schedule are skipped
  - One failing contract does not stop the others; failures are folded
    into a single error for the run

USAGE:
  scheduler := NewForwardBookScheduler(service, "@daily")
  if err := scheduler.Start(); err != nil { ... }
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: CreateSnapshot endpoint (manual snapshot)
  - contract/service.go: Service.Snapshot
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/warp/contract-revenue/contract"
)

const defaultSnapshotConcurrency = 4

// ForwardBookScheduler snapshots forward books on a cron schedule.
type ForwardBookScheduler struct {
	Service     *contract.Service
	Spec        string
	Concurrency int

	cron    *cron.Cron
	running bool
	mu      sync.Mutex
}

// SnapshotRun summarizes one pass over all contracts.
type SnapshotRun struct {
	Taken   int
	Skipped int
	Failed  int
}

// NewForwardBookScheduler creates a scheduler. An empty spec means "@daily".
func NewForwardBookScheduler(svc *contract.Service, spec string) *ForwardBookScheduler {
	if spec == "" {
		spec = "@daily"
	}
	return &ForwardBookScheduler{
		Service:     svc,
		Spec:        spec,
		Concurrency: defaultSnapshotConcurrency,
	}
}

// Start registers the job and starts the cron loop. It fails on an invalid spec.
func (s *ForwardBookScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	logger := cron.PrintfLogger(log.Default())
	c := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(s.Spec, s.tick); err != nil {
		return fmt.Errorf("invalid snapshot schedule %q: %w", s.Spec, err)
	}
	c.Start()

	s.cron = c
	s.running = true
	log.Printf("[Scheduler] Started with schedule: %s", s.Spec)
	return nil
}

// Stop stops the cron loop and waits for a running pass to finish.
func (s *ForwardBookScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	log.Println("[Scheduler] Stopped")
}

// Running reports whether the cron loop is active.
func (s *ForwardBookScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *ForwardBookScheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	run, err := s.RunOnce(ctx)
	if err != nil {
		log.Printf("[Scheduler] Snapshot run finished with errors: %v", err)
	}
	log.Printf("[Scheduler] Snapshots taken: %d, skipped: %d, failed: %d", run.Taken, run.Skipped, run.Failed)
}

// RunOnce snapshots every contract that has a calculated schedule.
func (s *ForwardBookScheduler) RunOnce(ctx context.Context) (SnapshotRun, error) {
	var run SnapshotRun

	contracts, err := s.Service.List(ctx)
	if err != nil {
		return run, fmt.Errorf("list contracts: %w", err)
	}

	limit := s.Concurrency
	if limit <= 0 {
		limit = defaultSnapshotConcurrency
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs *multierror.Error
	)
	g.SetLimit(limit)

	for _, c := range contracts {
		id := c.ID
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			_, err := s.Service.Snapshot(ctx, id)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				run.Taken++
			case errors.Is(err, contract.ErrNoSchedule), contract.IsNotFound(err):
				run.Skipped++
			default:
				run.Failed++
				errs = multierror.Append(errs, fmt.Errorf("contract %s: %w", id, err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return run, err
	}
	return run, errs.ErrorOrNil()
}
