/*
scheduler.go - Automated monthly leave accrual

PURPOSE:
  Periodically credits the paid-leave days of the last complete month to
  every employee holding an active contract.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each check credits the month before the current one
  - Employees already credited for that month are skipped by the
    movement idempotency key, so a check can run any number of times
  - Records every run that credited someone (or failed) for audit

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewAccrualScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerAccrual endpoint (manual run)
  - leave/accrual.go: RunAccrual
*/
package api

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/carework/shift-engine/generic"
	"github.com/carework/shift-engine/leave"
)

// AccrualScheduler handles automated monthly leave accrual.
type AccrualScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	logger *slog.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewAccrualScheduler creates a new scheduler.
func NewAccrualScheduler(handler *Handler) *AccrualScheduler {
	return &AccrualScheduler{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		logger:        slog.Default().With("component", "accrual_scheduler"),
	}
}

// Start begins the scheduler.
func (s *AccrualScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.logger.Info("disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run()

	s.logger.Info("started", "interval", s.CheckInterval)
}

// Stop stops the scheduler and waits for a running check to finish.
func (s *AccrualScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.ticker = nil
		s.logger.Info("stopped")
	}
}

func (s *AccrualScheduler) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.check()

	for {
		select {
		case <-s.ticker.C:
			s.check()
		case <-s.stop:
			return
		}
	}
}

func (s *AccrualScheduler) check() {
	ctx, cancel := context.WithTimeout(context.Background(), s.CheckInterval)
	defer cancel()

	month := leave.AccruedMonth(s.Handler.today())
	run, err := s.Handler.runAccrual(ctx, month)
	if err != nil {
		s.logger.Error("accrual check failed", "month", month, "error", err)
		return
	}
	if run.Credited > 0 || run.Status == leave.RunFailed {
		s.logger.Info("accrual run", "month", month, "status", run.Status,
			"employees", run.Employees, "credited", run.Credited)
	}
}

// RunNow triggers an immediate check (for testing/admin).
func (s *AccrualScheduler) RunNow() {
	s.check()
}

// GetNextRunTime returns when the next scheduled check will occur.
func (s *AccrualScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(s.CheckInterval)
}

// runAccrual credits month to every employee with an active contract. A run
// that credited nobody is not recorded.
func (h *Handler) runAccrual(ctx context.Context, month generic.Date) (leave.AccrualRun, error) {
	contracts, err := h.Store.ActiveContracts(ctx, "")
	if err != nil {
		return leave.AccrualRun{}, fmt.Errorf("failed to list active contracts: %w", err)
	}
	employees := make([]generic.EmployeeID, 0, len(contracts))
	for _, c := range contracts {
		employees = append(employees, c.EmployeeID)
	}

	run := h.leaveService(ctx).RunAccrual(ctx, employees, month)
	if run.Credited == 0 && run.Status != leave.RunFailed {
		return run, nil
	}
	if err := h.Store.SaveAccrualRun(ctx, run); err != nil {
		return run, fmt.Errorf("failed to save accrual run: %w", err)
	}
	return run, nil
}
