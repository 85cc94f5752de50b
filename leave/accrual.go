package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/carework/shift-engine/generic"
	"github.com/google/uuid"
)

// =============================================================================
// MONTHLY ACCRUAL RUNS
// =============================================================================

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// AccrualRun records one execution of the monthly accrual over a set of
// employees. Employees counts those processed, Credited those that
// actually received days.
type AccrualRun struct {
	ID          string       `json:"id"`
	Month       generic.Date `json:"month"`
	Status      RunStatus    `json:"status"`
	Employees   int          `json:"employees"`
	Credited    int          `json:"credited"`
	Error       string       `json:"error,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// AccruedMonth is the month credited by a run happening at now: the last
// complete month.
func AccruedMonth(now generic.Date) generic.Date {
	return generic.StartOfMonth(now.Year(), now.Month()).AddMonths(-1)
}

// RunAccrual credits month to each employee. A failure on one employee is
// recorded and the others still run; already credited employees are
// skipped by the movement idempotency key, so a run can be repeated.
func (s *Service) RunAccrual(ctx context.Context, employees []generic.EmployeeID, month generic.Date) AccrualRun {
	run := AccrualRun{
		ID:        uuid.New().String(),
		Month:     generic.StartOfMonth(month.Year(), month.Month()),
		Status:    RunRunning,
		StartedAt: s.now().UTC(),
	}

	var failures []string
	seen := map[generic.EmployeeID]bool{}
	for _, emp := range employees {
		if seen[emp] {
			continue
		}
		seen[emp] = true
		run.Employees++

		credited, err := s.Accrue(ctx, emp, run.Month)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", emp, err))
			continue
		}
		if credited {
			run.Credited++
		}
	}

	done := s.now().UTC()
	run.CompletedAt = &done
	run.Status = RunCompleted
	if len(failures) > 0 {
		run.Status = RunFailed
		run.Error = fmt.Sprintf("%d employee(s) failed, first: %s", len(failures), failures[0])
	}
	return run
}
