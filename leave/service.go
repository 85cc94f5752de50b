package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carework/shift-engine/generic"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE - Persistence the service writes through
// =============================================================================

// Store runs fn in a transaction: everything fn writes is committed together
// or not at all.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the transactional view of the store.
type Tx interface {
	GetAbsence(ctx context.Context, id string) (Absence, error)
	SaveAbsence(ctx context.Context, a Absence) error

	// GetBalance returns generic.ErrNotFound when the employee has no row
	// for that leave year yet.
	GetBalance(ctx context.Context, employeeID generic.EmployeeID, yearStart generic.Date) (Balance, error)
	SaveBalance(ctx context.Context, b Balance) error

	// AppendMovement returns ErrDuplicateMovement when the idempotency key
	// is already recorded.
	AppendMovement(ctx context.Context, m Movement) error
	Movements(ctx context.Context, employeeID generic.EmployeeID, yearStart generic.Date) ([]Movement, error)
}

// =============================================================================
// SERVICE
// =============================================================================

// Service applies engine decisions to persisted balances. Each operation is
// one transaction: an absence's status and its balance delta are never
// written apart.
type Service struct {
	store  Store
	engine *Engine
	now    func() time.Time
}

func NewService(store Store, engine *Engine) *Service {
	return &Service{store: store, engine: engine, now: time.Now}
}

// Engine returns the rules the service applies.
func (s *Service) Engine() *Engine { return s.engine }

// errSkip aborts a transaction that has nothing to write.
var errSkip = errors.New("nothing to apply")

// balance loads the row for a leave year, or an empty one.
func balance(ctx context.Context, tx Tx, employeeID generic.EmployeeID, yearStart generic.Date) (Balance, error) {
	b, err := tx.GetBalance(ctx, employeeID, yearStart)
	if generic.IsNotFound(err) {
		return NewBalance(employeeID, yearStart), nil
	}
	if err != nil {
		return Balance{}, fmt.Errorf("failed to load balance: %w", err)
	}
	return b, nil
}

// Submit records a new pending absence. A paid-leave request that already
// exceeds the remaining days is refused here rather than at approval.
func (s *Service) Submit(ctx context.Context, a Absence) (Absence, error) {
	a.ID = uuid.New().String()
	a.Status = StatusPending
	a.CreatedAt = s.now().UTC()
	a.DecidedAt = nil

	err := s.store.WithTx(ctx, func(tx Tx) error {
		year := s.engine.LeaveYear(a.Period.Start)
		b, err := balance(ctx, tx, a.EmployeeID, year.Start)
		if err != nil {
			return err
		}
		if err := s.engine.ValidateRequest(a, b); err != nil {
			return err
		}
		a.BusinessDays = s.engine.BusinessDays(a.EmployerID, a.Period.Start, a.Period.End)
		return tx.SaveAbsence(ctx, a)
	})
	if err != nil {
		return Absence{}, err
	}
	return a, nil
}

// Approve approves a pending absence and charges its business days to the
// leave year of its first day.
func (s *Service) Approve(ctx context.Context, absenceID string) (Decision, error) {
	var out Decision
	err := s.store.WithTx(ctx, func(tx Tx) error {
		a, err := tx.GetAbsence(ctx, absenceID)
		if err != nil {
			return err
		}
		year := s.engine.LeaveYear(a.Period.Start)
		b, err := balance(ctx, tx, a.EmployeeID, year.Start)
		if err != nil {
			return err
		}
		dec, err := s.engine.Approve(a, b)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		dec.Absence.DecidedAt = &now

		if dec.TakenDelta.IsPositive() {
			m := Movement{
				ID:             uuid.New().String(),
				EmployeeID:     a.EmployeeID,
				YearStart:      year.Start,
				Type:           MovementTaken,
				Days:           dec.TakenDelta,
				AbsenceID:      a.ID,
				IdempotencyKey: "absence:" + a.ID + ":taken",
				CreatedAt:      now,
			}
			if err := tx.AppendMovement(ctx, m); err != nil {
				return err
			}
			if err := tx.SaveBalance(ctx, m.Apply(b)); err != nil {
				return err
			}
		}
		if err := tx.SaveAbsence(ctx, dec.Absence); err != nil {
			return err
		}
		out = dec
		return nil
	})
	return out, err
}

// Reject rejects a pending absence.
func (s *Service) Reject(ctx context.Context, absenceID string) (Decision, error) {
	var out Decision
	err := s.store.WithTx(ctx, func(tx Tx) error {
		a, err := tx.GetAbsence(ctx, absenceID)
		if err != nil {
			return err
		}
		dec, err := s.engine.Reject(a)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		dec.Absence.DecidedAt = &now
		if err := tx.SaveAbsence(ctx, dec.Absence); err != nil {
			return err
		}
		out = dec
		return nil
	})
	return out, err
}

// AccrualKey identifies the accrual of one employee for one month.
func AccrualKey(employeeID generic.EmployeeID, month generic.Date) string {
	return fmt.Sprintf("accrual:%s:%04d-%02d", employeeID, month.Year(), int(month.Month()))
}

// Accrue credits one month of paid leave to the leave year containing
// month. It reports false when the month was already credited or the
// yearly cap is reached.
func (s *Service) Accrue(ctx context.Context, employeeID generic.EmployeeID, month generic.Date) (bool, error) {
	year := s.engine.LeaveYear(month)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		b, err := balance(ctx, tx, employeeID, year.Start)
		if err != nil {
			return err
		}
		credit := s.engine.MonthlyAccrual(b)
		if credit.IsZero() {
			return errSkip
		}
		m := Movement{
			ID:             uuid.New().String(),
			EmployeeID:     employeeID,
			YearStart:      year.Start,
			Type:           MovementAcquired,
			Days:           credit,
			IdempotencyKey: AccrualKey(employeeID, month),
			CreatedAt:      s.now().UTC(),
		}
		if err := tx.AppendMovement(ctx, m); err != nil {
			if errors.Is(err, ErrDuplicateMovement) {
				return errSkip
			}
			return err
		}
		return tx.SaveBalance(ctx, m.Apply(b))
	})
	if errors.Is(err, errSkip) {
		return false, nil
	}
	return err == nil, err
}

// Adjust adds a signed manual correction to the leave year containing asOf.
func (s *Service) Adjust(ctx context.Context, employeeID generic.EmployeeID, asOf generic.Date, days decimal.Decimal, reason string) (View, error) {
	if days.IsZero() {
		return View{}, invalidRequest("adjustment of zero days")
	}
	year := s.engine.LeaveYear(asOf)
	var out View
	err := s.store.WithTx(ctx, func(tx Tx) error {
		b, err := balance(ctx, tx, employeeID, year.Start)
		if err != nil {
			return err
		}
		id := uuid.New().String()
		m := Movement{
			ID:             id,
			EmployeeID:     employeeID,
			YearStart:      year.Start,
			Type:           MovementAdjusted,
			Days:           days,
			Reason:         reason,
			IdempotencyKey: "adjust:" + id,
			CreatedAt:      s.now().UTC(),
		}
		if err := tx.AppendMovement(ctx, m); err != nil {
			return err
		}
		b = m.Apply(b)
		if err := tx.SaveBalance(ctx, b); err != nil {
			return err
		}
		out = b.View(year)
		return nil
	})
	return out, err
}

// Balance returns the balance of the leave year containing asOf.
func (s *Service) Balance(ctx context.Context, employeeID generic.EmployeeID, asOf generic.Date) (View, error) {
	year := s.engine.LeaveYear(asOf)
	var out View
	err := s.store.WithTx(ctx, func(tx Tx) error {
		b, err := balance(ctx, tx, employeeID, year.Start)
		if err != nil {
			return err
		}
		out = b.View(year)
		return nil
	})
	return out, err
}

// Movements returns the audit trail of the leave year containing asOf.
func (s *Service) Movements(ctx context.Context, employeeID generic.EmployeeID, asOf generic.Date) ([]Movement, error) {
	year := s.engine.LeaveYear(asOf)
	var out []Movement
	err := s.store.WithTx(ctx, func(tx Tx) error {
		ms, err := tx.Movements(ctx, employeeID, year.Start)
		out = ms
		return err
	})
	return out, err
}
