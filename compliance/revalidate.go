package compliance

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/carework/shift-engine/generic"
	"github.com/carework/shift-engine/shift"
)

// =============================================================================
// REVALIDATOR - Debounced validation while a shift is being edited
// =============================================================================

// DefaultDebounce is the pause after the last edit before validating.
const DefaultDebounce = 400 * time.Millisecond

// Outcome is one delivered validation.
type Outcome struct {
	Seq       uint64
	Candidate shift.Shift
	Result    Result
	Err       error
}

// ValidateFunc is the validation being scheduled, typically a closure over
// a Validator and an EditSession's history.
type ValidateFunc func(candidate shift.Shift) (Result, error)

// Revalidator schedules validations for an edited candidate. Each Submit
// supersedes the previous one: only the latest input is ever validated and
// delivered, results of stale inputs are dropped.
//
// deliver runs with the revalidator locked and must not call Submit or
// Stop itself.
type Revalidator struct {
	delay    time.Duration
	validate ValidateFunc
	deliver  func(Outcome)

	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64
	stopped bool
}

func NewRevalidator(delay time.Duration, validate ValidateFunc, deliver func(Outcome)) *Revalidator {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Revalidator{delay: delay, validate: validate, deliver: deliver}
}

// Submit records a new version of the candidate and restarts the timer.
func (r *Revalidator) Submit(candidate shift.Shift) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return r.seq
	}
	r.seq++
	seq := r.seq
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.delay, func() { r.fire(seq, candidate) })
	return seq
}

func (r *Revalidator) fire(seq uint64, candidate shift.Shift) {
	if !r.current(seq) {
		return
	}
	res, err := r.validate(candidate)

	// the input may have changed while validating; checked and delivered
	// under the lock so a returned Submit or Stop is never followed by it
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped || seq != r.seq {
		return
	}
	r.deliver(Outcome{Seq: seq, Candidate: candidate, Result: res, Err: err})
}

func (r *Revalidator) current(seq uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.stopped && seq == r.seq
}

// Stop cancels any pending validation and waits for a delivery in
// progress; nothing is delivered afterwards.
func (r *Revalidator) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	if r.timer != nil {
		r.timer.Stop()
	}
}

// =============================================================================
// EDIT SESSION - History fetched once per contract and window
// =============================================================================

// ErrSessionClosed is returned by a session used after Close.
var ErrSessionClosed = errors.New("edit session closed")

// History is what a candidate is validated against.
type History struct {
	Shifts   []shift.Shift
	Absences []Absence
}

// HistoryLoader fetches the history of a contract over a window.
type HistoryLoader func(ctx context.Context, contractID generic.ContractID, window generic.Period) (History, error)

type historyKey struct {
	contract generic.ContractID
	window   generic.Period
}

// EditSession caches the history of the shift being edited. It refetches
// only when the contract or window changes, and a fetch that completes
// after a newer one started, or after Close, is discarded.
type EditSession struct {
	load HistoryLoader

	mu      sync.Mutex
	key     historyKey
	loaded  bool
	history History
	gen     uint64
	cancel  context.CancelFunc
	closed  bool
}

func NewEditSession(load HistoryLoader) *EditSession {
	return &EditSession{load: load}
}

// WindowFor is the history window a candidate needs: the week before its
// own week through the day after it.
func WindowFor(d generic.Date) generic.Period {
	w := generic.WeekOf(d)
	return generic.Period{Start: w.Start.AddDays(-7), End: w.End.AddDays(1)}
}

// History returns the cached history or fetches it.
func (s *EditSession) History(ctx context.Context, contractID generic.ContractID, window generic.Period) (History, error) {
	key := historyKey{contract: contractID, window: window}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return History{}, ErrSessionClosed
	}
	if s.loaded && s.key == key {
		h := s.history
		s.mu.Unlock()
		return h, nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	h, err := s.load(fetchCtx, contractID, window)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		cancel()
		return History{}, ErrSessionClosed
	}
	if gen != s.gen {
		// superseded: the caller gets its data but the cache keeps the newer fetch
		return h, err
	}
	cancel()
	s.cancel = nil
	if err != nil {
		return History{}, err
	}
	s.key, s.history, s.loaded = key, h, true
	return h, nil
}

// Validate fetches (or reuses) the candidate's history and validates it.
func (s *EditSession) Validate(ctx context.Context, v *Validator, candidate shift.Shift) (Result, error) {
	h, err := s.History(ctx, candidate.ContractID, WindowFor(candidate.Date))
	if err != nil {
		return Result{}, err
	}
	return v.Validate(candidate, h.Shifts, h.Absences)
}

// Close cancels an in-flight fetch; its result will not be applied.
func (s *EditSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
