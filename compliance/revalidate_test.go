package compliance_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carework/shift-engine/compliance"
	"github.com/carework/shift-engine/generic"
	"github.com/carework/shift-engine/shift"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevalidator_OnlyLatestInputIsDelivered(t *testing.T) {
	// GIVEN: three edits in quick succession
	// WHEN: the debounce delay elapses
	// THEN: a single outcome is delivered, for the last edit

	v := newValidator()
	outcomes := make(chan compliance.Outcome, 10)
	var calls atomic.Int32
	r := compliance.NewRevalidator(30*time.Millisecond,
		func(c shift.Shift) (compliance.Result, error) {
			calls.Add(1)
			return v.Validate(c, nil, nil)
		},
		func(o compliance.Outcome) { outcomes <- o })
	defer r.Stop()

	r.Submit(work("", monday, "09:00", "10:00", 0))
	r.Submit(work("", monday, "09:00", "11:00", 0))
	last := r.Submit(work("", monday, "09:00", "12:00", 0))

	select {
	case o := <-outcomes:
		assert.Equal(t, last, o.Seq)
		assert.Equal(t, generic.MustParseClock("12:00"), o.Candidate.End)
		assert.True(t, o.Result.Valid)
	case <-time.After(2 * time.Second):
		t.Fatal("no outcome delivered")
	}

	select {
	case o := <-outcomes:
		t.Fatalf("unexpected second outcome %d", o.Seq)
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestRevalidator_StopDropsPending(t *testing.T) {
	outcomes := make(chan compliance.Outcome, 1)
	r := compliance.NewRevalidator(20*time.Millisecond,
		func(shift.Shift) (compliance.Result, error) { return compliance.Result{Valid: true}, nil },
		func(o compliance.Outcome) { outcomes <- o })

	r.Submit(work("", monday, "09:00", "10:00", 0))
	r.Stop()

	select {
	case <-outcomes:
		t.Fatal("outcome delivered after Stop")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRevalidator_EditDuringValidationDropsOutcome(t *testing.T) {
	// GIVEN: a validation that blocks until released
	outcomes := make(chan compliance.Outcome, 10)
	started := make(chan struct{}, 10)
	release := make(chan struct{})
	r := compliance.NewRevalidator(10*time.Millisecond,
		func(c shift.Shift) (compliance.Result, error) {
			started <- struct{}{}
			if c.End == generic.MustParseClock("10:00") {
				<-release
			}
			return compliance.Result{Valid: true}, nil
		},
		func(o compliance.Outcome) { outcomes <- o })
	defer r.Stop()

	r.Submit(work("", monday, "09:00", "10:00", 0))
	<-started

	// WHEN: the candidate is edited while the first validation runs
	last := r.Submit(work("", monday, "09:00", "11:00", 0))
	close(release)

	// THEN: only the edit is delivered
	select {
	case o := <-outcomes:
		assert.Equal(t, last, o.Seq)
	case <-time.After(2 * time.Second):
		t.Fatal("no outcome delivered")
	}
	select {
	case o := <-outcomes:
		t.Fatalf("stale outcome %d delivered", o.Seq)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRevalidator_StopWaitsForDelivery(t *testing.T) {
	// GIVEN: a delivery in progress
	delivering := make(chan struct{})
	release := make(chan struct{})
	var delivered atomic.Int32
	r := compliance.NewRevalidator(10*time.Millisecond,
		func(shift.Shift) (compliance.Result, error) { return compliance.Result{Valid: true}, nil },
		func(compliance.Outcome) {
			close(delivering)
			<-release
			delivered.Add(1)
		})
	r.Submit(work("", monday, "09:00", "10:00", 0))
	<-delivering

	// WHEN: stopping during the delivery
	stopped := make(chan struct{})
	go func() {
		r.Stop()
		close(stopped)
	}()

	// THEN: Stop returns only once the delivery has finished
	select {
	case <-stopped:
		t.Fatal("Stop returned during a delivery")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop never returned")
	}
	assert.Equal(t, int32(1), delivered.Load())
}

func TestEditSession_FetchesOncePerWindow(t *testing.T) {
	var loads atomic.Int32
	s := compliance.NewEditSession(func(ctx context.Context, id generic.ContractID, w generic.Period) (compliance.History, error) {
		loads.Add(1)
		return compliance.History{Shifts: []shift.Shift{work("s-1", monday, "08:00", "12:00", 0)}}, nil
	})
	defer s.Close()
	ctx := context.Background()

	res, err := s.Validate(ctx, newValidator(), work("", monday, "11:00", "13:00", 0))
	require.NoError(t, err)
	assert.False(t, res.Valid, "overlaps the fetched shift")

	_, err = s.Validate(ctx, newValidator(), work("", tuesday, "11:00", "13:00", 0))
	require.NoError(t, err)
	assert.Equal(t, int32(1), loads.Load(), "same week, same contract")

	_, err = s.Validate(ctx, newValidator(), work("", nextMon, "11:00", "13:00", 0))
	require.NoError(t, err)
	assert.Equal(t, int32(2), loads.Load(), "a new week refetches")
}

func TestEditSession_CloseDiscardsInFlightFetch(t *testing.T) {
	// GIVEN: a fetch that blocks until its context is cancelled
	// WHEN: the session is closed while it is in flight
	// THEN: the fetch is cancelled and its result is not applied

	started := make(chan struct{})
	s := compliance.NewEditSession(func(ctx context.Context, id generic.ContractID, w generic.Period) (compliance.History, error) {
		close(started)
		<-ctx.Done()
		return compliance.History{}, ctx.Err()
	})

	done := make(chan error, 1)
	go func() {
		_, err := s.History(context.Background(), "contract-1", compliance.WindowFor(generic.MustParseDate(monday)))
		done <- err
	}()

	<-started
	s.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, compliance.ErrSessionClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("fetch was not cancelled")
	}

	_, err := s.History(context.Background(), "contract-1", compliance.WindowFor(generic.MustParseDate(monday)))
	assert.ErrorIs(t, err, compliance.ErrSessionClosed)
}
