package provider

import (
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(maxFailures int, cooldown time.Duration) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(maxFailures, cooldown)
	cb.now = clock.now
	return cb, clock
}

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)
	if cb.State() != BreakerClosed {
		t.Errorf("expected closed, got %v", cb.State())
	}
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)
	errFail := errors.New("fail")

	for i := 0; i < 3; i++ {
		if err := cb.Do(func() error { return errFail }); err != errFail {
			t.Fatalf("expected errFail, got %v", err)
		}
	}
	if cb.State() != BreakerOpen {
		t.Fatalf("expected open after 3 failures, got %v", cb.State())
	}

	called := false
	err := cb.Do(func() error { called = true; return nil })
	if err != ErrCircuitOpen {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("expected fn not to run while open")
	}
}

func TestCircuitBreaker_TrialAfterCooldownCloses(t *testing.T) {
	cb, clock := newTestBreaker(2, time.Minute)
	errFail := errors.New("fail")
	cb.Do(func() error { return errFail })
	cb.Do(func() error { return errFail })

	clock.advance(time.Minute)

	if err := cb.Do(func() error { return nil }); err != nil {
		t.Fatalf("expected trial to succeed, got %v", err)
	}
	if cb.State() != BreakerClosed {
		t.Errorf("expected closed after successful trial, got %v", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenAllowsSingleTrial(t *testing.T) {
	cb, clock := newTestBreaker(1, time.Minute)
	cb.Do(func() error { return errors.New("fail") })
	clock.advance(time.Minute)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Do(func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if cb.State() != BreakerHalfOpen {
		t.Fatalf("expected half-open during trial, got %v", cb.State())
	}
	called := false
	if err := cb.Do(func() error { called = true; return nil }); err != ErrCircuitOpen {
		t.Errorf("expected ErrCircuitOpen while trial runs, got %v", err)
	}
	if called {
		t.Error("expected second fn not to run during trial")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("expected trial to succeed, got %v", err)
	}
	if cb.State() != BreakerClosed {
		t.Errorf("expected closed after trial, got %v", cb.State())
	}
}

func TestCircuitBreaker_LateResultDoesNotEndTrial(t *testing.T) {
	cb, clock := newTestBreaker(1, time.Minute)

	// A call that started while closed finishes after the trial began.
	lateRelease := make(chan struct{})
	lateStarted := make(chan struct{})
	lateDone := make(chan error, 1)
	go func() {
		lateDone <- cb.Do(func() error {
			close(lateStarted)
			<-lateRelease
			return nil
		})
	}()
	<-lateStarted

	cb.Do(func() error { return errors.New("fail") })
	clock.advance(time.Minute)

	trialStarted := make(chan struct{})
	trialRelease := make(chan struct{})
	trialDone := make(chan error, 1)
	go func() {
		trialDone <- cb.Do(func() error {
			close(trialStarted)
			<-trialRelease
			return errors.New("still down")
		})
	}()
	<-trialStarted

	close(lateRelease)
	<-lateDone
	if cb.State() != BreakerHalfOpen {
		t.Errorf("expected late success to leave breaker half-open, got %v", cb.State())
	}

	close(trialRelease)
	<-trialDone
	if cb.State() != BreakerOpen {
		t.Errorf("expected failed trial to reopen, got %v", cb.State())
	}
}

func TestCircuitBreaker_FailedTrialReopens(t *testing.T) {
	cb, clock := newTestBreaker(2, time.Minute)
	errFail := errors.New("fail")
	cb.Do(func() error { return errFail })
	cb.Do(func() error { return errFail })

	clock.advance(2 * time.Minute)
	cb.Do(func() error { return errFail })

	if cb.State() != BreakerOpen {
		t.Errorf("expected open after failed trial, got %v", cb.State())
	}
	if err := cb.Do(func() error { return nil }); err != ErrCircuitOpen {
		t.Errorf("expected cooldown to restart, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)
	errFail := errors.New("fail")

	cb.Do(func() error { return errFail })
	cb.Do(func() error { return errFail })
	cb.Do(func() error { return nil })
	cb.Do(func() error { return errFail })
	cb.Do(func() error { return errFail })

	if cb.State() != BreakerClosed {
		t.Errorf("expected closed, got %v", cb.State())
	}
}

func TestCircuitBreaker_DisabledNeverOpens(t *testing.T) {
	cb, _ := newTestBreaker(0, time.Minute)
	errFail := errors.New("fail")
	for i := 0; i < 10; i++ {
		if err := cb.Do(func() error { return errFail }); err != errFail {
			t.Fatalf("expected errFail, got %v", err)
		}
	}
	if cb.State() != BreakerClosed {
		t.Errorf("expected closed, got %v", cb.State())
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	var transitions []BreakerState
	cb, clock := newTestBreaker(1, time.Minute)
	cb.OnStateChange = func(from, to BreakerState) {
		transitions = append(transitions, to)
	}

	cb.Do(func() error { return errors.New("fail") })
	clock.advance(time.Minute)
	cb.Do(func() error { return nil })

	want := []BreakerState{BreakerOpen, BreakerHalfOpen, BreakerClosed}
	if len(transitions) != len(want) {
		t.Fatalf("expected %v, got %v", want, transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d: expected %v, got %v", i, want[i], transitions[i])
		}
	}
}
