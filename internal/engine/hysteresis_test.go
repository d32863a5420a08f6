package engine

import (
	"math/rand"
	"testing"
)

func TestActivationRequiresConsecutiveMatches(t *testing.T) {
	h := NewHysteresis(3)
	for i := 0; i < 2; i++ {
		if tr := h.Advance(true); tr != TransitionNone {
			t.Fatalf("tick %d: unexpected transition %v", i+1, tr)
		}
	}
	if tr := h.Advance(true); tr != TransitionActivate {
		t.Fatalf("expected activation on third match, got %v", tr)
	}
	if !h.Active() || h.Counter() != 3 {
		t.Fatalf("unexpected state after activation: counter=%d active=%v", h.Counter(), h.Active())
	}
	// Further matches saturate without re-emitting.
	if tr := h.Advance(true); tr != TransitionNone {
		t.Fatalf("expected saturation, got %v", tr)
	}
	if h.Counter() != 3 {
		t.Fatalf("counter must saturate at checks, got %d", h.Counter())
	}
}

func TestInterruptionDecrementsWithoutReset(t *testing.T) {
	// Sequence from a fully deactivated state: match, match, miss, match,
	// match, match. The miss drops the counter from 2 to 1, so activation
	// lands exactly on the sixth tick.
	h := NewHysteresis(3)
	sequence := []bool{true, true, false, true, true, true}
	var transitions []Transition
	for _, m := range sequence {
		transitions = append(transitions, h.Advance(m))
	}
	for i, tr := range transitions[:5] {
		if tr != TransitionNone {
			t.Fatalf("tick %d: unexpected transition %v", i+1, tr)
		}
	}
	if transitions[5] != TransitionActivate {
		t.Fatalf("expected activation on sixth tick, got %v", transitions[5])
	}
}

func TestDeactivationRequiresConsecutiveMisses(t *testing.T) {
	h := NewHysteresis(3)
	for i := 0; i < 3; i++ {
		h.Advance(true)
	}
	if tr := h.Advance(false); tr != TransitionNone {
		t.Fatalf("first miss must not deactivate, got %v", tr)
	}
	if tr := h.Advance(false); tr != TransitionNone {
		t.Fatalf("second miss must not deactivate, got %v", tr)
	}
	if tr := h.Advance(false); tr != TransitionDeactivate {
		t.Fatalf("expected deactivation on third miss, got %v", tr)
	}
	if h.Active() || h.Counter() != 0 {
		t.Fatalf("unexpected state after deactivation: counter=%d active=%v", h.Counter(), h.Active())
	}
	if tr := h.Advance(false); tr != TransitionNone {
		t.Fatalf("counter must saturate at zero, got %v", tr)
	}
}

func TestCounterStaysBoundedUnderRandomInput(t *testing.T) {
	const checks = 5
	h := NewHysteresis(checks)
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10000; i++ {
		h.Advance(rng.Intn(2) == 0)
		if c := h.Counter(); c < 0 || c > checks {
			t.Fatalf("counter %d left [0, %d] on iteration %d", c, checks, i)
		}
	}
}

func TestForcePinsBoundary(t *testing.T) {
	h := NewHysteresis(3)
	h.Force(true)
	if !h.Active() || h.Counter() != 3 {
		t.Fatalf("force on: counter=%d active=%v", h.Counter(), h.Active())
	}
	// Three misses walk back down and deactivate exactly once.
	h.Advance(false)
	h.Advance(false)
	if tr := h.Advance(false); tr != TransitionDeactivate {
		t.Fatalf("expected deactivation after forced on, got %v", tr)
	}
	h.Force(false)
	if h.Active() || h.Counter() != 0 {
		t.Fatalf("force off: counter=%d active=%v", h.Counter(), h.Active())
	}
}

func TestReconfigureClampsCounter(t *testing.T) {
	h := NewHysteresis(5)
	for i := 0; i < 4; i++ {
		h.Advance(true)
	}
	h.Reconfigure(2)
	if h.Counter() != 2 || h.Checks() != 2 {
		t.Fatalf("expected clamp to new threshold, counter=%d checks=%d", h.Counter(), h.Checks())
	}
	if h.Active() {
		t.Fatalf("reconfigure must not emit or flip the mode")
	}
}

func TestMinimumChecksIsOne(t *testing.T) {
	h := NewHysteresis(0)
	if h.Checks() != 1 {
		t.Fatalf("expected checks floor of 1, got %d", h.Checks())
	}
	if tr := h.Advance(true); tr != TransitionActivate {
		t.Fatalf("expected immediate activation with checks=1, got %v", tr)
	}
}
