package engine

// Transition is a discrete mode change emitted by the hysteresis counter.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionActivate
	TransitionDeactivate
)

func (t Transition) String() string {
	switch t {
	case TransitionActivate:
		return "activate"
	case TransitionDeactivate:
		return "deactivate"
	default:
		return ""
	}
}

// Hysteresis converts a stream of per-tick match results into debounced
// activate/deactivate transitions. The counter saturates at [0, checks] and a
// transition is emitted at most once per boundary crossing, guarded by the
// last emitted mode.
type Hysteresis struct {
	checks  int
	counter int
	active  bool
}

// NewHysteresis creates a counter requiring the given number of consecutive
// matching ticks before activation (and the same number of non-matching
// ticks before deactivation).
func NewHysteresis(checks int) *Hysteresis {
	if checks < 1 {
		checks = 1
	}
	return &Hysteresis{checks: checks}
}

// Advance feeds one tick's match result into the counter and returns the
// transition to apply, if any.
func (h *Hysteresis) Advance(matched bool) Transition {
	if matched {
		h.counter++
		if h.counter > h.checks {
			h.counter = h.checks
		}
	} else {
		h.counter--
		if h.counter < 0 {
			h.counter = 0
		}
	}
	if h.counter == h.checks && !h.active {
		h.active = true
		return TransitionActivate
	}
	if h.counter == 0 && h.active {
		h.active = false
		return TransitionDeactivate
	}
	return TransitionNone
}

// Force pins the counter to one of its boundaries without emitting a
// transition. Used when the mode is switched manually.
func (h *Hysteresis) Force(active bool) {
	h.active = active
	if active {
		h.counter = h.checks
	} else {
		h.counter = 0
	}
}

// Reconfigure changes the activation threshold, clamping the counter into the
// new range.
func (h *Hysteresis) Reconfigure(checks int) {
	if checks < 1 {
		checks = 1
	}
	h.checks = checks
	if h.counter > h.checks {
		h.counter = h.checks
	}
}

func (h *Hysteresis) Counter() int { return h.counter }
func (h *Hysteresis) Checks() int  { return h.checks }
func (h *Hysteresis) Active() bool { return h.active }
