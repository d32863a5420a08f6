package rules

import (
	"strconv"

	"github.com/skontar/presentation-switch/internal/state"
)

// Verdict is the outcome of evaluating one snapshot against the conditions.
type Verdict struct {
	Matched bool
	// Trigger is the last window found to satisfy any condition, or nil.
	Trigger *state.Window
	// Reasons collects a description per satisfied condition key, in check
	// order. A key's reason is appended as soon as the key passes, so keys of
	// a condition whose later key fails still contribute.
	Reasons []string
	// ConditionHits counts full matches per condition index.
	ConditionHits []int
}

// Evaluate checks every window against every condition. A window satisfies a
// condition when every present key holds: the class key needs an exact,
// case-sensitive WM class entry; the fullscreen key needs an equal flag; the
// cpu key needs a known CPU value at or above the threshold (an absent CPU
// never matches). The last satisfying window wins as the trigger.
func Evaluate(windows []state.Window, conditions []Condition) Verdict {
	verdict := Verdict{ConditionHits: make([]int, len(conditions))}
	for i := range windows {
		window := &windows[i]
		for ci, cond := range conditions {
			if cond.Class != "" {
				if !window.HasClass(cond.Class) {
					continue
				}
				verdict.Reasons = append(verdict.Reasons, "CLASS = "+cond.Class)
			}
			if cond.Fullscreen != nil {
				if *cond.Fullscreen != window.Fullscreen {
					continue
				}
				verdict.Reasons = append(verdict.Reasons, "FULLSCREEN")
			}
			if cond.CPU != nil {
				if window.CPU == nil || *window.CPU < *cond.CPU {
					continue
				}
				verdict.Reasons = append(verdict.Reasons, "CPU = "+strconv.FormatFloat(*window.CPU, 'g', -1, 64))
			}
			verdict.Trigger = window
			verdict.ConditionHits[ci]++
		}
	}
	verdict.Matched = verdict.Trigger != nil
	return verdict
}
