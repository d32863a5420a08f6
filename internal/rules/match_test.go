package rules

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/skontar/presentation-switch/internal/config"
	"github.com/skontar/presentation-switch/internal/state"
)

func boolPtr(v bool) *bool          { return &v }
func floatPtr(v float64) *float64   { return &v }
func window(id string) state.Window { return state.Window{ID: id} }

func TestCPUConditionThreshold(t *testing.T) {
	cond := []Condition{{CPU: floatPtr(15.0)}}

	matching := window("0x1")
	matching.CPU = floatPtr(20.0)
	if v := Evaluate([]state.Window{matching}, cond); !v.Matched {
		t.Fatalf("cpu 20 must match threshold 15")
	}

	below := window("0x2")
	below.CPU = floatPtr(10.0)
	if v := Evaluate([]state.Window{below}, cond); v.Matched {
		t.Fatalf("cpu 10 must not match threshold 15")
	}

	unknown := window("0x3")
	if v := Evaluate([]state.Window{unknown}, cond); v.Matched {
		t.Fatalf("absent cpu must never match a cpu key")
	}
}

func TestClassAndCPUAreConjunctive(t *testing.T) {
	cond := []Condition{{Class: "Firefox", CPU: floatPtr(15.0)}}

	idle := state.Window{ID: "0x1", WMClasses: []string{"Navigator", "Firefox"}, CPU: floatPtr(5.0)}
	v := Evaluate([]state.Window{idle}, cond)
	if v.Matched {
		t.Fatalf("class match with low cpu must not satisfy the condition")
	}
	// The class key passed before the cpu key failed, so its reason is kept.
	if diff := cmp.Diff([]string{"CLASS = Firefox"}, v.Reasons); diff != "" {
		t.Fatalf("reasons mismatch (-want +got):\n%s", diff)
	}

	busy := state.Window{ID: "0x2", WMClasses: []string{"Firefox"}, CPU: floatPtr(17.5)}
	v = Evaluate([]state.Window{busy}, cond)
	if !v.Matched || v.Trigger == nil || v.Trigger.ID != "0x2" {
		t.Fatalf("expected busy Firefox window to trigger: %+v", v)
	}
	if diff := cmp.Diff([]string{"CLASS = Firefox", "CPU = 17.5"}, v.Reasons); diff != "" {
		t.Fatalf("reasons mismatch (-want +got):\n%s", diff)
	}
}

func TestClassMatchIsExactAndCaseSensitive(t *testing.T) {
	cond := []Condition{{Class: "Firefox"}}
	lower := state.Window{ID: "0x1", WMClasses: []string{"firefox"}}
	if v := Evaluate([]state.Window{lower}, cond); v.Matched {
		t.Fatalf("class matching must be case-sensitive")
	}
}

func TestFullscreenCondition(t *testing.T) {
	cond := []Condition{{Fullscreen: boolPtr(true)}}
	fs := state.Window{ID: "0x1", Fullscreen: true}
	plain := state.Window{ID: "0x2"}
	v := Evaluate([]state.Window{plain, fs}, cond)
	if !v.Matched || v.Trigger.ID != "0x1" {
		t.Fatalf("expected fullscreen window to trigger: %+v", v)
	}
	if diff := cmp.Diff([]string{"FULLSCREEN"}, v.Reasons); diff != "" {
		t.Fatalf("reasons mismatch (-want +got):\n%s", diff)
	}

	inverted := []Condition{{Fullscreen: boolPtr(false)}}
	v = Evaluate([]state.Window{fs}, inverted)
	if v.Matched {
		t.Fatalf("fullscreen window must not satisfy fullscreen=false")
	}
}

func TestLastSatisfyingWindowWins(t *testing.T) {
	cond := []Condition{{Class: "Firefox"}}
	first := state.Window{ID: "0x1", WMClasses: []string{"Firefox"}}
	second := state.Window{ID: "0x2", WMClasses: []string{"Firefox"}}
	v := Evaluate([]state.Window{first, second}, cond)
	if v.Trigger == nil || v.Trigger.ID != "0x2" {
		t.Fatalf("expected the last matching window as trigger, got %+v", v.Trigger)
	}
}

func TestKeylessConditionMatchesEverything(t *testing.T) {
	v := Evaluate([]state.Window{window("0x1")}, []Condition{{}})
	if !v.Matched {
		t.Fatalf("a condition with no keys must match any window")
	}
	if len(v.Reasons) != 0 {
		t.Fatalf("keyless condition has no reasons, got %v", v.Reasons)
	}
}

func TestConditionHitsPerCondition(t *testing.T) {
	conds := []Condition{
		{Class: "Firefox"},
		{Fullscreen: boolPtr(true)},
	}
	windows := []state.Window{
		{ID: "0x1", WMClasses: []string{"Firefox"}},
		{ID: "0x2", WMClasses: []string{"Firefox"}, Fullscreen: true},
	}
	v := Evaluate(windows, conds)
	if diff := cmp.Diff([]int{2, 1}, v.ConditionHits); diff != "" {
		t.Fatalf("condition hits mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildConditionsCopiesConfig(t *testing.T) {
	cpu := 15.0
	fs := true
	cfg := &config.Config{Conditions: []config.ConditionConfig{
		{Class: "Firefox", CPU: &cpu},
		{Fullscreen: &fs},
	}}
	conds := BuildConditions(cfg)
	if len(conds) != 2 {
		t.Fatalf("expected 2 conditions, got %d", len(conds))
	}
	cpu = 99
	if *conds[0].CPU != 15.0 {
		t.Fatalf("compiled condition must not alias config values")
	}
	if got := conds[0].String(); got != "class=Firefox cpu>=15" {
		t.Fatalf("unexpected condition string %q", got)
	}
	if got := (Condition{}).String(); got != "any" {
		t.Fatalf("unexpected empty condition string %q", got)
	}
}

func TestNoWindows(t *testing.T) {
	v := Evaluate(nil, []Condition{{Class: "Firefox"}})
	if v.Matched || v.Trigger != nil {
		t.Fatalf("empty snapshot must not match: %+v", v)
	}
}
