package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/skontar/presentation-switch/internal/config"
)

// Condition is a compiled trigger condition. Present keys are ANDed; a
// condition with no keys matches every window.
type Condition struct {
	Class      string
	Fullscreen *bool
	CPU        *float64
}

// BuildConditions compiles configuration into evaluation-ready conditions,
// preserving order.
func BuildConditions(cfg *config.Config) []Condition {
	conditions := make([]Condition, 0, len(cfg.Conditions))
	for _, cc := range cfg.Conditions {
		cond := Condition{Class: cc.Class}
		if cc.Fullscreen != nil {
			v := *cc.Fullscreen
			cond.Fullscreen = &v
		}
		if cc.CPU != nil {
			v := *cc.CPU
			cond.CPU = &v
		}
		conditions = append(conditions, cond)
	}
	return conditions
}

// String renders the condition for logs and status output.
func (c Condition) String() string {
	var parts []string
	if c.Class != "" {
		parts = append(parts, fmt.Sprintf("class=%s", c.Class))
	}
	if c.Fullscreen != nil {
		parts = append(parts, fmt.Sprintf("fullscreen=%t", *c.Fullscreen))
	}
	if c.CPU != nil {
		parts = append(parts, fmt.Sprintf("cpu>=%s", strconv.FormatFloat(*c.CPU, 'g', -1, 64)))
	}
	if len(parts) == 0 {
		return "any"
	}
	return strings.Join(parts, " ")
}
