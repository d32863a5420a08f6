package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/skontar/presentation-switch/internal/config"
	"github.com/skontar/presentation-switch/internal/metrics"
	"github.com/skontar/presentation-switch/internal/rules"
	"github.com/skontar/presentation-switch/internal/state"
	"github.com/skontar/presentation-switch/internal/util"
)

const (
	shutdownTimeout = 10 * time.Second
	redactedTitle   = "[redacted]"
)

// Actuator applies the presentation mode decision to the desktop.
// Implementations must be idempotent: enabling an already enabled mode is a
// no-op on the observable side.
type Actuator interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	PresentationMode(ctx context.Context) (bool, error)
}

type ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct {
	*time.Ticker
}

func (t realTicker) C() <-chan time.Time {
	return t.Ticker.C
}

// Settings is the engine's runtime configuration, swappable on reload.
type Settings struct {
	TickPeriod   time.Duration
	Checks       int
	Conditions   []rules.Condition
	RedactTitles bool
}

// SettingsFromConfig derives engine settings from a loaded configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		TickPeriod:   cfg.TickPeriod(),
		Checks:       cfg.Checks,
		Conditions:   rules.BuildConditions(cfg),
		RedactTitles: cfg.RedactTitles,
	}
}

// Engine ties together the sampler, evaluator, hysteresis counter, and
// actuator. The polling loop is the only writer of the counter; samples run
// on a single background worker and busy ticks are skipped, never queued.
type Engine struct {
	source    state.DataSource
	actuator  Actuator
	logger    *util.Logger
	collector *metrics.Collector
	dryRun    bool

	mu           sync.Mutex
	settings     Settings
	hysteresis   *Hysteresis
	history      *tickHistory
	forced       bool
	lastSnapshot *state.Snapshot

	settingsChanged chan struct{}
	tickerFactory   func(time.Duration) ticker
}

type tickResult struct {
	snapshot *state.Snapshot
	verdict  rules.Verdict
	// conditions are the rules the verdict was evaluated against; kept with
	// the result so a reload between sample and apply cannot skew the
	// per-condition accounting.
	conditions []rules.Condition
	err        error
}

// Status is the serializable view of the engine for the control surface.
type Status struct {
	Active     bool             `json:"active"`
	Forced     bool             `json:"forced"`
	Counter    int              `json:"counter"`
	Checks     int              `json:"checks"`
	TickPeriod time.Duration    `json:"tickPeriod"`
	Conditions []string         `json:"conditions"`
	LastTick   *TickRecord      `json:"lastTick,omitempty"`
	Metrics    metrics.Snapshot `json:"metrics"`
}

// New creates an engine instance.
func New(source state.DataSource, actuator Actuator, logger *util.Logger, collector *metrics.Collector, settings Settings, dryRun bool) *Engine {
	return &Engine{
		source:          source,
		actuator:        actuator,
		logger:          logger,
		collector:       collector,
		dryRun:          dryRun,
		settings:        settings,
		hysteresis:      NewHysteresis(settings.Checks),
		history:         newTickHistory(0),
		settingsChanged: make(chan struct{}, 1),
		tickerFactory: func(d time.Duration) ticker {
			return realTicker{time.NewTicker(d)}
		},
	}
}

// Run drives the polling loop until context cancellation. On shutdown the
// in-flight worker is joined first and the mode is always explicitly
// disabled before returning.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	period := e.settings.TickPeriod
	checks := e.settings.Checks
	e.mu.Unlock()
	e.logger.Infof("polling every %s (%d checks to switch)", period, checks)

	tick := e.tickerFactory(period)
	defer tick.Stop()

	results := make(chan tickResult, 1)
	inFlight := false
	for {
		select {
		case <-ctx.Done():
			if inFlight {
				<-results
			}
			e.shutdown()
			return ctx.Err()
		case <-tick.C():
			if inFlight {
				e.logger.Warnf("previous sample still running, skipping tick")
				e.collector.RecordSkippedTick()
				continue
			}
			inFlight = true
			go func() {
				results <- e.sample(ctx)
			}()
		case res := <-results:
			inFlight = false
			e.apply(ctx, res)
		case <-e.settingsChanged:
			e.mu.Lock()
			period = e.settings.TickPeriod
			e.mu.Unlock()
			tick.Stop()
			tick = e.tickerFactory(period)
			e.logger.Infof("tick period now %s", period)
		}
	}
}

// sample runs the sampler and evaluator; it never touches the counter.
func (e *Engine) sample(ctx context.Context) tickResult {
	e.mu.Lock()
	conditions := e.settings.Conditions
	e.mu.Unlock()

	snapshot, err := state.NewSnapshot(ctx, e.source)
	if err != nil {
		return tickResult{err: err}
	}
	return tickResult{
		snapshot:   snapshot,
		verdict:    rules.Evaluate(snapshot.Windows, conditions),
		conditions: conditions,
	}
}

// apply feeds one tick result into the counter and invokes the actuator on a
// transition. Called only from the Run loop.
func (e *Engine) apply(ctx context.Context, res tickResult) {
	now := time.Now()
	if res.err != nil {
		e.logger.Warnf("sampling failed, tick skipped: %v", res.err)
		e.collector.RecordSampleError()
		e.mu.Lock()
		e.history.append(TickRecord{
			Timestamp: now,
			Counter:   e.hysteresis.Counter(),
			Error:     res.err.Error(),
		})
		e.mu.Unlock()
		return
	}

	verdict := res.verdict

	e.mu.Lock()
	e.lastSnapshot = res.snapshot
	redact := e.settings.RedactTitles
	forced := e.forced
	transition := TransitionNone
	if !forced {
		transition = e.hysteresis.Advance(verdict.Matched)
	}
	counter := e.hysteresis.Counter()
	record := TickRecord{
		Timestamp:  now,
		Matched:    verdict.Matched,
		Counter:    counter,
		Transition: transition.String(),
		Reasons:    verdict.Reasons,
		Held:       forced,
	}
	if verdict.Trigger != nil {
		record.TriggerTitle = verdict.Trigger.Title
		if redact {
			record.TriggerTitle = redactedTitle
		}
	}
	e.history.append(record)
	e.mu.Unlock()

	e.collector.RecordTick(verdict.Matched)
	for i, hits := range verdict.ConditionHits {
		for n := 0; n < hits; n++ {
			e.collector.RecordConditionMatch(res.conditions[i].String())
		}
	}

	if verdict.Matched {
		e.logger.Infof("%s | %s => %d", record.TriggerTitle, strings.Join(verdict.Reasons, " | "), counter)
	} else {
		e.logger.Debugf("=> %d", counter)
	}

	switch transition {
	case TransitionActivate:
		e.collector.RecordActivation()
		e.actuate(ctx, true)
	case TransitionDeactivate:
		e.collector.RecordDeactivation()
		e.actuate(ctx, false)
	}
}

func (e *Engine) actuate(ctx context.Context, on bool) {
	verb := "disable"
	if on {
		verb = "enable"
	}
	if e.dryRun {
		e.logger.Infof("dry-run: would %s presentation mode", verb)
		return
	}
	var err error
	if on {
		err = e.actuator.Enable(ctx)
	} else {
		err = e.actuator.Disable(ctx)
	}
	if err != nil {
		e.logger.Errorf("%s presentation mode: %v", verb, err)
		return
	}
	e.logger.Infof("presentation mode %sd", verb)
}

func (e *Engine) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	e.logger.Infof("shutting down, disabling presentation mode")
	e.mu.Lock()
	e.hysteresis.Force(false)
	e.mu.Unlock()
	e.actuate(ctx, false)
}

// ForceMode pins the mode on or off immediately, bypassing the counter. The
// polling loop keeps sampling but holds the counter until ResumeAuto.
func (e *Engine) ForceMode(ctx context.Context, on bool) {
	e.mu.Lock()
	e.forced = true
	e.hysteresis.Force(on)
	e.mu.Unlock()
	e.logger.Infof("mode forced %s", onOff(on))
	e.actuate(ctx, on)
}

// ResumeAuto returns control to the hysteresis counter, continuing from the
// forced state's counter boundary.
func (e *Engine) ResumeAuto() {
	e.mu.Lock()
	e.forced = false
	e.mu.Unlock()
	e.logger.Infof("automatic mode resumed")
}

// UpdateSettings swaps the runtime configuration, notifying the loop when
// the tick period changed.
func (e *Engine) UpdateSettings(s Settings) {
	e.mu.Lock()
	periodChanged := e.settings.TickPeriod != s.TickPeriod
	e.settings = s
	e.hysteresis.Reconfigure(s.Checks)
	e.mu.Unlock()
	e.logger.Infof("settings reloaded: %d conditions", len(s.Conditions))
	if periodChanged {
		select {
		case e.settingsChanged <- struct{}{}:
		default:
		}
	}
}

// Status reports the engine state for the control surface.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	status := Status{
		Active:     e.hysteresis.Active(),
		Forced:     e.forced,
		Counter:    e.hysteresis.Counter(),
		Checks:     e.hysteresis.Checks(),
		TickPeriod: e.settings.TickPeriod,
		Metrics:    e.collector.Snapshot(),
	}
	status.Conditions = make([]string, 0, len(e.settings.Conditions))
	for _, cond := range e.settings.Conditions {
		status.Conditions = append(status.Conditions, cond.String())
	}
	if records := e.history.snapshot(); len(records) > 0 {
		last := records[len(records)-1]
		status.LastTick = &last
	}
	return status
}

// History returns the recorded ticks, oldest first.
func (e *Engine) History() []TickRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.snapshot()
}

// LastSnapshot returns a copy of the most recent desktop snapshot, or nil
// when no tick has completed yet.
func (e *Engine) LastSnapshot() *state.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return state.CloneSnapshot(e.lastSnapshot)
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
