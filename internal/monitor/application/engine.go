package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	monitor "cyclewatch/internal/monitor/domain"
	"cyclewatch/internal/observability/metrics"
)

// SampleReader provides the latest power reading for an entity.
type SampleReader interface {
	LatestSample(ctx context.Context, entity string) (float64, time.Time, error)
}

// CycleStore persists completed phases and serves the history window.
type CycleStore interface {
	InsertCycle(ctx context.Context, summary CycleSummary) error
	ListCycles(ctx context.Context, entity string, from, to time.Time) ([]monitor.PhaseRecord, error)
}

// AlertRecorder persists alert lifecycle events for observability.
type AlertRecorder interface {
	InsertAlertEvent(ctx context.Context, event AlertEvent) error
}

// Notifier delivers an alert message best-effort.
type Notifier interface {
	Notify(ctx context.Context, entity, message string) error
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// CycleSummary is the record written once per phase close.
type CycleSummary struct {
	Entity          string
	Phase           monitor.Phase
	DurationMinutes float64
	EndedAt         time.Time
	Baseline        monitor.Baseline
	AlertState      string
	AlertKind       monitor.AlertKind
}

// AlertEvent is a persisted alert lifecycle record.
type AlertEvent struct {
	Entity  string
	Kind    monitor.AlertKind
	State   string
	Message string
	At      time.Time
}

// Alert event states.
const (
	AlertEventFired      = "fired"
	AlertEventSuppressed = "suppressed"
	AlertEventPending    = "pending"
	AlertEventCleared    = "cleared"
	AlertEventRecovered  = "recovered"
	AlertEventExpired    = "expired"
)

// Settings configures one monitored entity.
type Settings struct {
	Entity          string
	ThresholdWatt   float64
	MinimumInterval time.Duration
	CheckInterval   time.Duration
	HistoryWindow   time.Duration
	Cooldown        time.Duration
	Margin          monitor.Margin
	Statistic       monitor.StatisticMethod
	DebugLogging    bool
}

// Validate checks required settings.
func (s Settings) Validate() error {
	if s.Entity == "" {
		return errors.New("monitor settings: entity required")
	}
	if s.ThresholdWatt <= 0 {
		return errors.New("monitor settings: threshold_watt must be positive")
	}
	if s.MinimumInterval <= 0 {
		return errors.New("monitor settings: minimum_interval_minutes must be positive")
	}
	if s.CheckInterval <= 0 {
		return errors.New("monitor settings: check_interval_seconds must be positive")
	}
	if s.HistoryWindow <= 0 {
		return errors.New("monitor settings: history_window_hours must be positive")
	}
	return nil
}

// Engine runs the phase-detection and alerting loop for one entity. All of
// its mutable state belongs to that single entity; ticks for the same engine
// never overlap.
type Engine struct {
	settings Settings
	detector *monitor.Detector
	samples  SampleReader
	cycles   CycleStore
	alerts   AlertRecorder
	notifier Notifier
	logger   *log.Logger
	clock    Clock

	cooldown *Cooldown
	pending  pendingSet

	alertState string
	alertKind  monitor.AlertKind

	busy atomic.Bool
}

// EngineOption customizes the engine.
type EngineOption func(*Engine)

// WithClock overrides the default clock.
func WithClock(clock Clock) EngineOption {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// NewEngine constructs a monitoring engine for one entity.
func NewEngine(settings Settings, samples SampleReader, cycles CycleStore, alerts AlertRecorder, notifier Notifier, logger *log.Logger, opts ...EngineOption) (*Engine, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if samples == nil {
		return nil, errors.New("monitor engine: nil sample reader")
	}
	if cycles == nil {
		return nil, errors.New("monitor engine: nil cycle store")
	}
	if logger == nil {
		logger = log.Default()
	}
	detector, err := monitor.NewDetector(settings.Entity, settings.ThresholdWatt, settings.MinimumInterval)
	if err != nil {
		return nil, err
	}
	engine := &Engine{
		settings:   settings,
		detector:   detector,
		samples:    samples,
		cycles:     cycles,
		alerts:     alerts,
		notifier:   notifier,
		logger:     logger,
		clock:      systemClock{},
		cooldown:   NewCooldown(settings.Cooldown),
		alertState: monitor.AlertStateOK,
		alertKind:  monitor.AlertNone,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

// Entity returns the monitored entity id.
func (e *Engine) Entity() string {
	return e.settings.Entity
}

// Status is a point-in-time view of the engine for the API.
type Status struct {
	Entity         string
	Phase          monitor.Phase
	PhaseStartedAt time.Time
	ElapsedMinutes float64
	LastWatts      float64
	Baseline       monitor.Baseline
	LowerLimit     float64
	UpperLimit     float64
	LimitsDefined  bool
	AlertState     string
	AlertKind      monitor.AlertKind
	PendingKinds   []monitor.AlertKind
}

// Status reports the current engine state. Baseline is recomputed from the
// history window.
func (e *Engine) Status(ctx context.Context) Status {
	now := e.clock.Now().UTC()
	state := e.detector.State()
	baseline := e.fetchBaseline(ctx, now)
	lower, upper, defined := monitor.Limits(baseline, e.settings.Margin, e.settings.Statistic, state.Phase)
	return Status{
		Entity:         e.settings.Entity,
		Phase:          state.Phase,
		PhaseStartedAt: state.StartedAt,
		ElapsedMinutes: state.Elapsed(now).Minutes(),
		LastWatts:      state.LastSampleWatts,
		Baseline:       baseline,
		LowerLimit:     lower,
		UpperLimit:     upper,
		LimitsDefined:  defined,
		AlertState:     e.alertState,
		AlertKind:      e.alertKind,
		PendingKinds:   e.pending.Kinds(),
	}
}

// Tick runs one evaluation. A tick that overlaps a still-running tick for the
// same engine is skipped. No failure escapes the tick boundary.
func (e *Engine) Tick(ctx context.Context, now time.Time) {
	if e == nil {
		return
	}
	if !e.busy.CompareAndSwap(false, true) {
		e.logger.Printf("%s: previous tick still running, skipping", e.settings.Entity)
		metrics.ObserveTick(metrics.TickSkipped, 0)
		return
	}
	defer e.busy.Store(false)

	start := e.clock.Now()
	result := metrics.TickOK
	defer func() {
		metrics.ObserveTick(result, e.clock.Now().Sub(start))
	}()

	now = now.UTC()

	watts, sampledAt, err := e.samples.LatestSample(ctx, e.settings.Entity)
	if err != nil {
		// No new data this tick; the phase clock keeps running unmodified.
		if !errors.Is(err, monitor.ErrNoSample) {
			e.logger.Printf("%s: sample read error: %v", e.settings.Entity, err)
		} else if e.settings.DebugLogging {
			e.logger.Printf("%s: no sample available", e.settings.Entity)
		}
		result = metrics.TickNoData
		return
	}
	if e.settings.DebugLogging {
		e.logger.Printf("%s: sample %.1fW at %s", e.settings.Entity, watts, sampledAt.UTC().Format(time.RFC3339))
	}

	observation := e.detector.Observe(watts, now)
	if observation.Transitioned {
		e.onTransition(ctx, observation.Closed, now)
	}

	for _, expired := range e.pending.Expire(now, e.settings.HistoryWindow) {
		e.recordAlertEvent(ctx, expired.Kind, AlertEventExpired, expired.Message, now)
		e.logger.Printf("%s: pending %s expired unconfirmed", e.settings.Entity, expired.Kind)
	}

	// An outstanding candidate means the raw signal has already left the
	// confirming phase; hold confirmation until the crossing commits or
	// reverts.
	state := e.detector.State()
	if _, _, debouncing := e.detector.Candidate(); !debouncing {
		for _, confirmedFinding := range e.pending.Confirm(state, e.settings.MinimumInterval, now) {
			e.fireAlert(ctx, confirmedFinding, now)
			e.logger.Printf("%s: fired pending %s after buffer", e.settings.Entity, confirmedFinding.Kind)
		}
	}

	baseline := e.fetchBaseline(ctx, now)
	finding, alerting := monitor.EvaluateRunning(state, baseline, e.settings.Margin, e.settings.Statistic, e.settings.MinimumInterval, now)
	if alerting && (e.alertState != monitor.AlertStateAlert || e.alertKind != finding.Kind) {
		e.alertState = monitor.AlertStateAlert
		e.alertKind = finding.Kind
		e.fireAlert(ctx, finding, now)
	}

	e.logTickSummary(state, baseline, finding, alerting, now)
}

// onTransition closes out the previous phase: resolves a standing long-phase
// alert, raises pending short-phase findings, and persists the summary row.
func (e *Engine) onTransition(ctx context.Context, closed *monitor.PhaseRecord, now time.Time) {
	newPhase := e.detector.State().Phase
	metrics.IncPhaseTransition(string(newPhase))

	for _, cleared := range e.pending.ClearForPhase(newPhase) {
		e.recordAlertEvent(ctx, cleared.Kind, AlertEventCleared, cleared.Message, now)
		e.logger.Printf("%s: pending %s cleared, confirmation phase interrupted", e.settings.Entity, cleared.Kind)
	}

	// A standing long-phase alert resolves whenever that phase ends, even
	// when the closed phase was too short to surface a record.
	prevPhase := newPhase.Opposite()
	if e.alertState == monitor.AlertStateAlert && e.alertKind == longKindFor(prevPhase) {
		message := fmt.Sprintf("%s long interval ended", prevPhase)
		if closed != nil {
			message = fmt.Sprintf("%s long interval ended (duration %.1fm)", closed.Phase, closed.DurationMinutes)
		}
		e.notify(ctx, message)
		e.recordAlertEvent(ctx, e.alertKind, AlertEventRecovered, message, now)
		e.alertState = monitor.AlertStateOK
		e.alertKind = monitor.AlertNone
	}

	if closed == nil {
		return
	}

	// Baseline here excludes the phase being judged: a first-ever cycle has
	// nothing to deviate from.
	baseline := e.fetchBaseline(ctx, now)
	if finding, short := monitor.EvaluateClosed(*closed, baseline, e.settings.Margin, e.settings.Statistic); short {
		e.pending.Set(finding, now)
		e.recordAlertEvent(ctx, finding.Kind, AlertEventPending, finding.Message, now)
		e.logger.Printf("%s: pending %s set: %s", e.settings.Entity, finding.Kind, finding.Message)
	}

	summaryState := e.alertState
	summaryKind := e.alertKind
	if e.pending.Outstanding() && summaryState == monitor.AlertStateOK {
		summaryState = monitor.AlertStatePending
		if kinds := e.pending.Kinds(); len(kinds) > 0 {
			summaryKind = kinds[0]
		}
	}
	summary := CycleSummary{
		Entity:          closed.Entity,
		Phase:           closed.Phase,
		DurationMinutes: closed.DurationMinutes,
		EndedAt:         closed.EndedAt,
		Baseline:        baseline,
		AlertState:      summaryState,
		AlertKind:       summaryKind,
	}
	if err := e.cycles.InsertCycle(ctx, summary); err != nil {
		e.logger.Printf("%s: cycle persist error: %v", e.settings.Entity, err)
	}
}

func (e *Engine) fetchBaseline(ctx context.Context, now time.Time) monitor.Baseline {
	records, err := e.cycles.ListCycles(ctx, e.settings.Entity, now.Add(-e.settings.HistoryWindow), now)
	if err != nil {
		e.logger.Printf("%s: history query error: %v", e.settings.Entity, err)
		return monitor.Baseline{}
	}
	return monitor.ComputeBaseline(records)
}

// fireAlert routes a finding through the cooldown and notifies when admitted.
// Suppressed alerts are still recorded, never silently dropped.
func (e *Engine) fireAlert(ctx context.Context, finding monitor.Finding, now time.Time) {
	if !e.cooldown.Admit(finding.Kind, now) {
		e.recordAlertEvent(ctx, finding.Kind, AlertEventSuppressed, finding.Message, now)
		if e.settings.DebugLogging {
			e.logger.Printf("%s: %s suppressed by cooldown", e.settings.Entity, finding.Kind)
		}
		return
	}
	e.recordAlertEvent(ctx, finding.Kind, AlertEventFired, finding.Message, now)
	e.notify(ctx, finding.Message)
}

func (e *Engine) notify(ctx context.Context, message string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, e.settings.Entity, message); err != nil {
		e.logger.Printf("%s: notify error: %v", e.settings.Entity, err)
	}
}

func (e *Engine) recordAlertEvent(ctx context.Context, kind monitor.AlertKind, state, message string, at time.Time) {
	metrics.IncAlertEvent(string(kind), state)
	if e.alerts == nil {
		return
	}
	event := AlertEvent{
		Entity:  e.settings.Entity,
		Kind:    kind,
		State:   state,
		Message: message,
		At:      at,
	}
	if err := e.alerts.InsertAlertEvent(ctx, event); err != nil {
		e.logger.Printf("%s: alert event persist error: %v", e.settings.Entity, err)
	}
}

func (e *Engine) logTickSummary(state monitor.PhaseState, baseline monitor.Baseline, finding monitor.Finding, alerting bool, now time.Time) {
	lower, upper, defined := monitor.Limits(baseline, e.settings.Margin, e.settings.Statistic, state.Phase)
	outcome := "OK"
	switch {
	case alerting:
		outcome = "ALERT " + finding.Message
	case e.pending.Outstanding():
		outcome = "PENDING"
	}
	if !defined {
		e.logger.Printf("%s: %s=%.1fm, baseline undefined, %s", e.settings.Entity, state.Phase, state.Elapsed(now).Minutes(), outcome)
		return
	}
	e.logger.Printf("%s: %s=%.1fm, %s=%.1f, limit=%.1f/%.1f, %s",
		e.settings.Entity, state.Phase, state.Elapsed(now).Minutes(),
		e.settings.Statistic, baseline.Statistic(e.settings.Statistic, state.Phase), lower, upper, outcome)
}

func longKindFor(phase monitor.Phase) monitor.AlertKind {
	if phase == monitor.PhaseActive {
		return monitor.AlertActiveTooLong
	}
	return monitor.AlertIdleTooLong
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
