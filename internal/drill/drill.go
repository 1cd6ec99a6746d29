// internal/drill/drill.go
package drill

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrSteadyStateInvalid aborts an experiment before any action runs.
var ErrSteadyStateInvalid = errors.New("steady state invalid - aborting experiment")

// Experiment defines a consistency drill against a live desk.
type Experiment struct {
	Name        string
	Hypothesis  string
	SteadyState []Probe
	Method      []Action
	Rollback    []Action
	Validation  []Assertion
}

// Probe is a measurable property of the desk.
type Probe struct {
	Name      string
	Query     func(context.Context) (float64, error)
	Threshold Threshold
}

type Threshold struct {
	Operator string // >, <, >=, <=, ==
	Value    float64
}

// Holds reports whether v satisfies the threshold. Unknown operators never hold.
func (t Threshold) Holds(v float64) bool {
	switch t.Operator {
	case ">":
		return v > t.Value
	case "<":
		return v < t.Value
	case ">=":
		return v >= t.Value
	case "<=":
		return v <= t.Value
	case "==":
		return v == t.Value
	default:
		return false
	}
}

// Action is one step of load or cleanup.
type Action struct {
	Name    string
	Execute func(context.Context) error
}

// Assertion is checked against a probe's final observation.
type Assertion struct {
	Probe     string
	Condition func(float64) bool
	Message   string
}

// Result captures one experiment run.
type Result struct {
	Experiment       string               `json:"experiment"`
	StartTime        time.Time            `json:"start_time"`
	EndTime          time.Time            `json:"end_time"`
	Duration         time.Duration        `json:"duration"`
	SteadyStateValid bool                 `json:"steady_state_valid"`
	HypothesisHeld   bool                 `json:"hypothesis_held"`
	Violations       []Violation          `json:"violations"`
	Observations     map[string][]float64 `json:"observations"`
	Failures         []string             `json:"failures"`
	ActionErrors     []ActionError        `json:"action_errors"`
}

type Violation struct {
	Probe    string    `json:"probe"`
	Expected float64   `json:"expected"`
	Actual   float64   `json:"actual"`
	At       time.Time `json:"at"`
}

type ActionError struct {
	Action string `json:"action"`
	Error  string `json:"error"`
}

// Runner executes experiments.
type Runner struct {
	tracer   trace.Tracer
	logger   *slog.Logger
	interval time.Duration
	mu       sync.Mutex
	results  []Result
}

// NewRunner samples probes every interval while actions run.
func NewRunner(logger *slog.Logger, interval time.Duration) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Runner{
		tracer:   otel.Tracer("librarydesk/drill"),
		logger:   logger,
		interval: interval,
	}
}

// Run executes one experiment.
func (r *Runner) Run(ctx context.Context, exp Experiment) (*Result, error) {
	ctx, span := r.tracer.Start(ctx, "drill.run_experiment",
		trace.WithAttributes(attribute.String("experiment.name", exp.Name)),
	)
	defer span.End()

	result := &Result{
		Experiment:   exp.Name,
		StartTime:    time.Now(),
		Observations: make(map[string][]float64),
	}

	span.AddEvent("validating_steady_state")
	if violations := r.sample(ctx, exp.SteadyState, nil); len(violations) > 0 {
		result.Violations = violations
		result.EndTime = time.Now()
		span.SetStatus(codes.Error, ErrSteadyStateInvalid.Error())
		return result, ErrSteadyStateInvalid
	}
	result.SteadyStateValid = true

	span.AddEvent("running_method")
	var (
		wg    sync.WaitGroup
		errMu sync.Mutex
		done  = make(chan struct{})
	)
	for _, action := range exp.Method {
		wg.Add(1)
		go func(a Action) {
			defer wg.Done()
			if err := a.Execute(ctx); err != nil {
				errMu.Lock()
				result.ActionErrors = append(result.ActionErrors, ActionError{Action: a.Name, Error: err.Error()})
				errMu.Unlock()
				span.RecordError(err)
			}
		}(action)
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
observe:
	for {
		select {
		case <-done:
			break observe
		case <-ctx.Done():
			<-done
			break observe
		case <-ticker.C:
			result.Violations = append(result.Violations, r.sample(ctx, exp.SteadyState, result.Observations)...)
		}
	}

	span.AddEvent("rolling_back")
	for _, action := range exp.Rollback {
		if err := action.Execute(ctx); err != nil {
			result.ActionErrors = append(result.ActionErrors, ActionError{Action: action.Name, Error: err.Error()})
			span.RecordError(err)
		}
	}

	span.AddEvent("validating_assertions")
	result.Violations = append(result.Violations, r.sample(ctx, exp.SteadyState, result.Observations)...)
	result.Failures = validate(exp.Validation, result.Observations)
	result.HypothesisHeld = len(result.Violations) == 0 && len(result.Failures) == 0
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	r.mu.Lock()
	r.results = append(r.results, *result)
	r.mu.Unlock()

	span.SetAttributes(
		attribute.Bool("hypothesis_held", result.HypothesisHeld),
		attribute.Int("violations", len(result.Violations)),
	)
	if !result.HypothesisHeld {
		span.SetStatus(codes.Error, "hypothesis violated")
	}
	return result, nil
}

// sample queries every probe once. A failed query counts as a violation with
// actual -1. Observations are recorded when obs is non-nil.
func (r *Runner) sample(ctx context.Context, probes []Probe, obs map[string][]float64) []Violation {
	var violations []Violation
	for _, p := range probes {
		value, err := p.Query(ctx)
		if err != nil {
			r.logger.WarnContext(ctx, "probe failed", "probe", p.Name, "error", err)
			violations = append(violations, Violation{Probe: p.Name, Expected: p.Threshold.Value, Actual: -1, At: time.Now()})
			continue
		}
		if obs != nil {
			obs[p.Name] = append(obs[p.Name], value)
		}
		if !p.Threshold.Holds(value) {
			violations = append(violations, Violation{Probe: p.Name, Expected: p.Threshold.Value, Actual: value, At: time.Now()})
		}
	}
	return violations
}

func validate(assertions []Assertion, obs map[string][]float64) []string {
	var failures []string
	for _, a := range assertions {
		values := obs[a.Probe]
		if len(values) == 0 || !a.Condition(values[len(values)-1]) {
			failures = append(failures, a.Message)
		}
	}
	return failures
}

// Results returns every result recorded by Run.
func (r *Runner) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Result(nil), r.results...)
}

// RunAll runs experiments in order and logs each outcome. It reports whether
// every hypothesis held.
func (r *Runner) RunAll(ctx context.Context, exps []Experiment) bool {
	ok := true
	for i, exp := range exps {
		r.logger.InfoContext(ctx, "starting drill",
			"index", i+1, "total", len(exps),
			"experiment", exp.Name, "hypothesis", exp.Hypothesis,
		)
		result, err := r.Run(ctx, exp)
		if err != nil {
			r.logger.ErrorContext(ctx, "drill aborted", "experiment", exp.Name, "error", err)
			ok = false
			continue
		}
		for _, v := range result.Violations {
			r.logger.WarnContext(ctx, "violation", "probe", v.Probe, "expected", v.Expected, "actual", v.Actual)
		}
		for _, f := range result.Failures {
			r.logger.WarnContext(ctx, "assertion failed", "message", f)
		}
		r.logger.InfoContext(ctx, "drill finished",
			"experiment", exp.Name,
			"hypothesis_held", result.HypothesisHeld,
			"duration", result.Duration,
		)
		ok = ok && result.HypothesisHeld
	}
	return ok
}
