package domain

import (
	"fmt"
	"log/slog"

	m "srclens.dev/pkg/srclens/internal/model"
)

const (
	// MaxAncestorDepth bounds the root marker scan.
	MaxAncestorDepth = 10
	// MaxChainSteps bounds the owner-chain walk.
	MaxChainSteps = 20
)

// Resolver recovers the source location of a rendered element.
type Resolver interface {
	// Resolve never panics and never fails; a missing location is reported
	// as a NotFound resolution.
	Resolve(target m.Element) m.Resolution
}

// stepResult is what a strategy reports back to the dispatcher.
type stepResult struct {
	outcome  m.StepOutcome
	location m.SourceLocation
	reason   m.FailureReason
	detail   string
}

// resolveState is shared by the strategies of one resolution.
type resolveState struct {
	target m.Element
	record Record
	steps  int
}

type strategy struct {
	name m.StrategyName
	// failReason is reported when the strategy fails or panics. An empty
	// reason lets resolution fall through to the next strategy.
	failReason m.FailureReason
	run        func(state *resolveState) stepResult
}

type resolver struct {
	records    RecordAdapter
	strategies []strategy
}

// NewResolver creates a Resolver reading internal records through records.
// A nil adapter defaults to the React fiber adapter.
func NewResolver(records RecordAdapter) Resolver {
	if records == nil {
		records = NewReactFiberAdapter()
	}

	r := &resolver{records: records}
	r.strategies = []strategy{
		{name: m.StrategyDirectAttributes, run: r.directAttributes},
		{name: m.StrategyAncestorScan, run: r.ancestorScan},
		{name: m.StrategyInternalRecord, failReason: m.ReasonNoInternalRecord, run: r.internalRecord},
		{name: m.StrategyOwnerChain, failReason: m.ReasonNoSourceInChain, run: r.ownerChain},
	}

	return r
}

func (r *resolver) Resolve(target m.Element) m.Resolution {
	state := &resolveState{target: target}

	var trace []m.StrategyTrace

	for _, s := range r.strategies {
		result, recovered := r.runStrategy(s, state)

		trace = append(trace, m.StrategyTrace{
			Strategy:  s.name,
			Outcome:   result.outcome,
			Detail:    result.detail,
			Recovered: recovered,
		})

		switch {
		case result.outcome == m.OutcomeFound:
			return m.Resolution{
				Found:    true,
				Location: result.location,
				Strategy: s.name,
				Steps:    state.steps,
				Trace:    trace,
			}
		case result.outcome == m.OutcomeFailed && result.reason != m.ReasonNone:
			return m.Resolution{
				Strategy: s.name,
				Reason:   result.reason,
				Steps:    state.steps,
				Trace:    trace,
			}
		}
	}

	return m.Resolution{Reason: m.ReasonNoSourceInChain, Steps: state.steps, Trace: trace}
}

// runStrategy isolates panics raised while reading foreign state.
func (r *resolver) runStrategy(s strategy, state *resolveState) (result stepResult, recovered bool) {
	defer func() {
		if p := recover(); p != nil {
			slog.Warn("ForeignStateAccessFailure: strategy panicked", "strategy", s.name, "panic", fmt.Sprint(p))

			result = stepResult{
				outcome: m.OutcomeFailed,
				reason:  s.failReason,
				detail:  fmt.Sprintf("recovered: %v", p),
			}
			recovered = true
		}
	}()

	if state.target == nil {
		return stepResult{outcome: m.OutcomeFailed, reason: s.failReason, detail: "no target"}, false
	}

	return s.run(state), false
}

func (r *resolver) directAttributes(state *resolveState) stepResult {
	file, okFile := state.target.Attribute(m.SourceFileKey)
	line, okLine := state.target.Attribute(m.SourceLineKey)

	if !okFile || !okLine || file == "" || line == "" {
		return stepResult{outcome: m.OutcomeContinue, detail: "no source attributes"}
	}

	n, ok := positiveInt(line)
	if !ok {
		return stepResult{outcome: m.OutcomeContinue, detail: fmt.Sprintf("malformed line %q", line)}
	}

	return stepResult{outcome: m.OutcomeFound, location: m.SourceLocation{File: file, Line: n}}
}

func (r *resolver) ancestorScan(state *resolveState) stepResult {
	current := state.target

	for depth := 0; current != nil && depth < MaxAncestorDepth; depth++ {
		if _, ok := current.Attribute(m.RootMarkerKey); ok {
			return stepResult{outcome: m.OutcomeContinue, detail: fmt.Sprintf("root marker at depth %d", depth)}
		}

		current = current.ParentElement()
	}

	return stepResult{outcome: m.OutcomeContinue, detail: "no root marker"}
}

func (r *resolver) internalRecord(state *resolveState) stepResult {
	rec, ok := r.records.Locate(state.target)
	if !ok || rec == nil {
		return stepResult{outcome: m.OutcomeFailed, reason: m.ReasonNoInternalRecord}
	}

	state.record = rec

	return stepResult{outcome: m.OutcomeContinue}
}

func (r *resolver) ownerChain(state *resolveState) stepResult {
	rec := state.record

	for rec != nil && state.steps < MaxChainSteps {
		state.steps++

		if loc, ok := r.records.TryExtractDebugSource(rec); ok && loc.Valid() {
			return stepResult{outcome: m.OutcomeFound, location: loc, detail: fmt.Sprintf("step %d", state.steps)}
		}

		next, ok := r.records.Next(rec)
		if !ok {
			break
		}

		rec = next
	}

	return stepResult{
		outcome: m.OutcomeFailed,
		reason:  m.ReasonNoSourceInChain,
		detail:  fmt.Sprintf("walked %d records", state.steps),
	}
}
