// Package ethos implements the Effect Ethos rule engine from spec.md
// §4.5: a tagged, prioritized, authority-weighted set of rules deciding
// whether a proposed action is permitted. Rules are values; mutation
// happens only outside an evaluation, and evaluation itself is read-only
// and safe for concurrent callers.
package ethos

import (
	"fmt"
	"sort"
	"sync"

	"github.com/deepcausality-go/deepcausality/internal/causality"
	"github.com/deepcausality-go/deepcausality/internal/contextgraph"
	"github.com/deepcausality-go/deepcausality/internal/telemetry"
)

// Verdict is the outcome of evaluating a rule, or of combining a level's
// rules.
type Verdict int

const (
	// Allow permits the proposed action.
	Allow Verdict = iota
	// Deny forbids the proposed action. Deny always overrides Allow within
	// the same (authority, priority) tier (spec.md §3.1's Rule invariant).
	Deny
)

func (v Verdict) String() string {
	if v == Deny {
		return "Deny"
	}
	return "Allow"
}

// DefaultVerdict is returned when no rule survives tag filtering, or when
// no predicate of the selected authority level holds. This is
// a policy choice spec.md leaves open (§9), not a theorem; it is a
// package-level var so internal/config can override it at startup.
var DefaultVerdict = Allow

// Predicate decides whether a rule applies to the given context and
// proposed action.
type Predicate func(ctx *contextgraph.Context, proposed causality.PE) bool

// Rule is one Effect Ethos rule: spec.md §3.1's
// "id, description, priority, authority, tags, predicate, verdict" tuple.
type Rule struct {
	ID          uint64
	Description string
	Priority    int
	Authority   int
	Tags        []string
	Predicate   Predicate
	Verdict     Verdict
}

func (r Rule) hasAnyTag(filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, want := range filter {
		for _, got := range r.Tags {
			if want == got {
				return true
			}
		}
	}
	return false
}

// Engine holds an immutable-by-convention set of rules, indexed for
// repeated evaluation. Rules are only added/removed outside of Decide
// calls; Decide itself never mutates the Engine.
type Engine struct {
	mu    sync.RWMutex
	rules []Rule

	metrics *telemetry.Metrics
}

// NewEngine constructs an Engine, optionally seeded with rules.
func NewEngine(rules ...Rule) *Engine {
	e := &Engine{}
	e.rules = append(e.rules, rules...)
	return e
}

// SetMetrics attaches m so every Decide call is counted by its resulting
// verdict. Nil (the zero value) makes this a no-op, so SetMetrics is
// optional.
func (e *Engine) SetMetrics(m *telemetry.Metrics) { e.metrics = m }

// AddRule appends a rule to the engine.
func (e *Engine) AddRule(r Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, r)
}

// RemoveRule removes the rule with the given id, reporting whether one was
// found.
func (e *Engine) RemoveRule(id uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, r := range e.rules {
		if r.ID == id {
			e.rules = append(e.rules[:i], e.rules[i+1:]...)
			return true
		}
	}
	return false
}

// Len reports the number of rules currently held.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rules)
}

// applicable returns the rules of the highest authority level among those
// surviving the tag filter (if any), sorted by descending priority
// (spec.md §4.5 steps 1-3). It does not evaluate predicates; decide does.
func (e *Engine) applicable(ctx *contextgraph.Context, proposed causality.PE, tagFilter []string) []Rule {
	e.mu.RLock()
	candidates := make([]Rule, len(e.rules))
	copy(candidates, e.rules)
	e.mu.RUnlock()

	var tagged []Rule
	for _, r := range candidates {
		if r.hasAnyTag(tagFilter) {
			tagged = append(tagged, r)
		}
	}
	if len(tagged) == 0 {
		return nil
	}

	highest := tagged[0].Authority
	for _, r := range tagged {
		if r.Authority > highest {
			highest = r.Authority
		}
	}

	var level []Rule
	for _, r := range tagged {
		if r.Authority == highest {
			level = append(level, r)
		}
	}

	sort.SliceStable(level, func(i, j int) bool { return level[i].Priority > level[j].Priority })
	return level
}

// Decide evaluates the tagged, highest-authority level of rules in
// decreasing priority order, evaluates each rule's predicate, and
// combines verdicts: any Deny among the matching rules wins, otherwise
// Allow. If no rule survives tag filtering, DefaultVerdict is returned
// (spec.md §9's documented default-Allow policy). The level is chosen
// before predicates run: if no predicate in it holds, DefaultVerdict is
// returned as well, and lower-authority rules are not consulted.
func (e *Engine) Decide(ctx *contextgraph.Context, proposed causality.PE, tagFilter ...string) Verdict {
	verdict := e.decide(ctx, proposed, tagFilter)
	if e.metrics != nil {
		e.metrics.EthosVerdicts.WithLabelValues(verdict.String()).Inc()
	}
	return verdict
}

func (e *Engine) decide(ctx *contextgraph.Context, proposed causality.PE, tagFilter []string) Verdict {
	level := e.applicable(ctx, proposed, tagFilter)
	if len(level) == 0 {
		return DefaultVerdict
	}

	matched := false
	verdict := Allow
	for _, r := range level {
		if r.Predicate != nil && !r.Predicate(ctx, proposed) {
			continue
		}
		matched = true
		if r.Verdict == Deny {
			verdict = Deny
		}
	}
	if !matched {
		return DefaultVerdict
	}
	return verdict
}

// Explain evaluates the same resolution path as Decide but returns a
// human-readable account of which rules were considered and how they
// contributed to the final verdict (supplemented operation, spec.md §7's
// "Explain" surface extended to the rule engine).
func (e *Engine) Explain(ctx *contextgraph.Context, proposed causality.PE, tagFilter ...string) (Verdict, string) {
	level := e.applicable(ctx, proposed, tagFilter)
	if len(level) == 0 {
		return DefaultVerdict, fmt.Sprintf("no rule matched tag filter %v -> default %s", tagFilter, DefaultVerdict)
	}

	var lines []string
	matched := false
	verdict := Allow
	for _, r := range level {
		if r.Predicate != nil && !r.Predicate(ctx, proposed) {
			lines = append(lines, fmt.Sprintf("rule %d (%s): predicate false, skipped", r.ID, r.Description))
			continue
		}
		matched = true
		lines = append(lines, fmt.Sprintf("rule %d (%s): matched, verdict=%s", r.ID, r.Description, r.Verdict))
		if r.Verdict == Deny {
			verdict = Deny
		}
	}
	if !matched {
		return DefaultVerdict, fmt.Sprintf("authority level %d matched no predicate -> default %s", level[0].Authority, DefaultVerdict)
	}

	explanation := fmt.Sprintf("authority level %d: %d rule(s) evaluated -> %s", level[0].Authority, len(level), verdict)
	for _, l := range lines {
		explanation += "\n  " + l
	}
	return verdict, explanation
}
