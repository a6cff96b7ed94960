package effect

import (
	"fmt"

	"github.com/deepcausality-go/deepcausality/internal/causerr"
)

// Kind tags the variant held by an EffectValue.
type Kind int

const (
	// KindNone is the absence of a value (distinct from a zero numeric value).
	KindNone Kind = iota
	// KindValue wraps an arbitrary, causaloid-defined payload.
	KindValue
	// KindDeterministic is a boolean verdict.
	KindDeterministic
	// KindProbabilistic is a real in [0,1].
	KindProbabilistic
	// KindNumeric is an arbitrary real value.
	KindNumeric
	// KindMap is a string-keyed mapping of nested EffectValue.
	KindMap
	// KindError wraps a causerr.Causerr riding the value channel (distinct
	// from the carrier's own Err slot; used when a causaloid wants to
	// report a sub-computation's failure without failing the whole chain).
	KindError
)

// EffectValue is the unconstrained return channel of a causal function:
// the tagged union spec.md §3.1 names. Construct one with the Value*
// helpers; inspect it with Kind and the typed accessors.
type EffectValue struct {
	kind Kind
	val  interface{}
	det  bool
	prob float64
	num  float64
	m    map[string]EffectValue
	err  causerr.Causerr
}

// Kind reports the variant held.
func (v EffectValue) Kind() Kind { return v.kind }

// NoneValue constructs the None variant.
func NoneValue() EffectValue { return EffectValue{kind: KindNone} }

// Value wraps an arbitrary payload.
func Value(v interface{}) EffectValue { return EffectValue{kind: KindValue, val: v} }

// Deterministic wraps a boolean verdict.
func Deterministic(b bool) EffectValue { return EffectValue{kind: KindDeterministic, det: b} }

// Probabilistic wraps a real in [0,1]. Out-of-range inputs are clamped
// rather than rejected: the carrier never panics on well-formed input, and
// an out-of-range probability is a caller bug best surfaced by a failing
// test, not a runtime error deep in a bind chain.
func Probabilistic(p float64) EffectValue {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return EffectValue{kind: KindProbabilistic, prob: p}
}

// Numeric wraps an arbitrary real value.
func Numeric(x float64) EffectValue { return EffectValue{kind: KindNumeric, num: x} }

// MapOf wraps a string-keyed mapping of nested EffectValue.
func MapOf(m map[string]EffectValue) EffectValue { return EffectValue{kind: KindMap, m: m} }

// ErrorOf wraps a causerr.Causerr on the value channel.
func ErrorOf(e causerr.Causerr) EffectValue { return EffectValue{kind: KindError, err: e} }

// AsValue returns the payload wrapped by a KindValue, and whether the
// variant actually was KindValue.
func (v EffectValue) AsValue() (interface{}, bool) {
	if v.kind != KindValue {
		return nil, false
	}
	return v.val, true
}

// AsDeterministic returns the boolean wrapped by a KindDeterministic, and
// whether the variant actually was KindDeterministic.
func (v EffectValue) AsDeterministic() (bool, bool) {
	return v.det, v.kind == KindDeterministic
}

// AsProbabilistic returns the probability wrapped by a KindProbabilistic,
// and whether the variant actually was KindProbabilistic.
func (v EffectValue) AsProbabilistic() (float64, bool) {
	return v.prob, v.kind == KindProbabilistic
}

// AsNumeric returns the real wrapped by a KindNumeric, and whether the
// variant actually was KindNumeric.
func (v EffectValue) AsNumeric() (float64, bool) {
	return v.num, v.kind == KindNumeric
}

// AsMap returns the mapping wrapped by a KindMap, and whether the variant
// actually was KindMap.
func (v EffectValue) AsMap() (map[string]EffectValue, bool) {
	return v.m, v.kind == KindMap
}

// AsError returns the causerr.Causerr wrapped by a KindError, and whether
// the variant actually was KindError.
func (v EffectValue) AsError() (causerr.Causerr, bool) {
	return v.err, v.kind == KindError
}

// Truthy reduces an EffectValue to a boolean per spec.md §4.2:
//
//	Deterministic(b)  -> b
//	Probabilistic(p)  -> p >= threshold
//	Numeric(x)        -> x != 0
//	Map               -> all entries truthy
//	Error             -> false
//	None              -> false
//	Value(v)          -> v.(bool) if it holds a bool, else false
func (v EffectValue) Truthy(threshold float64) bool {
	switch v.kind {
	case KindDeterministic:
		return v.det
	case KindProbabilistic:
		return v.prob >= threshold
	case KindNumeric:
		return v.num != 0
	case KindMap:
		for _, nested := range v.m {
			if !nested.Truthy(threshold) {
				return false
			}
		}
		return true
	case KindError, KindNone:
		return false
	case KindValue:
		if b, ok := v.val.(bool); ok {
			return b
		}
		return false
	default:
		return false
	}
}

// String renders the value for logging.
func (v EffectValue) String() string {
	switch v.kind {
	case KindNone:
		return "None"
	case KindValue:
		return fmt.Sprintf("Value(%v)", v.val)
	case KindDeterministic:
		return fmt.Sprintf("Deterministic(%t)", v.det)
	case KindProbabilistic:
		return fmt.Sprintf("Probabilistic(%g)", v.prob)
	case KindNumeric:
		return fmt.Sprintf("Numeric(%g)", v.num)
	case KindMap:
		return fmt.Sprintf("Map(%d entries)", len(v.m))
	case KindError:
		return fmt.Sprintf("Error(%s)", v.err.Error())
	default:
		return "Unknown"
	}
}
