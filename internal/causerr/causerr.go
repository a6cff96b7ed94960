// Package causerr defines the fixed error surface shared by every
// component of the causality kernel. Errors are values, not chains: a
// Causerr has no wrapped cause, and any diagnostic context travels in
// Diagnostics rather than in a nested error. Diagnostics' IDs and Dims are
// slices, so a copied Causerr shares their backing arrays with the original.
package causerr

import "fmt"

// Code enumerates the causality kernel's error variants. The set is fixed;
// adding a variant is a deliberate, reviewed change, not an open extension
// point.
type Code int

const (
	// Unspecified is the zero value and must never be returned deliberately.
	Unspecified Code = iota
	// InternalLogicError marks a state the implementation believes is
	// unreachable (e.g. a value missing without an error set).
	InternalLogicError
	// TypeConversionError marks a failed EffectValue/protocol conversion.
	TypeConversionError
	// StartNodeOutOfBounds marks a traversal start index outside the graph.
	StartNodeOutOfBounds
	// MaxStepsExceeded marks a traversal that exceeded its configured budget.
	MaxStepsExceeded
	// GraphProducedNoResult marks a traversal that never reached its stop
	// node (no path from start to stop).
	GraphProducedNoResult
	// CycleDetected marks re-entry into an already-visited node.
	CycleDetected
	// StateAlreadyExists marks a CSM add of a state id already present.
	StateAlreadyExists
	// StateNotFound marks a CSM operation on an absent state id.
	StateNotFound
	// ProtocolMismatch marks a control-flow protocol extraction failure.
	ProtocolMismatch
	// MetricMismatch marks a dimension/unit mismatch in a backend contract.
	MetricMismatch
	// ShapeMismatch marks a tensor/sparse shape mismatch.
	ShapeMismatch
	// SingularMatrix marks a non-invertible matrix.
	SingularMatrix
	// NumericalInstability marks a backend computation that lost precision
	// beyond an acceptable tolerance.
	NumericalInstability
	// PhysicalInvariantBroken marks a gauge/manifold invariant violation.
	PhysicalInvariantBroken
	// AggregationError marks a Collection causaloid with no usable
	// aggregation logic (AggregationLogic == None).
	AggregationError
	// ConstructionError marks a rejected constructor (non-finite input,
	// out-of-range value, malformed structural argument).
	ConstructionError
)

var codeNames = map[Code]string{
	Unspecified:             "Unspecified",
	InternalLogicError:      "InternalLogicError",
	TypeConversionError:     "TypeConversionError",
	StartNodeOutOfBounds:    "StartNodeOutOfBounds",
	MaxStepsExceeded:        "MaxStepsExceeded",
	GraphProducedNoResult:   "GraphProducedNoResult",
	CycleDetected:           "CycleDetected",
	StateAlreadyExists:      "StateAlreadyExists",
	StateNotFound:           "StateNotFound",
	ProtocolMismatch:        "ProtocolMismatch",
	MetricMismatch:          "MetricMismatch",
	ShapeMismatch:           "ShapeMismatch",
	SingularMatrix:          "SingularMatrix",
	NumericalInstability:    "NumericalInstability",
	PhysicalInvariantBroken: "PhysicalInvariantBroken",
	AggregationError:        "AggregationError",
	ConstructionError:       "ConstructionError",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "Unknown"
}

// Diagnostics is the brief structured context spec.md §7 requires
// alongside every user-visible failure: the ids involved, any relevant
// dimensions, and a short human-readable note. It never carries a nested
// error. IDs and Dims are heap-backed slices, not fixed-size arrays.
type Diagnostics struct {
	// IDs are the ids of the entities involved (causaloid, node, state...).
	IDs []uint64
	// Dims are relevant dimensions/shapes, when applicable.
	Dims []int
	// Note is a short, human-readable diagnostic string.
	Note string
}

// Causerr is the fixed error value returned across the causality kernel.
// It satisfies the error interface but carries no pointer to a wrapped
// cause: Code plus Diagnostics is the entire payload.
type Causerr struct {
	Code Code
	Diag Diagnostics
}

// New constructs a Causerr with the given code and note.
func New(code Code, note string) Causerr {
	return Causerr{Code: code, Diag: Diagnostics{Note: note}}
}

// Newf constructs a Causerr with a formatted note.
func Newf(code Code, format string, args ...interface{}) Causerr {
	return Causerr{Code: code, Diag: Diagnostics{Note: fmt.Sprintf(format, args...)}}
}

// WithIDs returns a copy of e with the given ids attached.
func (e Causerr) WithIDs(ids ...uint64) Causerr {
	e.Diag.IDs = ids
	return e
}

// WithDims returns a copy of e with the given dimensions attached.
func (e Causerr) WithDims(dims ...int) Causerr {
	e.Diag.Dims = dims
	return e
}

// Error implements the error interface.
func (e Causerr) Error() string {
	if e.Diag.Note == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code.String(), e.Diag.Note)
}

// Is reports whether target is a Causerr with the same Code, so callers
// can use errors.Is(err, causerr.New(causerr.StateNotFound, "")) without
// comparing Diagnostics.
func (e Causerr) Is(target error) bool {
	other, ok := target.(Causerr)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

// Of extracts a Causerr from a generic error, when present. Both the value
// form (Causerr, as returned by New/Newf) and the pointer form (*Causerr,
// as carried by effect.Process.Err) are recognized, since callers reach
// for Of on both.
func Of(err error) (Causerr, bool) {
	switch e := err.(type) {
	case Causerr:
		return e, true
	case *Causerr:
		if e == nil {
			return Causerr{}, false
		}
		return *e, true
	default:
		return Causerr{}, false
	}
}
