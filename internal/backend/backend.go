// Package backend defines the external-backend contracts from spec.md
// §6.1: interfaces only, no implementation. These are the seams a real
// tensor/sparse-matrix/algebra/physics backend would plug into; the
// causality kernel depends only on these contracts, never on a concrete
// numerics library, so swapping backends never touches the reasoning
// engine.
package backend

import "github.com/deepcausality-go/deepcausality/internal/causerr"

// Tensor is a multi-dimensional array with shape and strides. Every
// stride-aware operation must iterate in *logical* view order (the order
// implied by Shape()/Strides() after any ReshapeView/PermuteAxes), never
// raw storage order — a permuted or reshaped view must read and write as
// if contiguous in its new logical shape (spec.md §9).
type Tensor interface {
	Shape() []int
	Strides() []int

	// At returns the element at the given logical index (one per
	// dimension).
	At(index ...int) (float64, error)
	// Set assigns the element at the given logical index.
	Set(value float64, index ...int) error

	Add(other Tensor) (Tensor, error)
	Sub(other Tensor) (Tensor, error)
	Mul(other Tensor) (Tensor, error)
	Div(other Tensor) (Tensor, error)
	MatMul(other Tensor) (Tensor, error)

	// ReshapeView returns a metadata-only logical view with the given
	// shape; it never copies the underlying storage.
	ReshapeView(shape ...int) (Tensor, error)
	// PermuteAxes returns a metadata-only logical view with axes
	// reordered per perm (a permutation of 0..len(Shape())-1).
	PermuteAxes(perm ...int) (Tensor, error)
	Slice(ranges ...[2]int) (Tensor, error)

	Inverse() (Tensor, error)
	Cholesky() (Tensor, error)
}

// SparseMatrix is a CSR-form (row-indices/col-indices/values/shape)
// sparse matrix contract. Triplet construction must validate row and
// column indices *independently*, reporting the violating index and
// which dimension it violated — never just "the larger of the two"
// (spec.md §6.1).
type SparseMatrix interface {
	Shape() (rows, cols int)
	NNZ() int

	RowIndices() []int
	ColIndices() []int
	Values() []float64

	At(row, col int) (float64, error)
}

// NewSparseFromTriplets validates the row and column indices of a triplet
// set (values are not passed) against a declared shape, independently checking every row index
// against the row bound and every column index against the column bound.
// It returns the violating index and the specific dimension it violated
// rather than collapsing both checks into one "index out of range"
// report.
func NewSparseFromTriplets(rowIdx, colIdx []int, rows, cols int) error {
	if len(rowIdx) != len(colIdx) {
		return causerr.Newf(causerr.ShapeMismatch, "row/col index count mismatch: %d vs %d", len(rowIdx), len(colIdx)).WithDims(len(rowIdx), len(colIdx))
	}
	for i, r := range rowIdx {
		if r < 0 || r >= rows {
			return causerr.Newf(causerr.ShapeMismatch, "row index %d out of bounds at triplet %d", r, i).WithIDs(uint64(i)).WithDims(r, rows)
		}
	}
	for i, c := range colIdx {
		if c < 0 || c >= cols {
			return causerr.Newf(causerr.ShapeMismatch, "col index %d out of bounds at triplet %d", c, i).WithIDs(uint64(i)).WithDims(c, cols)
		}
	}
	return nil
}

// IntegerAlgebra is the powi contract shared by the Complex/Quaternion/
// Octonion algebras: integer exponentiation by repeated squaring, with
// negative exponents computed as the inverse of the accumulated positive
// power — never as the inverse of the base raised to |n| (spec.md §6.1).
type IntegerAlgebra[T any] interface {
	Mul(other T) T
	Inverse() (T, error)
	Identity() T
}

// PowI raises a to the integer power n by exponentiation-by-squaring,
// generic over any IntegerAlgebra element.
func PowI[T IntegerAlgebra[T]](a T, n int) (T, error) {
	if n == 0 {
		return a.Identity(), nil
	}
	neg := n < 0
	e := n
	if neg {
		e = -e
	}

	result := a.Identity()
	base := a
	for e > 0 {
		if e&1 == 1 {
			result = result.Mul(base)
		}
		base = base.Mul(base)
		e >>= 1
	}

	if neg {
		return result.Inverse()
	}
	return result, nil
}

// Multivector is the geometric-algebra contract used by the field
// backend. Wedge must be the grade r+s projection of the geometric
// product — distinct from the commutator (AB-BA)/2 — so mixed-grade
// operands produce the grade-projection result, not the commutator
// (spec.md §6.1).
type Multivector interface {
	Grade(r int) Multivector
	GeometricProduct(other Multivector) Multivector
	// Wedge returns the grade r+s part of GeometricProduct(other), where
	// r and s are the grades of the (assumed homogeneous) receiver and
	// other.
	Wedge(other Multivector) Multivector
}

// GaugeLink is one directed link of a lattice gauge field (an element of
// the gauge group, e.g. SU(N)).
type GaugeLink interface {
	Trace() complex128
	Mul(other GaugeLink) GaugeLink
	// ConjugateTranspose returns the Hermitian conjugate of the link.
	ConjugateTranspose() GaugeLink
}

// Manifold is the lattice gauge field contract. WilsonActionDelta
// computes the local action change for proposing to replace U with Uprime
// given the staple V, using V *without* Hermitian conjugation — a
// conjugated staple silently flips the sign of the computed ΔS, which is
// the specific bug spec.md §6.1 calls out (ΔS = β(Re Tr[U·V] - Re
// Tr[U'·V]) / N).
type Manifold interface {
	WilsonActionDelta(beta float64, n int, u, uPrime, v GaugeLink) float64
}

// WilsonActionDelta implements the Manifold contract's formula directly,
// so a concrete Manifold can delegate to it rather than re-deriving the
// sign convention.
func WilsonActionDelta(beta float64, n int, u, uPrime, v GaugeLink) float64 {
	before := real(u.Mul(v).Trace())
	after := real(uPrime.Mul(v).Trace())
	return beta * (before - after) / float64(n)
}

// Uncertain is a lazily sampled value: operations on it do not resolve
// until a caller asks for a probability, an expectation, or a sequential
// decision.
type Uncertain[T any] interface {
	// Sample draws one realization (implementations may cache/replay for
	// reproducibility).
	Sample() (T, error)
	// EstimateProbability estimates P(predicate) over n samples.
	EstimateProbability(predicate func(T) bool, n int) (float64, error)
	// ExpectedValue estimates E[f] over n samples.
	ExpectedValue(f func(T) float64, n int) (float64, error)
	// SPRTDecide runs a sequential probability ratio test deciding
	// between p0 and p1 at the given error rates, sampling until a
	// decision is reached or maxSamples is exhausted.
	SPRTDecide(predicate func(T) bool, p0, p1, alpha, beta float64, maxSamples int) (accept bool, decided bool, err error)
}
