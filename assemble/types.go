// Package assemble binds a compiled canonical problem to a numeric
// snapshot of its parameter values, producing the sparse conic standard
// form handed to an external solver.
//
// Assembly is the only stage that reads parameter values. The canonical
// structure it consumes never changes between assemblies, so updating a
// parameter and re-assembling reuses all compiled structure.
package assemble

import (
	"github.com/coneform/conic"
)

// Options configures one assembly run.
type Options struct {
	// LogLevel enables the built-in text logger when non-empty:
	// "error", "warn", "info", "debug".
	LogLevel string

	// Logger overrides the built-in logger when set.
	Logger Logger

	// DropEps treats coefficient magnitudes at or below this threshold as
	// structural zeros when emitting triplets.
	DropEps float64
}

// DefaultOptions returns the default configuration for assembly.
func DefaultOptions() Options {
	return Options{
		LogLevel: "",
		DropEps:  0,
	}
}

// ConeDim is one positional entry of the solver cone list.
type ConeDim struct {
	Kind conic.ConeKind
	Size int
}

// Triplet is a single sparse coefficient of the global matrix.
type Triplet struct {
	Row, Col int
	Val      float64
}

// Form is the assembled conic standard form. Row blocks of A follow the
// constraint declaration order exactly and Cones lists the matching cones
// positionally: each block asserts A*x + B in K.
type Form struct {
	// Rows and Cols are the dimensions of the global coefficient matrix.
	Rows, Cols int

	// A holds the sparse coefficients in block emission order.
	A []Triplet

	// B is the per-row constant offset, parameter values substituted.
	B []float64

	// C is the objective vector over the global columns; COffset collects
	// the objective's constant and parameter terms.
	C       []float64
	COffset float64

	// Cones is the positional cone list matching the row blocks of A.
	Cones []ConeDim

	// VarIndex maps each variable id to its first global column.
	VarIndex map[int64]int

	varDims map[int64][2]int
	runID   string
}

// RunID identifies this assembly in logs.
func (f *Form) RunID() string { return f.runID }
