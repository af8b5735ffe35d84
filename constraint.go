package conic

import "fmt"

// ConeKind classifies the cone a constraint block lives in.
type ConeKind uint8

const (
	// ConeZero is equality: the block must vanish.
	ConeZero ConeKind = iota
	// ConeNonNeg is the non-negative orthant.
	ConeNonNeg
	// ConeSOC is a stack of second-order cones described by an SOCAxis.
	ConeSOC
)

func (k ConeKind) String() string {
	switch k {
	case ConeZero:
		return "zero"
	case ConeNonNeg:
		return "nonneg"
	case ConeSOC:
		return "soc"
	default:
		return "invalid"
	}
}

// SOCAxis describes how a matrix-shaped affine block decomposes into
// independent second-order cones stacked along an axis. With Axis 0 each
// column of the block is one cone of dimension ConeSize, its first entry
// the cone's t term.
type SOCAxis struct {
	Cones int
	Size  int
	Axis  int
}

// NumCones returns the count of independent cones in the block.
func (d SOCAxis) NumCones() int { return d.Cones }

// ConeSize returns the dimension of each individual cone.
func (d SOCAxis) ConeSize() int { return d.Size }

// validate checks the descriptor against a block's extent along the
// constrained axis: Cones*Size must cover it exactly.
func (d SOCAxis) validate(rows, cols int) error {
	extent := rows
	across := cols
	if d.Axis == 1 {
		extent, across = cols, rows
	}
	if d.Cones*d.Size != extent*across {
		return &AssemblyError{Reason: fmt.Sprintf(
			"SOC descriptor %d cones x size %d does not cover a %dx%d block", d.Cones, d.Size, rows, cols)}
	}
	if d.Axis == 0 && (d.Size != rows || d.Cones != cols) {
		return &AssemblyError{Reason: fmt.Sprintf(
			"SOC descriptor (%d cones, size %d, axis 0) disagrees with %dx%d block", d.Cones, d.Size, rows, cols)}
	}
	return nil
}

// Constraint is a typed relation produced by canonicalization: equality
// (zero cone), inequality (non-negative orthant), or second-order-cone
// membership of a matrix block.
type Constraint struct {
	Kind ConeKind
	Expr *AffineExpr
	Axis *SOCAxis // set only for ConeSOC
}

// NewZeroConstraint asserts expr == 0 elementwise.
func NewZeroConstraint(expr *AffineExpr) Constraint {
	return Constraint{Kind: ConeZero, Expr: expr}
}

// NewNonNegConstraint asserts expr >= 0 elementwise.
func NewNonNegConstraint(expr *AffineExpr) Constraint {
	return Constraint{Kind: ConeNonNeg, Expr: expr}
}

// NewSOCConstraint asserts that block decomposes per axis into second-order
// cones. The descriptor must cover the block exactly.
func NewSOCConstraint(block *AffineExpr, axis SOCAxis) (Constraint, error) {
	r, c := block.Dims()
	if err := axis.validate(r, c); err != nil {
		return Constraint{}, err
	}
	a := axis
	return Constraint{Kind: ConeSOC, Expr: block, Axis: &a}, nil
}
