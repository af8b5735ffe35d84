package conic

// Expr is a node in an expression tree: a leaf (Constant, Variable,
// Parameter, CallbackParam) or a composite atom applied to child
// expressions. The variant set is closed; canonicalization dispatches over
// it exhaustively.
//
// Sign and Curvature are pure functions of the node and its direct
// children; no node consults global tree context.
type Expr interface {
	Rows() int
	Cols() int
	Sign() Sign
	Curvature() Curvature

	// name identifies the node kind in error messages.
	name() string
	// canonical rewrites the node into an equivalent affine expression
	// plus the constraints that enforce it, drawing fresh auxiliary
	// variables from the context's session.
	canonical(ctx *canonCtx) (*AffineExpr, []Constraint, error)
}

// isScalar reports whether e is 1x1.
func isScalar(e Expr) bool { return e.Rows() == 1 && e.Cols() == 1 }
