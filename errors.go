package conic

import "fmt"

// ValidationError reports a leaf given a value whose shape or content does
// not match its declaration. Raised at construction or value assignment,
// before any downstream use.
type ValidationError struct {
	Leaf   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("conic: invalid %s: %s", e.Leaf, e.Reason)
}

// SignDeclarationError reports a declared sign outside
// {ZERO, POSITIVE, NEGATIVE, UNKNOWN}.
type SignDeclarationError struct {
	Given string
}

func (e *SignDeclarationError) Error() string {
	return fmt.Sprintf("conic: invalid sign declaration %q (want ZERO, POSITIVE, NEGATIVE or UNKNOWN)", e.Given)
}

// DCPViolationError reports an atom whose composition preconditions do not
// hold for its arguments. Raised at the offending node during
// canonicalization, never deferred to assembly.
type DCPViolationError struct {
	Atom   string
	Reason string
}

func (e *DCPViolationError) Error() string {
	return fmt.Sprintf("conic: DCP violation in %s: %s", e.Atom, e.Reason)
}

// SizeMismatchError reports a canonical affine form whose dimensions
// disagree with its originating expression.
type SizeMismatchError struct {
	Atom               string
	WantRows, WantCols int
	GotRows, GotCols   int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("conic: %s canonicalized to %dx%d, declared %dx%d",
		e.Atom, e.GotRows, e.GotCols, e.WantRows, e.WantCols)
}

// AssemblyError reports a failure while binding a canonical form to a
// numeric snapshot: a parameter without a value, or a cone descriptor whose
// accounting does not match its block.
type AssemblyError struct {
	Reason string
}

func (e *AssemblyError) Error() string {
	return "conic: assembly failed: " + e.Reason
}
