package conic

import (
	"fmt"
	"sort"
)

// canonCtx threads the session (for fresh auxiliary variables) and the set
// of parameters encountered through one canonicalization pass.
type canonCtx struct {
	s      *Session
	params map[int64]ParamSource
}

func newCanonCtx(s *Session) *canonCtx {
	return &canonCtx{s: s, params: make(map[int64]ParamSource)}
}

// fresh allocates an anonymous epigraph variable and returns its identity
// affine reference.
func (ctx *canonCtx) fresh(rows, cols int) *AffineExpr {
	v := ctx.s.newAuxVariable(rows, cols)
	return affineVariable(v.id, rows, cols)
}

func (ctx *canonCtx) addParam(p ParamSource) {
	ctx.params[p.ID()] = p
}

// checkDCP fails when a node's composition rule could not establish a
// usable curvature for the graph implementation about to run. The error
// names the offending node, never a downstream one.
func (ctx *canonCtx) checkDCP(e Expr) error {
	if e.Curvature() == CurvUnknown {
		return &DCPViolationError{
			Atom:   e.name(),
			Reason: "argument curvature does not satisfy the atom's composition rule",
		}
	}
	return nil
}

// canon canonicalizes one node and enforces the size-preservation
// contract: the produced affine form must match the node's declared
// dimensions exactly.
func (ctx *canonCtx) canon(e Expr) (*AffineExpr, []Constraint, error) {
	a, cons, err := e.canonical(ctx)
	if err != nil {
		return nil, nil, err
	}
	r, c := a.Dims()
	if r != e.Rows() || c != e.Cols() {
		return nil, nil, &SizeMismatchError{
			Atom:     e.name(),
			WantRows: e.Rows(), WantCols: e.Cols(),
			GotRows: r, GotCols: c,
		}
	}
	return a, cons, nil
}

// Canonicalize rewrites an expression into an equivalent affine form plus
// the constraints enforcing it. The result's structure depends only on the
// tree, never on current parameter values, and canonicalizing the same
// immutable tree twice yields structurally equivalent output.
func (s *Session) Canonicalize(e Expr) (*AffineExpr, []Constraint, error) {
	if e == nil {
		return nil, nil, &ValidationError{Leaf: "expression", Reason: "must not be nil"}
	}
	ctx := newCanonCtx(s)
	return ctx.canon(e)
}

// Relation is a user-declared relation between two expressions, checked
// against the DCP discipline at compile time.
type Relation struct {
	kind ConeKind
	lhs  Expr
	rhs  Expr
}

// Eq declares lhs == rhs. Both sides must be affine.
func Eq(lhs, rhs Expr) *Relation {
	outShape("eq", []Expr{lhs, rhs})
	return &Relation{kind: ConeZero, lhs: lhs, rhs: rhs}
}

// Le declares lhs <= rhs. lhs must be convex, rhs concave.
func Le(lhs, rhs Expr) *Relation {
	outShape("le", []Expr{lhs, rhs})
	return &Relation{kind: ConeNonNeg, lhs: lhs, rhs: rhs}
}

// Ge declares lhs >= rhs. lhs must be concave, rhs convex.
func Ge(lhs, rhs Expr) *Relation { return Le(rhs, lhs) }

// Problem is a minimization objective plus declared relations.
type Problem struct {
	Minimize Expr
	Subject  []*Relation
}

// VarInfo records a referenced variable's identity and shape for the
// assembler's global column ordering.
type VarInfo struct {
	ID         int64
	Rows, Cols int
}

// Canonical is the compiled, parameter-value-independent form of a
// problem: the objective's affine map plus all constraints in declaration
// order. One Canonical serves repeated assemblies under changing parameter
// values; only assembly reads the values.
type Canonical struct {
	objective   *AffineExpr
	constraints []Constraint
	vars        []VarInfo
	params      []ParamSource
}

// Objective returns the canonical affine objective (scalar).
func (c *Canonical) Objective() *AffineExpr { return c.objective }

// Constraints returns all constraints in declaration order.
func (c *Canonical) Constraints() []Constraint { return c.constraints }

// Variables returns every referenced variable ascending by id.
func (c *Canonical) Variables() []VarInfo { return c.vars }

// Parameters returns every referenced parameter ascending by id.
func (c *Canonical) Parameters() []ParamSource { return c.params }

// Compile canonicalizes a whole problem: the objective first, then each
// relation in declaration order, concatenating auxiliary constraints ahead
// of the relation's own cone constraint. Any failure discards everything.
func (s *Session) Compile(p Problem) (*Canonical, error) {
	if p.Minimize == nil {
		return nil, &ValidationError{Leaf: "problem", Reason: "objective must not be nil"}
	}
	if !isScalar(p.Minimize) {
		return nil, &ValidationError{Leaf: "problem", Reason: fmt.Sprintf(
			"objective is %dx%d, must be scalar", p.Minimize.Rows(), p.Minimize.Cols())}
	}
	if !p.Minimize.Curvature().isConvex() {
		return nil, &DCPViolationError{Atom: p.Minimize.name(), Reason: "minimization objective must be convex"}
	}

	ctx := newCanonCtx(s)
	obj, cons, err := ctx.canon(p.Minimize)
	if err != nil {
		return nil, err
	}

	for i, rel := range p.Subject {
		relCons, err := rel.canonicalRelation(ctx)
		if err != nil {
			return nil, fmt.Errorf("constraint %d: %w", i, err)
		}
		cons = append(cons, relCons...)
	}

	c := &Canonical{objective: obj, constraints: cons}
	c.vars = collectVars(s, obj, cons)
	c.params = collectParams(ctx)
	return c, nil
}

// canonicalRelation checks the relation's curvature discipline and rewrites
// it into cone membership of an affine block.
func (r *Relation) canonicalRelation(ctx *canonCtx) ([]Constraint, error) {
	switch r.kind {
	case ConeZero:
		if !r.lhs.Curvature().isAffine() || !r.rhs.Curvature().isAffine() {
			return nil, &DCPViolationError{Atom: "eq", Reason: "both sides of an equality must be affine"}
		}
	case ConeNonNeg:
		if !r.lhs.Curvature().isConvex() {
			return nil, &DCPViolationError{Atom: "le", Reason: "left side must be convex"}
		}
		if !r.rhs.Curvature().isConcave() {
			return nil, &DCPViolationError{Atom: "le", Reason: "right side must be concave"}
		}
	}
	la, lc, err := ctx.canon(r.lhs)
	if err != nil {
		return nil, err
	}
	ra, rc, err := ctx.canon(r.rhs)
	if err != nil {
		return nil, err
	}
	rows, cols := relShape(r.lhs, r.rhs)
	la = promote(la, rows, cols)
	ra = promote(ra, rows, cols)

	cons := append(lc, rc...)
	switch r.kind {
	case ConeZero:
		cons = append(cons, NewZeroConstraint(affineSub(la, ra)))
	default:
		cons = append(cons, NewNonNegConstraint(affineSub(ra, la)))
	}
	return cons, nil
}

func relShape(lhs, rhs Expr) (int, int) {
	if !isScalar(lhs) {
		return lhs.Rows(), lhs.Cols()
	}
	return rhs.Rows(), rhs.Cols()
}

func collectVars(s *Session, obj *AffineExpr, cons []Constraint) []VarInfo {
	seen := make(map[int64]bool)
	var ids []int64
	note := func(a *AffineExpr) {
		for _, id := range a.VarIDs() {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	note(obj)
	for _, c := range cons {
		note(c.Expr)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	vars := make([]VarInfo, 0, len(ids))
	for _, id := range ids {
		d := s.varDims[id]
		vars = append(vars, VarInfo{ID: id, Rows: d[0], Cols: d[1]})
	}
	return vars
}

func collectParams(ctx *canonCtx) []ParamSource {
	ids := make([]int64, 0, len(ctx.params))
	for id := range ctx.params {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]ParamSource, 0, len(ids))
	for _, id := range ids {
		out = append(out, ctx.params[id])
	}
	return out
}
