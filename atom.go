package conic

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Atom constructors validate shapes eagerly and panic with a
// *ValidationError on mismatch, following the gonum convention that
// dimension errors are programmer errors. DCP violations, by contrast, are
// reported as errors during canonicalization.

// signMono returns the monotonicity of an even, symmetric convex atom
// (abs, square, norm) in an argument of known sign.
func signMono(x Expr) Monotonicity {
	s := x.Sign()
	switch {
	case s.IsPositive():
		return Increasing
	case s.IsNegative():
		return Decreasing
	default:
		return NonMonotone
	}
}

// outShape resolves the common shape of elementwise operands, allowing
// scalars to broadcast.
func outShape(atom string, xs []Expr) (int, int) {
	rows, cols := 1, 1
	for _, x := range xs {
		if isScalar(x) {
			continue
		}
		if rows == 1 && cols == 1 {
			rows, cols = x.Rows(), x.Cols()
			continue
		}
		if x.Rows() != rows || x.Cols() != cols {
			panic(&ValidationError{Leaf: atom, Reason: fmt.Sprintf(
				"operand is %dx%d, want %dx%d or scalar", x.Rows(), x.Cols(), rows, cols)})
		}
	}
	return rows, cols
}

// promote broadcasts a scalar affine stand-in to the given shape.
func promote(a *AffineExpr, rows, cols int) *AffineExpr {
	if r, c := a.Dims(); r == rows && c == cols {
		return a
	}
	n := rows * cols
	ones := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		ones.Set(i, 0, 1)
	}
	return affineReshape(affineMatVec(ones, a), rows, cols)
}

// ---------------------------------------------------------------------------
// Affine atoms

type addAtom struct {
	xs         []Expr
	rows, cols int
}

// Add sums its operands elementwise. Scalars broadcast.
func Add(xs ...Expr) Expr {
	if len(xs) == 0 {
		panic(&ValidationError{Leaf: "add", Reason: "needs at least one operand"})
	}
	r, c := outShape("add", xs)
	return &addAtom{xs: xs, rows: r, cols: c}
}

// Sub returns x - y.
func Sub(x, y Expr) Expr { return Add(x, Neg(y)) }

func (a *addAtom) Rows() int    { return a.rows }
func (a *addAtom) Cols() int    { return a.cols }
func (a *addAtom) name() string { return "add" }

func (a *addAtom) Sign() Sign {
	s := SignZero
	for _, x := range a.xs {
		s = addSigns(s, x.Sign())
	}
	return s
}

func (a *addAtom) Curvature() Curvature {
	args := make([]Curvature, len(a.xs))
	monos := make([]Monotonicity, len(a.xs))
	for i, x := range a.xs {
		args[i] = x.Curvature()
		monos[i] = Increasing
	}
	return composeCurvature(CurvAffine, args, monos)
}

func (a *addAtom) canonical(ctx *canonCtx) (*AffineExpr, []Constraint, error) {
	var cons []Constraint
	out := newAffine(a.rows, a.cols)
	for _, x := range a.xs {
		xa, xc, err := ctx.canon(x)
		if err != nil {
			return nil, nil, err
		}
		cons = append(cons, xc...)
		out = affineAdd(out, promote(xa, a.rows, a.cols))
	}
	return out, cons, nil
}

type negAtom struct{ x Expr }

// Neg returns the elementwise negation of x.
func Neg(x Expr) Expr { return &negAtom{x: x} }

func (a *negAtom) Rows() int    { return a.x.Rows() }
func (a *negAtom) Cols() int    { return a.x.Cols() }
func (a *negAtom) Sign() Sign   { return negSign(a.x.Sign()) }
func (a *negAtom) name() string { return "neg" }

func (a *negAtom) Curvature() Curvature {
	return composeCurvature(CurvAffine, []Curvature{a.x.Curvature()}, []Monotonicity{Decreasing})
}

func (a *negAtom) canonical(ctx *canonCtx) (*AffineExpr, []Constraint, error) {
	xa, cons, err := ctx.canon(a.x)
	if err != nil {
		return nil, nil, err
	}
	return affineNeg(xa), cons, nil
}

type scaleAtom struct {
	alpha float64
	x     Expr
}

// Scale returns alpha * x.
func Scale(alpha float64, x Expr) Expr { return &scaleAtom{alpha: alpha, x: x} }

func (a *scaleAtom) Rows() int    { return a.x.Rows() }
func (a *scaleAtom) Cols() int    { return a.x.Cols() }
func (a *scaleAtom) name() string { return "scale" }

func (a *scaleAtom) Sign() Sign {
	switch {
	case a.alpha > 0:
		return mulSigns(SignPositive, a.x.Sign())
	case a.alpha < 0:
		return mulSigns(SignNegative, a.x.Sign())
	default:
		return SignZero
	}
}

func (a *scaleAtom) Curvature() Curvature {
	m := Increasing
	if a.alpha < 0 {
		m = Decreasing
	}
	return composeCurvature(CurvAffine, []Curvature{a.x.Curvature()}, []Monotonicity{m})
}

func (a *scaleAtom) canonical(ctx *canonCtx) (*AffineExpr, []Constraint, error) {
	xa, cons, err := ctx.canon(a.x)
	if err != nil {
		return nil, nil, err
	}
	return affineScale(a.alpha, xa), cons, nil
}

type matMulAtom struct {
	c *mat.Dense
	x Expr
	p int
}

// MatMul returns C * x for a constant matrix C and a column-vector
// expression x.
func MatMul(c *mat.Dense, x Expr) Expr {
	if x.Cols() != 1 {
		panic(&ValidationError{Leaf: "matmul", Reason: "operand must be a column vector"})
	}
	p, q := c.Dims()
	if q != x.Rows() {
		panic(&ValidationError{Leaf: "matmul", Reason: fmt.Sprintf(
			"matrix is %dx%d, operand has %d rows", p, q, x.Rows())})
	}
	return &matMulAtom{c: cloneDense(c), x: x, p: p}
}

func (a *matMulAtom) Rows() int    { return a.p }
func (a *matMulAtom) Cols() int    { return 1 }
func (a *matMulAtom) name() string { return "matmul" }

func (a *matMulAtom) Sign() Sign {
	return mulSigns(signOfDense(a.c), a.x.Sign())
}

func (a *matMulAtom) Curvature() Curvature {
	m := NonMonotone
	switch signOfDense(a.c) {
	case SignPositive, SignZero:
		m = Increasing
	case SignNegative:
		m = Decreasing
	}
	return composeCurvature(CurvAffine, []Curvature{a.x.Curvature()}, []Monotonicity{m})
}

func (a *matMulAtom) canonical(ctx *canonCtx) (*AffineExpr, []Constraint, error) {
	xa, cons, err := ctx.canon(a.x)
	if err != nil {
		return nil, nil, err
	}
	return affineMatVec(a.c, xa), cons, nil
}

type sumAtom struct{ x Expr }

// Sum collapses all entries of x into a scalar.
func Sum(x Expr) Expr { return &sumAtom{x: x} }

func (a *sumAtom) Rows() int    { return 1 }
func (a *sumAtom) Cols() int    { return 1 }
func (a *sumAtom) Sign() Sign   { return a.x.Sign() }
func (a *sumAtom) name() string { return "sum" }

func (a *sumAtom) Curvature() Curvature {
	return composeCurvature(CurvAffine, []Curvature{a.x.Curvature()}, []Monotonicity{Increasing})
}

func (a *sumAtom) canonical(ctx *canonCtx) (*AffineExpr, []Constraint, error) {
	xa, cons, err := ctx.canon(a.x)
	if err != nil {
		return nil, nil, err
	}
	return affineSum(xa), cons, nil
}

type reshapeAtom struct {
	x          Expr
	rows, cols int
}

// Reshape reinterprets x under new dimensions with the same entry count,
// in column-major order.
func Reshape(x Expr, rows, cols int) Expr {
	if rows*cols != x.Rows()*x.Cols() {
		panic(&ValidationError{Leaf: "reshape", Reason: fmt.Sprintf(
			"cannot reshape %dx%d to %dx%d", x.Rows(), x.Cols(), rows, cols)})
	}
	return &reshapeAtom{x: x, rows: rows, cols: cols}
}

func (a *reshapeAtom) Rows() int    { return a.rows }
func (a *reshapeAtom) Cols() int    { return a.cols }
func (a *reshapeAtom) Sign() Sign   { return a.x.Sign() }
func (a *reshapeAtom) name() string { return "reshape" }

func (a *reshapeAtom) Curvature() Curvature {
	return composeCurvature(CurvAffine, []Curvature{a.x.Curvature()}, []Monotonicity{Increasing})
}

func (a *reshapeAtom) canonical(ctx *canonCtx) (*AffineExpr, []Constraint, error) {
	xa, cons, err := ctx.canon(a.x)
	if err != nil {
		return nil, nil, err
	}
	return affineReshape(xa, a.rows, a.cols), cons, nil
}

type vstackAtom struct {
	xs   []Expr
	rows int
}

// VStack stacks column-vector expressions on top of each other.
func VStack(xs ...Expr) Expr {
	if len(xs) == 0 {
		panic(&ValidationError{Leaf: "vstack", Reason: "needs at least one operand"})
	}
	rows := 0
	for _, x := range xs {
		if x.Cols() != 1 {
			panic(&ValidationError{Leaf: "vstack", Reason: "operands must be column vectors"})
		}
		rows += x.Rows()
	}
	return &vstackAtom{xs: xs, rows: rows}
}

func (a *vstackAtom) Rows() int    { return a.rows }
func (a *vstackAtom) Cols() int    { return 1 }
func (a *vstackAtom) name() string { return "vstack" }

func (a *vstackAtom) Sign() Sign {
	s := SignZero
	for _, x := range a.xs {
		s = addSigns(s, x.Sign())
	}
	return s
}

func (a *vstackAtom) Curvature() Curvature {
	args := make([]Curvature, len(a.xs))
	monos := make([]Monotonicity, len(a.xs))
	for i, x := range a.xs {
		args[i] = x.Curvature()
		monos[i] = Increasing
	}
	return composeCurvature(CurvAffine, args, monos)
}

func (a *vstackAtom) canonical(ctx *canonCtx) (*AffineExpr, []Constraint, error) {
	var cons []Constraint
	parts := make([]*AffineExpr, 0, len(a.xs))
	for _, x := range a.xs {
		xa, xc, err := ctx.canon(x)
		if err != nil {
			return nil, nil, err
		}
		cons = append(cons, xc...)
		parts = append(parts, xa)
	}
	return affineConcat(parts, a.rows, 1), cons, nil
}

// ---------------------------------------------------------------------------
// Nonlinear atoms (epigraph / hypograph graph implementations)

type absAtom struct{ x Expr }

// Abs is the elementwise absolute value: convex, non-negative.
func Abs(x Expr) Expr { return &absAtom{x: x} }

func (a *absAtom) Rows() int    { return a.x.Rows() }
func (a *absAtom) Cols() int    { return a.x.Cols() }
func (a *absAtom) Sign() Sign   { return SignPositive }
func (a *absAtom) name() string { return "abs" }

func (a *absAtom) Curvature() Curvature {
	return composeCurvature(CurvConvex, []Curvature{a.x.Curvature()}, []Monotonicity{signMono(a.x)})
}

// canonical lifts |x| <= t into t - x >= 0 and t + x >= 0.
func (a *absAtom) canonical(ctx *canonCtx) (*AffineExpr, []Constraint, error) {
	if err := ctx.checkDCP(a); err != nil {
		return nil, nil, err
	}
	xa, cons, err := ctx.canon(a.x)
	if err != nil {
		return nil, nil, err
	}
	t := ctx.fresh(a.x.Rows(), a.x.Cols())
	cons = append(cons,
		NewNonNegConstraint(affineSub(t, xa)),
		NewNonNegConstraint(affineAdd(t, xa)),
	)
	return t, cons, nil
}

type norm2Atom struct{ x Expr }

// Norm2 is the Euclidean norm of all entries of x: convex, non-negative.
func Norm2(x Expr) Expr { return &norm2Atom{x: x} }

func (a *norm2Atom) Rows() int    { return 1 }
func (a *norm2Atom) Cols() int    { return 1 }
func (a *norm2Atom) Sign() Sign   { return SignPositive }
func (a *norm2Atom) name() string { return "norm2" }

func (a *norm2Atom) Curvature() Curvature {
	return composeCurvature(CurvConvex, []Curvature{a.x.Curvature()}, []Monotonicity{signMono(a.x)})
}

// canonical lifts ||x|| <= t into one second-order cone [t; vec(x)].
func (a *norm2Atom) canonical(ctx *canonCtx) (*AffineExpr, []Constraint, error) {
	if err := ctx.checkDCP(a); err != nil {
		return nil, nil, err
	}
	xa, cons, err := ctx.canon(a.x)
	if err != nil {
		return nil, nil, err
	}
	n := a.x.Rows() * a.x.Cols()
	t := ctx.fresh(1, 1)
	block := affineConcat([]*AffineExpr{t, affineReshape(xa, n, 1)}, n+1, 1)
	soc, err := NewSOCConstraint(block, SOCAxis{Cones: 1, Size: n + 1})
	if err != nil {
		return nil, nil, err
	}
	return t, append(cons, soc), nil
}

type squareAtom struct{ x Expr }

// Square is the elementwise square: convex, non-negative.
func Square(x Expr) Expr { return &squareAtom{x: x} }

func (a *squareAtom) Rows() int    { return a.x.Rows() }
func (a *squareAtom) Cols() int    { return a.x.Cols() }
func (a *squareAtom) Sign() Sign   { return SignPositive }
func (a *squareAtom) name() string { return "square" }

func (a *squareAtom) Curvature() Curvature {
	return composeCurvature(CurvConvex, []Curvature{a.x.Curvature()}, []Monotonicity{signMono(a.x)})
}

// canonical lifts x_i^2 <= t_i per entry into a (3 x n) SOC block: each
// column is the cone (t_i+1, 2x_i, t_i-1).
func (a *squareAtom) canonical(ctx *canonCtx) (*AffineExpr, []Constraint, error) {
	if err := ctx.checkDCP(a); err != nil {
		return nil, nil, err
	}
	xa, cons, err := ctx.canon(a.x)
	if err != nil {
		return nil, nil, err
	}
	n := a.x.Rows() * a.x.Cols()
	t := ctx.fresh(a.x.Rows(), a.x.Cols())
	one := affineConstant(mat.NewDense(1, 1, []float64{1}))
	colParts := make([]*AffineExpr, 0, n)
	for i := 0; i < n; i++ {
		ti := affineEntry(t, i)
		xi := affineEntry(xa, i)
		col := affineConcat([]*AffineExpr{
			affineAdd(ti, one),
			affineScale(2, xi),
			affineSub(ti, one),
		}, 3, 1)
		colParts = append(colParts, col)
	}
	block := affineConcat(colParts, 3, n)
	soc, err := NewSOCConstraint(block, SOCAxis{Cones: n, Size: 3})
	if err != nil {
		return nil, nil, err
	}
	return t, append(cons, soc), nil
}

type sqrtAtom struct{ x Expr }

// Sqrt is the elementwise square root: concave, non-negative, increasing.
func Sqrt(x Expr) Expr { return &sqrtAtom{x: x} }

func (a *sqrtAtom) Rows() int    { return a.x.Rows() }
func (a *sqrtAtom) Cols() int    { return a.x.Cols() }
func (a *sqrtAtom) Sign() Sign   { return SignPositive }
func (a *sqrtAtom) name() string { return "sqrt" }

func (a *sqrtAtom) Curvature() Curvature {
	return composeCurvature(CurvConcave, []Curvature{a.x.Curvature()}, []Monotonicity{Increasing})
}

// canonical lifts the hypograph t_i <= sqrt(x_i) as t_i^2 <= x_i with
// t_i >= 0: per entry a cone (x_i+1, 2t_i, x_i-1).
func (a *sqrtAtom) canonical(ctx *canonCtx) (*AffineExpr, []Constraint, error) {
	if err := ctx.checkDCP(a); err != nil {
		return nil, nil, err
	}
	xa, cons, err := ctx.canon(a.x)
	if err != nil {
		return nil, nil, err
	}
	n := a.x.Rows() * a.x.Cols()
	t := ctx.fresh(a.x.Rows(), a.x.Cols())
	one := affineConstant(mat.NewDense(1, 1, []float64{1}))
	colParts := make([]*AffineExpr, 0, n)
	for i := 0; i < n; i++ {
		ti := affineEntry(t, i)
		xi := affineEntry(xa, i)
		col := affineConcat([]*AffineExpr{
			affineAdd(xi, one),
			affineScale(2, ti),
			affineSub(xi, one),
		}, 3, 1)
		colParts = append(colParts, col)
	}
	block := affineConcat(colParts, 3, n)
	soc, err := NewSOCConstraint(block, SOCAxis{Cones: n, Size: 3})
	if err != nil {
		return nil, nil, err
	}
	cons = append(cons, soc, NewNonNegConstraint(t))
	return t, cons, nil
}

type quadOverLinAtom struct {
	x, y Expr
}

// QuadOverLin is sum(x^2)/y for scalar y: convex, non-negative, decreasing
// in y.
func QuadOverLin(x, y Expr) Expr {
	if !isScalar(y) {
		panic(&ValidationError{Leaf: "quad_over_lin", Reason: "denominator must be scalar"})
	}
	return &quadOverLinAtom{x: x, y: y}
}

func (a *quadOverLinAtom) Rows() int    { return 1 }
func (a *quadOverLinAtom) Cols() int    { return 1 }
func (a *quadOverLinAtom) Sign() Sign   { return SignPositive }
func (a *quadOverLinAtom) name() string { return "quad_over_lin" }

func (a *quadOverLinAtom) Curvature() Curvature {
	return composeCurvature(CurvConvex,
		[]Curvature{a.x.Curvature(), a.y.Curvature()},
		[]Monotonicity{signMono(a.x), Decreasing})
}

// canonical lifts sum(x^2)/y <= t as ||(2 vec(x), t-y)|| <= t+y with
// y >= 0: one cone (t+y, 2 vec(x), t-y).
func (a *quadOverLinAtom) canonical(ctx *canonCtx) (*AffineExpr, []Constraint, error) {
	if err := ctx.checkDCP(a); err != nil {
		return nil, nil, err
	}
	xa, cons, err := ctx.canon(a.x)
	if err != nil {
		return nil, nil, err
	}
	ya, yc, err := ctx.canon(a.y)
	if err != nil {
		return nil, nil, err
	}
	cons = append(cons, yc...)
	n := a.x.Rows() * a.x.Cols()
	t := ctx.fresh(1, 1)
	block := affineConcat([]*AffineExpr{
		affineAdd(t, ya),
		affineScale(2, affineReshape(xa, n, 1)),
		affineSub(t, ya),
	}, n+2, 1)
	soc, err := NewSOCConstraint(block, SOCAxis{Cones: 1, Size: n + 2})
	if err != nil {
		return nil, nil, err
	}
	cons = append(cons, soc, NewNonNegConstraint(ya))
	return t, cons, nil
}

type maxAtom struct {
	x, y       Expr
	rows, cols int
}

// Max is the elementwise upper envelope of two expressions: convex,
// increasing in both. Scalars broadcast.
func Max(x, y Expr) Expr {
	r, c := outShape("max", []Expr{x, y})
	return &maxAtom{x: x, y: y, rows: r, cols: c}
}

func (a *maxAtom) Rows() int    { return a.rows }
func (a *maxAtom) Cols() int    { return a.cols }
func (a *maxAtom) Sign() Sign   { return maxSigns(a.x.Sign(), a.y.Sign()) }
func (a *maxAtom) name() string { return "max" }

func (a *maxAtom) Curvature() Curvature {
	return composeCurvature(CurvConvex,
		[]Curvature{a.x.Curvature(), a.y.Curvature()},
		[]Monotonicity{Increasing, Increasing})
}

// canonical lifts max(x,y) <= t into t - x >= 0 and t - y >= 0.
func (a *maxAtom) canonical(ctx *canonCtx) (*AffineExpr, []Constraint, error) {
	if err := ctx.checkDCP(a); err != nil {
		return nil, nil, err
	}
	xa, xc, err := ctx.canon(a.x)
	if err != nil {
		return nil, nil, err
	}
	ya, yc, err := ctx.canon(a.y)
	if err != nil {
		return nil, nil, err
	}
	cons := append(xc, yc...)
	t := ctx.fresh(a.rows, a.cols)
	cons = append(cons,
		NewNonNegConstraint(affineSub(t, promote(xa, a.rows, a.cols))),
		NewNonNegConstraint(affineSub(t, promote(ya, a.rows, a.cols))),
	)
	return t, cons, nil
}
