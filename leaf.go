package conic

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Constant is an immutable numeric leaf. Size and sign are derived from the
// value once at construction and cached.
type Constant struct {
	value      *mat.Dense
	rows, cols int
	sign       Sign
}

// NewConstant wraps a materialized matrix value.
func NewConstant(v *mat.Dense) *Constant {
	if v == nil {
		panic(&ValidationError{Leaf: "constant", Reason: "value must not be nil"})
	}
	r, c := v.Dims()
	return &Constant{value: cloneDense(v), rows: r, cols: c, sign: signOfDense(v)}
}

// NewScalarConstant wraps a single numeric value.
func NewScalarConstant(v float64) *Constant {
	return NewConstant(mat.NewDense(1, 1, []float64{v}))
}

func (c *Constant) Rows() int            { return c.rows }
func (c *Constant) Cols() int            { return c.cols }
func (c *Constant) Sign() Sign           { return c.sign }
func (c *Constant) Curvature() Curvature { return CurvConstant }
func (c *Constant) name() string         { return "constant" }

// Value returns the wrapped matrix.
func (c *Constant) Value() *mat.Dense { return cloneDense(c.value) }

func (c *Constant) canonical(*canonCtx) (*AffineExpr, []Constraint, error) {
	return affineConstant(c.value), nil, nil
}

// signOfDense scans a materialized value once for a provable sign.
func signOfDense(v *mat.Dense) Sign {
	r, c := v.Dims()
	nonneg, nonpos := true, true
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			e := v.At(i, j)
			if e < 0 {
				nonneg = false
			}
			if e > 0 {
				nonpos = false
			}
		}
	}
	switch {
	case nonneg && nonpos:
		return SignZero
	case nonneg:
		return SignPositive
	case nonpos:
		return SignNegative
	default:
		return SignUnknown
	}
}

// Variable is a decision variable leaf occupying rows*cols scalar entries
// of the global variable vector.
type Variable struct {
	id         int64
	rows, cols int
	vname      string
}

func (v *Variable) Rows() int            { return v.rows }
func (v *Variable) Cols() int            { return v.cols }
func (v *Variable) Sign() Sign           { return SignUnknown }
func (v *Variable) Curvature() Curvature { return CurvAffine }
func (v *Variable) name() string         { return "variable" }

// ID returns the session-unique identifier.
func (v *Variable) ID() int64 { return v.id }

// Name returns the user-assigned name, empty for auxiliary variables.
func (v *Variable) Name() string { return v.vname }

func (v *Variable) canonical(ctx *canonCtx) (*AffineExpr, []Constraint, error) {
	return affineVariable(v.id, v.rows, v.cols), nil, nil
}

// Parameter is a leaf with a declared shape and sign and a mutable value
// slot. The value is the only user-mutable post-construction state; its
// canonical form is a symbolic reference, so changing the value never
// invalidates compiled structure.
type Parameter struct {
	id         int64
	rows, cols int
	pname      string
	sign       Sign
	value      *mat.Dense
}

func (p *Parameter) Rows() int            { return p.rows }
func (p *Parameter) Cols() int            { return p.cols }
func (p *Parameter) Sign() Sign           { return p.sign }
func (p *Parameter) Curvature() Curvature { return CurvConstant }
func (p *Parameter) name() string         { return "parameter" }

// ID returns the session-unique identifier.
func (p *Parameter) ID() int64 { return p.id }

// Name returns the declared name.
func (p *Parameter) Name() string { return p.pname }

// SetValue validates v against the declared shape, and against the
// declared sign when it is not UNKNOWN or ZERO. A rejected assignment
// leaves the prior value intact.
func (p *Parameter) SetValue(v *mat.Dense) error {
	if err := p.check(v); err != nil {
		return err
	}
	p.value = cloneDense(v)
	return nil
}

func (p *Parameter) check(v *mat.Dense) error {
	if v == nil {
		return &ValidationError{Leaf: "parameter " + p.pname, Reason: "value must not be nil"}
	}
	r, c := v.Dims()
	if r != p.rows || c != p.cols {
		return &ValidationError{
			Leaf:   "parameter " + p.pname,
			Reason: fmt.Sprintf("value is %dx%d, declared %dx%d", r, c, p.rows, p.cols),
		}
	}
	switch p.sign {
	case SignPositive:
		if !signOfDense(v).IsPositive() {
			return &ValidationError{Leaf: "parameter " + p.pname, Reason: "value violates declared POSITIVE sign"}
		}
	case SignNegative:
		if !signOfDense(v).IsNegative() {
			return &ValidationError{Leaf: "parameter " + p.pname, Reason: "value violates declared NEGATIVE sign"}
		}
	}
	return nil
}

// Value returns the current value, or an error when no value has been set.
func (p *Parameter) Value() (*mat.Dense, error) {
	if p.value == nil {
		return nil, &ValidationError{Leaf: "parameter " + p.pname, Reason: "no value has been set"}
	}
	return cloneDense(p.value), nil
}

// canonical emits a symbolic reference to the parameter's slot; numeric
// substitution of the current value is deferred to assembly time.
func (p *Parameter) canonical(ctx *canonCtx) (*AffineExpr, []Constraint, error) {
	ctx.addParam(p)
	return affineParameter(p.id, p.rows, p.cols), nil, nil
}

// Callback produces a parameter value on demand.
type Callback func() *mat.Dense

// CallbackParam is a Parameter whose value is recomputed by its callback on
// every access. Nothing is cached: the callback's backing data may change
// between calls, so shape and sign are re-validated each time.
type CallbackParam struct {
	Parameter
	cb Callback
}

func (p *CallbackParam) name() string { return "callback parameter" }

// Value invokes the callback and validates the produced value against the
// declared shape and sign.
func (p *CallbackParam) Value() (*mat.Dense, error) {
	v := p.cb()
	if err := p.check(v); err != nil {
		return nil, err
	}
	return cloneDense(v), nil
}

// SetValue always fails: callback parameters have no stored slot.
func (p *CallbackParam) SetValue(*mat.Dense) error {
	return &ValidationError{Leaf: "callback parameter " + p.pname, Reason: "value is computed by callback, not stored"}
}

// canonical registers the callback variant so assembly fetches through the
// callback rather than the embedded stored slot.
func (p *CallbackParam) canonical(ctx *canonCtx) (*AffineExpr, []Constraint, error) {
	ctx.addParam(p)
	return affineParameter(p.id, p.rows, p.cols), nil, nil
}

// ParamSource is the assembler's view of a parameter: identity, shape, and
// a fresh fetch of the current value.
type ParamSource interface {
	ID() int64
	Rows() int
	Cols() int
	Name() string
	Value() (*mat.Dense, error)
}

// LeafData is the descriptive record of a leaf's constructor-level fields.
// It serves inspection and serialization only; canonicalization never
// consumes it.
type LeafData struct {
	Kind        string
	Rows, Cols  int
	Name        string
	Sign        Sign
	Value       *mat.Dense // nil when unset or not applicable
	HasCallback bool
}

// GetData returns the constructor-level record for any leaf expression.
// Composite nodes report ok == false.
func GetData(e Expr) (LeafData, bool) {
	switch l := e.(type) {
	case *Constant:
		return LeafData{Kind: "constant", Rows: l.rows, Cols: l.cols, Sign: l.sign, Value: l.Value()}, true
	case *Variable:
		return LeafData{Kind: "variable", Rows: l.rows, Cols: l.cols, Name: l.vname, Sign: SignUnknown}, true
	case *CallbackParam:
		return LeafData{Kind: "callback_parameter", Rows: l.rows, Cols: l.cols, Name: l.pname, Sign: l.sign, HasCallback: true}, true
	case *Parameter:
		d := LeafData{Kind: "parameter", Rows: l.rows, Cols: l.cols, Name: l.pname, Sign: l.sign}
		if l.value != nil {
			d.Value = cloneDense(l.value)
		}
		return d, true
	default:
		return LeafData{}, false
	}
}
