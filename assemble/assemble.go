package assemble

import (
	"fmt"
	"math"
	"time"

	set "github.com/hashicorp/go-set/v3"
	"gonum.org/v1/gonum/mat"

	"github.com/coneform/conic"
)

// Assemble walks a canonical problem's objective and constraints in
// declaration order and concatenates them into one global sparse form.
// It takes an immutable snapshot of all parameter values up front, so
// parameter updates that land mid-assembly (from the caller's own code;
// the package itself is single-threaded) cannot tear the output.
//
// Failure returns no partial form.
func Assemble(c *conic.Canonical, opts ...Options) (*Form, error) {
	opt := DefaultOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}
	logger := opt.Logger
	if logger == nil {
		if opt.LogLevel != "" {
			logger = NewLogger(ParseLogLevel(opt.LogLevel), nil)
		} else {
			logger = newNoopLogger()
		}
	}
	runID := fmt.Sprintf("a%d", time.Now().UnixNano()%1000000)
	logger = logger.With(map[string]any{"run": runID})

	snap, err := snapshot(c)
	if err != nil {
		return nil, err
	}

	f := &Form{
		VarIndex: make(map[int64]int),
		varDims:  make(map[int64][2]int),
		runID:    runID,
	}

	// Global column ordering: ascending allocator id, column-major within
	// each variable.
	known := set.New[int64](len(c.Variables()))
	col := 0
	for _, v := range c.Variables() {
		f.VarIndex[v.ID] = col
		f.varDims[v.ID] = [2]int{v.Rows, v.Cols}
		known.Insert(v.ID)
		col += v.Rows * v.Cols
	}
	f.Cols = col

	if err := emitObjective(f, c.Objective(), snap, known, opt); err != nil {
		return nil, err
	}

	for i, con := range c.Constraints() {
		if err := emitBlock(f, con, snap, known, opt); err != nil {
			return nil, fmt.Errorf("constraint block %d: %w", i, err)
		}
	}

	logger.With(map[string]any{
		"rows":  f.Rows,
		"cols":  f.Cols,
		"nnz":   len(f.A),
		"cones": len(f.Cones),
	}).Infof("assembled conic form")
	return f, nil
}

// snapshot fetches every parameter's current value exactly once, vectorized
// column-major. Callback parameters are invoked fresh here, never earlier.
func snapshot(c *conic.Canonical) (map[int64][]float64, error) {
	values := make(map[int64][]float64, len(c.Parameters()))
	for _, p := range c.Parameters() {
		v, err := p.Value()
		if err != nil {
			return nil, &conic.AssemblyError{Reason: fmt.Sprintf(
				"parameter %d (%s): %v", p.ID(), p.Name(), err)}
		}
		r, cl := v.Dims()
		vec := make([]float64, r*cl)
		for j := 0; j < cl; j++ {
			for i := 0; i < r; i++ {
				vec[j*r+i] = v.At(i, j)
			}
		}
		values[p.ID()] = vec
	}
	return values, nil
}

// emitObjective folds the scalar objective's variable coefficients into C
// and its constant and parameter terms into COffset.
func emitObjective(f *Form, obj *conic.AffineExpr, snap map[int64][]float64, known *set.Set[int64], opt Options) error {
	f.C = make([]float64, f.Cols)
	for _, id := range obj.VarIDs() {
		if !known.Contains(id) {
			return &conic.AssemblyError{Reason: fmt.Sprintf("objective references unmapped variable %d", id)}
		}
		coeff := obj.Coeff(id)
		_, w := coeff.Dims()
		off := f.VarIndex[id]
		for j := 0; j < w; j++ {
			f.C[off+j] += coeff.At(0, j)
		}
	}
	f.COffset = obj.Offset().AtVec(0)
	for _, id := range obj.ParamIDs() {
		coeff := obj.ParamCoeff(id)
		vec := snap[id]
		for j, v := range vec {
			f.COffset += coeff.At(0, j) * v
		}
	}
	return nil
}

// emitBlock appends one constraint's rows, offsets, and cone entries.
func emitBlock(f *Form, con conic.Constraint, snap map[int64][]float64, known *set.Set[int64], opt Options) error {
	expr := con.Expr
	r, cl := expr.Dims()
	n := r * cl
	rowOff := f.Rows

	for _, id := range expr.VarIDs() {
		if !known.Contains(id) {
			return &conic.AssemblyError{Reason: fmt.Sprintf("block references unmapped variable %d", id)}
		}
		coeff := expr.Coeff(id)
		_, w := coeff.Dims()
		colOff := f.VarIndex[id]
		for i := 0; i < n; i++ {
			for j := 0; j < w; j++ {
				v := coeff.At(i, j)
				if v == 0 || math.Abs(v) <= opt.DropEps {
					continue
				}
				f.A = append(f.A, Triplet{Row: rowOff + i, Col: colOff + j, Val: v})
			}
		}
	}

	b := make([]float64, n)
	off := expr.Offset()
	for i := 0; i < n; i++ {
		b[i] = off.AtVec(i)
	}
	for _, id := range expr.ParamIDs() {
		coeff := expr.ParamCoeff(id)
		vec := snap[id]
		for i := 0; i < n; i++ {
			for j, v := range vec {
				b[i] += coeff.At(i, j) * v
			}
		}
	}
	f.B = append(f.B, b...)
	f.Rows += n

	switch con.Kind {
	case conic.ConeZero:
		f.Cones = append(f.Cones, ConeDim{Kind: conic.ConeZero, Size: n})
	case conic.ConeNonNeg:
		f.Cones = append(f.Cones, ConeDim{Kind: conic.ConeNonNeg, Size: n})
	case conic.ConeSOC:
		axis := con.Axis
		if axis == nil {
			return &conic.AssemblyError{Reason: "SOC block without descriptor"}
		}
		if axis.NumCones()*axis.ConeSize() != n {
			return &conic.AssemblyError{Reason: fmt.Sprintf(
				"SOC descriptor %d cones x size %d does not cover %d block rows",
				axis.NumCones(), axis.ConeSize(), n)}
		}
		for k := 0; k < axis.NumCones(); k++ {
			f.Cones = append(f.Cones, ConeDim{Kind: conic.ConeSOC, Size: axis.ConeSize()})
		}
	default:
		return &conic.AssemblyError{Reason: fmt.Sprintf("unknown cone kind %d", con.Kind)}
	}
	return nil
}

// Scatter maps a raw solver solution vector back into per-variable
// matrices via the column map.
func (f *Form) Scatter(x []float64) (map[int64]*mat.Dense, error) {
	if len(x) < f.Cols {
		return nil, &conic.AssemblyError{Reason: fmt.Sprintf(
			"solution has %d entries, form has %d columns", len(x), f.Cols)}
	}
	out := make(map[int64]*mat.Dense, len(f.VarIndex))
	for id, off := range f.VarIndex {
		d := f.varDims[id]
		r, c := d[0], d[1]
		m := mat.NewDense(r, c, nil)
		for j := 0; j < c; j++ {
			for i := 0; i < r; i++ {
				m.Set(i, j, x[off+j*r+i])
			}
		}
		out[id] = m
	}
	return out, nil
}
