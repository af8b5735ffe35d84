package conic

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// AffineExpr is the canonical-form output of canonicalization: an affine
// map from the session's variables (and, symbolically, its parameters) to
// a (rows x cols) value. Everything is held vectorized column-major, so a
// reshape is free and horizontal stacking is plain concatenation.
//
// Parameter coefficients stay symbolic: numeric substitution of current
// parameter values happens at assembly time, so a canonical form compiled
// once serves repeated re-solves under changing parameter values.
type AffineExpr struct {
	rows, cols int
	terms      map[int64]*mat.Dense // variable id -> (n x varN) coefficient
	params     map[int64]*mat.Dense // parameter id -> (n x paramN) coefficient
	offset     *mat.VecDense        // length n, constants only
}

// Dims returns the declared (rows, cols) of the originating expression.
func (a *AffineExpr) Dims() (rows, cols int) { return a.rows, a.cols }

func (a *AffineExpr) n() int { return a.rows * a.cols }

// VarIDs returns the referenced variable ids in ascending order.
func (a *AffineExpr) VarIDs() []int64 { return sortedIDs(a.terms) }

// ParamIDs returns the referenced parameter ids in ascending order.
func (a *AffineExpr) ParamIDs() []int64 { return sortedIDs(a.params) }

// Coeff returns the coefficient block for a variable id, or nil.
func (a *AffineExpr) Coeff(id int64) *mat.Dense { return a.terms[id] }

// ParamCoeff returns the coefficient block for a parameter id, or nil.
func (a *AffineExpr) ParamCoeff(id int64) *mat.Dense { return a.params[id] }

// Offset returns the constant offset of the vectorized map.
func (a *AffineExpr) Offset() *mat.VecDense { return a.offset }

func sortedIDs(m map[int64]*mat.Dense) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func newAffine(rows, cols int) *AffineExpr {
	return &AffineExpr{
		rows:   rows,
		cols:   cols,
		terms:  make(map[int64]*mat.Dense),
		params: make(map[int64]*mat.Dense),
		offset: mat.NewVecDense(rows*cols, nil),
	}
}

// affineConstant wraps a materialized value with zero variable dependence.
func affineConstant(v *mat.Dense) *AffineExpr {
	r, c := v.Dims()
	a := newAffine(r, c)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			a.offset.SetVec(j*r+i, v.At(i, j))
		}
	}
	return a
}

// affineVariable is the identity reference to a variable's columns.
func affineVariable(id int64, rows, cols int) *AffineExpr {
	a := newAffine(rows, cols)
	a.terms[id] = identityDense(rows * cols)
	return a
}

// affineParameter is the symbolic reference to a parameter's slot.
func affineParameter(id int64, rows, cols int) *AffineExpr {
	a := newAffine(rows, cols)
	a.params[id] = identityDense(rows * cols)
	return a
}

func identityDense(n int) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, 1)
	}
	return d
}

func cloneDense(d *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.CloneFrom(d)
	return &out
}

// affineAdd returns x + y. Shapes must already agree.
func affineAdd(x, y *AffineExpr) *AffineExpr {
	out := newAffine(x.rows, x.cols)
	for id, c := range x.terms {
		out.terms[id] = cloneDense(c)
	}
	for id, c := range y.terms {
		if prev, ok := out.terms[id]; ok {
			prev.Add(prev, c)
		} else {
			out.terms[id] = cloneDense(c)
		}
	}
	for id, c := range x.params {
		out.params[id] = cloneDense(c)
	}
	for id, c := range y.params {
		if prev, ok := out.params[id]; ok {
			prev.Add(prev, c)
		} else {
			out.params[id] = cloneDense(c)
		}
	}
	out.offset.AddVec(x.offset, y.offset)
	return out
}

// affineScale returns alpha * x.
func affineScale(alpha float64, x *AffineExpr) *AffineExpr {
	out := newAffine(x.rows, x.cols)
	for id, c := range x.terms {
		s := cloneDense(c)
		s.Scale(alpha, s)
		out.terms[id] = s
	}
	for id, c := range x.params {
		s := cloneDense(c)
		s.Scale(alpha, s)
		out.params[id] = s
	}
	out.offset.ScaleVec(alpha, x.offset)
	return out
}

func affineNeg(x *AffineExpr) *AffineExpr { return affineScale(-1, x) }

func affineSub(x, y *AffineExpr) *AffineExpr { return affineAdd(x, affineNeg(y)) }

// affineMatVec returns C * x for a constant C (p x rows) applied to a
// column-vector expression (cols == 1).
func affineMatVec(c *mat.Dense, x *AffineExpr) *AffineExpr {
	p, _ := c.Dims()
	out := newAffine(p, 1)
	for id, coeff := range x.terms {
		_, w := coeff.Dims()
		prod := mat.NewDense(p, w, nil)
		prod.Mul(c, coeff)
		out.terms[id] = prod
	}
	for id, coeff := range x.params {
		_, w := coeff.Dims()
		prod := mat.NewDense(p, w, nil)
		prod.Mul(c, coeff)
		out.params[id] = prod
	}
	out.offset.MulVec(c, x.offset)
	return out
}

// affineSum collapses all entries into a scalar.
func affineSum(x *AffineExpr) *AffineExpr {
	n := x.n()
	ones := mat.NewDense(1, n, nil)
	for i := 0; i < n; i++ {
		ones.Set(0, i, 1)
	}
	flat := affineReshape(x, n, 1)
	return affineMatVec(ones, flat)
}

// affineReshape reinterprets the vectorized map under new dimensions.
func affineReshape(x *AffineExpr, rows, cols int) *AffineExpr {
	out := &AffineExpr{
		rows:   rows,
		cols:   cols,
		terms:  x.terms,
		params: x.params,
		offset: x.offset,
	}
	return out
}

// affineConcat concatenates the vectorized parts in order under the given
// output shape. Under column-major vectorization this implements both
// hstack of equal-row blocks and vstack of column vectors.
func affineConcat(parts []*AffineExpr, rows, cols int) *AffineExpr {
	out := newAffine(rows, cols)
	row := 0
	for _, p := range parts {
		pn := p.n()
		for id, coeff := range p.terms {
			_, w := coeff.Dims()
			dst, ok := out.terms[id]
			if !ok {
				dst = mat.NewDense(rows*cols, w, nil)
				out.terms[id] = dst
			}
			copyRowsInto(dst, row, coeff)
		}
		for id, coeff := range p.params {
			_, w := coeff.Dims()
			dst, ok := out.params[id]
			if !ok {
				dst = mat.NewDense(rows*cols, w, nil)
				out.params[id] = dst
			}
			copyRowsInto(dst, row, coeff)
		}
		for i := 0; i < pn; i++ {
			out.offset.SetVec(row+i, p.offset.AtVec(i))
		}
		row += pn
	}
	return out
}

// affineSelect picks the given vectorized entries, producing a block of the
// stated shape.
func affineSelect(x *AffineExpr, idx []int, rows, cols int) *AffineExpr {
	out := newAffine(rows, cols)
	for id, coeff := range x.terms {
		_, w := coeff.Dims()
		dst := mat.NewDense(rows*cols, w, nil)
		for i, src := range idx {
			for j := 0; j < w; j++ {
				dst.Set(i, j, coeff.At(src, j))
			}
		}
		out.terms[id] = dst
	}
	for id, coeff := range x.params {
		_, w := coeff.Dims()
		dst := mat.NewDense(rows*cols, w, nil)
		for i, src := range idx {
			for j := 0; j < w; j++ {
				dst.Set(i, j, coeff.At(src, j))
			}
		}
		out.params[id] = dst
	}
	for i, src := range idx {
		out.offset.SetVec(i, x.offset.AtVec(src))
	}
	return out
}

// affineEntry picks one vectorized entry as a scalar expression.
func affineEntry(x *AffineExpr, i int) *AffineExpr {
	return affineSelect(x, []int{i}, 1, 1)
}

func copyRowsInto(dst *mat.Dense, rowOff int, src *mat.Dense) {
	r, w := src.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < w; j++ {
			dst.Set(rowOff+i, j, src.At(i, j))
		}
	}
}
