package assemble

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/coneform/conic"
)

func compile(t *testing.T, s *conic.Session, p conic.Problem) *conic.Canonical {
	t.Helper()
	c, err := s.Compile(p)
	require.NoError(t, err)
	return c
}

func TestAssemblyOrdering(t *testing.T) {
	// Constraints declared as [equality, SOC block of 2 cones of size 3]
	// must yield the positional cone list [zero, soc(3), soc(3), ...] in
	// exactly that order.
	s := conic.NewSession()
	x := s.NewVariable(2, 1, "x")

	c := compile(t, s, conic.Problem{
		Minimize: conic.Sum(x),
		Subject: []*conic.Relation{
			conic.Eq(conic.Sum(x), conic.NewScalarConstant(1)),
			conic.Le(conic.Sum(conic.Square(x)), conic.NewScalarConstant(4)),
		},
	})

	f, err := Assemble(c)
	require.NoError(t, err)

	var got []ConeDim
	got = append(got, f.Cones...)
	require.Len(t, got, 4)
	assert.Equal(t, ConeDim{Kind: conic.ConeZero, Size: 1}, got[0])
	assert.Equal(t, ConeDim{Kind: conic.ConeSOC, Size: 3}, got[1])
	assert.Equal(t, ConeDim{Kind: conic.ConeSOC, Size: 3}, got[2])
	assert.Equal(t, ConeDim{Kind: conic.ConeNonNeg, Size: 1}, got[3])

	// Cone sizes must cover the matrix rows exactly.
	total := 0
	for _, cd := range f.Cones {
		total += cd.Size
	}
	assert.Equal(t, f.Rows, total)
}

func TestMissingParameterValue(t *testing.T) {
	s := conic.NewSession()
	x := s.NewVariable(2, 1, "x")
	p, err := s.NewParameter(2, 1, "target", "UNKNOWN")
	require.NoError(t, err)

	c := compile(t, s, conic.Problem{Minimize: conic.Norm2(conic.Sub(x, p))})

	_, err = Assemble(c)
	var aErr *conic.AssemblyError
	require.ErrorAs(t, err, &aErr)
}

func TestSnapshotIsolation(t *testing.T) {
	s := conic.NewSession()
	x := s.NewVariable(2, 1, "x")
	p, err := s.NewParameter(2, 1, "target", "UNKNOWN")
	require.NoError(t, err)

	c := compile(t, s, conic.Problem{
		Minimize: conic.Sum(x),
		Subject:  []*conic.Relation{conic.Eq(x, p)},
	})

	require.NoError(t, p.SetValue(mat.NewDense(2, 1, []float64{1, 2})))
	f1, err := Assemble(c)
	require.NoError(t, err)

	// Updating the parameter invalidates only the assembled form, never
	// the canonical structure: re-assembly picks up the new value while
	// the first form keeps its snapshot.
	require.NoError(t, p.SetValue(mat.NewDense(2, 1, []float64{7, 9})))
	f2, err := Assemble(c)
	require.NoError(t, err)

	assert.Equal(t, []float64{-1, -2}, f1.B)
	assert.Equal(t, []float64{-7, -9}, f2.B)
	assert.Equal(t, f1.Cols, f2.Cols)
	assert.Equal(t, f1.Cones, f2.Cones)
}

func TestCallbackParamFetchedAtAssembly(t *testing.T) {
	s := conic.NewSession()
	x := s.NewVariable(1, 1, "x")

	current := mat.NewDense(1, 1, []float64{3})
	p, err := s.NewCallbackParam(func() *mat.Dense { return current }, 1, 1, "feed", "UNKNOWN")
	require.NoError(t, err)

	c := compile(t, s, conic.Problem{
		Minimize: x,
		Subject:  []*conic.Relation{conic.Eq(x, p)},
	})

	f1, err := Assemble(c)
	require.NoError(t, err)
	assert.Equal(t, []float64{-3}, f1.B)

	// The callback's backing data changes; the next assembly must see it.
	current = mat.NewDense(1, 1, []float64{11})
	f2, err := Assemble(c)
	require.NoError(t, err)
	assert.Equal(t, []float64{-11}, f2.B)
}

func TestObjectiveVector(t *testing.T) {
	s := conic.NewSession()
	x := s.NewVariable(2, 1, "x")

	c := compile(t, s, conic.Problem{
		Minimize: conic.Add(
			conic.MatMul(mat.NewDense(1, 2, []float64{3, 5}), x),
			conic.NewScalarConstant(2),
		),
		Subject: []*conic.Relation{conic.Ge(x, conic.NewScalarConstant(0))},
	})

	f, err := Assemble(c)
	require.NoError(t, err)
	require.Equal(t, 2, f.Cols)
	assert.Equal(t, []float64{3, 5}, f.C)
	assert.Equal(t, 2.0, f.COffset)

	// x >= 0 emits an identity nonneg block.
	require.Len(t, f.Cones, 1)
	assert.Equal(t, ConeDim{Kind: conic.ConeNonNeg, Size: 2}, f.Cones[0])
}

func TestColumnOrderingFollowsIDs(t *testing.T) {
	s := conic.NewSession()
	a := s.NewVariable(2, 1, "a")
	b := s.NewVariable(3, 1, "b")

	c := compile(t, s, conic.Problem{
		Minimize: conic.Add(conic.Sum(b), conic.Sum(a)),
	})

	f, err := Assemble(c)
	require.NoError(t, err)
	assert.Equal(t, 0, f.VarIndex[a.ID()])
	assert.Equal(t, 2, f.VarIndex[b.ID()])
	assert.Equal(t, 5, f.Cols)
}

func TestScatter(t *testing.T) {
	s := conic.NewSession()
	a := s.NewVariable(2, 1, "a")
	b := s.NewVariable(2, 2, "b")

	c := compile(t, s, conic.Problem{
		Minimize: conic.Add(conic.Sum(a), conic.Sum(b)),
	})
	f, err := Assemble(c)
	require.NoError(t, err)
	require.Equal(t, 6, f.Cols)

	sol := []float64{1, 2, 10, 20, 30, 40}
	vals, err := f.Scatter(sol)
	require.NoError(t, err)

	require.True(t, mat.Equal(vals[a.ID()], mat.NewDense(2, 1, []float64{1, 2})))
	// Column-major fill: columns [10 20] and [30 40].
	want := mat.NewDense(2, 2, []float64{10, 30, 20, 40})
	require.True(t, mat.Equal(vals[b.ID()], want), "got %v", mat.Formatted(vals[b.ID()]))

	_, err = f.Scatter([]float64{1, 2})
	var aErr *conic.AssemblyError
	require.True(t, errors.As(err, &aErr))
}

func TestNoPartialFormOnFailure(t *testing.T) {
	s := conic.NewSession()
	x := s.NewVariable(1, 1, "x")
	p, err := s.NewParameter(1, 1, "p", "UNKNOWN")
	require.NoError(t, err)

	c := compile(t, s, conic.Problem{
		Minimize: x,
		Subject:  []*conic.Relation{conic.Eq(x, p)},
	})

	f, err := Assemble(c)
	require.Error(t, err)
	assert.Nil(t, f)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLogLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLogLevel("WARNING"))
	assert.Equal(t, LevelWarn, ParseLogLevel("bogus"))
	assert.Equal(t, LevelError, ParseLogLevel("error"))
}
