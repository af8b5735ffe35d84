package probfmt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/coneform/conic"
	"github.com/coneform/conic/assemble"
)

func demoForm(t *testing.T) *assemble.Form {
	t.Helper()
	s := conic.NewSession()
	x := s.NewVariable(2, 1, "x")
	p, err := s.NewParameter(2, 1, "target", "UNKNOWN")
	require.NoError(t, err)
	require.NoError(t, p.SetValue(mat.NewDense(2, 1, []float64{0.4, 0.6})))

	c, err := s.Compile(conic.Problem{
		Minimize: conic.Norm2(conic.Sub(x, p)),
		Subject: []*conic.Relation{
			conic.Eq(conic.Sum(x), conic.NewScalarConstant(1)),
		},
	})
	require.NoError(t, err)

	f, err := assemble.Assemble(c)
	require.NoError(t, err)
	return f
}

func TestFmtSections(t *testing.T) {
	out := Fmt(demoForm(t))
	for _, section := range []string{"cones:", "columns:", "objective:", "matrix:", "offsets:"} {
		assert.True(t, strings.Contains(out, section), "missing section %q in:\n%s", section, out)
	}
	assert.True(t, strings.Contains(out, "soc(3)"), "expected a soc(3) cone in:\n%s", out)
	assert.True(t, strings.Contains(out, "zero(1)"), "expected a zero(1) cone in:\n%s", out)
}

func TestDumpRoundTrip(t *testing.T) {
	f := demoForm(t)
	raw, err := Dump(f)
	require.NoError(t, err)

	var decoded struct {
		Rows  int `yaml:"rows"`
		Cols  int `yaml:"cols"`
		Cones []struct {
			Kind string `yaml:"kind"`
			Size int    `yaml:"size"`
		} `yaml:"cones"`
	}
	require.NoError(t, yaml.Unmarshal(raw, &decoded))
	assert.Equal(t, f.Rows, decoded.Rows)
	assert.Equal(t, f.Cols, decoded.Cols)
	require.Len(t, decoded.Cones, len(f.Cones))
	for i, c := range f.Cones {
		assert.Equal(t, c.Kind.String(), decoded.Cones[i].Kind)
		assert.Equal(t, c.Size, decoded.Cones[i].Size)
	}
}
