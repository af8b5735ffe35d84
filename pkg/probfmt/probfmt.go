// Package probfmt renders assembled conic forms for humans and tooling:
// an aligned text listing for terminals and a YAML document for golden
// tests and external inspection.
package probfmt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"

	"github.com/coneform/conic"
	"github.com/coneform/conic/assemble"
)

// Fmt renders an aligned, human-readable listing of an assembled form.
func Fmt(f *assemble.Form) string {
	var b strings.Builder

	fmt.Fprintf(&b, "conic form: %d rows x %d cols, %d nonzeros\n", f.Rows, f.Cols, len(f.A))

	b.WriteString("cones:\n")
	row := 0
	for i, c := range f.Cones {
		label := coneLabel(c)
		fmt.Fprintf(&b, "  %3d: %s rows %d..%d\n", i, runewidth.FillRight(label, 12), row, row+c.Size-1)
		row += c.Size
	}

	b.WriteString("columns:\n")
	ids := make([]int64, 0, len(f.VarIndex))
	for id := range f.VarIndex {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fmt.Fprintf(&b, "  x%-4d -> col %d\n", id, f.VarIndex[id])
	}

	b.WriteString("objective:\n")
	for j, v := range f.C {
		if v != 0 {
			fmt.Fprintf(&b, "  c[%d] = %g\n", j, v)
		}
	}
	if f.COffset != 0 {
		fmt.Fprintf(&b, "  offset = %g\n", f.COffset)
	}

	b.WriteString("matrix:\n")
	for _, t := range f.A {
		fmt.Fprintf(&b, "  A[%d,%d] = %g\n", t.Row, t.Col, t.Val)
	}
	b.WriteString("offsets:\n")
	for i, v := range f.B {
		if v != 0 {
			fmt.Fprintf(&b, "  b[%d] = %g\n", i, v)
		}
	}
	return b.String()
}

func coneLabel(c assemble.ConeDim) string {
	switch c.Kind {
	case conic.ConeZero:
		return fmt.Sprintf("zero(%d)", c.Size)
	case conic.ConeNonNeg:
		return fmt.Sprintf("nonneg(%d)", c.Size)
	case conic.ConeSOC:
		return fmt.Sprintf("soc(%d)", c.Size)
	default:
		return "invalid"
	}
}

type yamlTriplet struct {
	Row int     `yaml:"row"`
	Col int     `yaml:"col"`
	Val float64 `yaml:"val"`
}

type yamlCone struct {
	Kind string `yaml:"kind"`
	Size int    `yaml:"size"`
}

type yamlForm struct {
	Rows     int             `yaml:"rows"`
	Cols     int             `yaml:"cols"`
	Cones    []yamlCone      `yaml:"cones"`
	VarIndex map[int64]int   `yaml:"var_index"`
	C        []float64       `yaml:"c"`
	COffset  float64         `yaml:"c_offset,omitempty"`
	B        []float64       `yaml:"b"`
	A        []yamlTriplet   `yaml:"a"`
}

// Dump serializes an assembled form as YAML.
func Dump(f *assemble.Form) ([]byte, error) {
	out := yamlForm{
		Rows:     f.Rows,
		Cols:     f.Cols,
		VarIndex: f.VarIndex,
		C:        f.C,
		COffset:  f.COffset,
		B:        f.B,
	}
	for _, c := range f.Cones {
		out.Cones = append(out.Cones, yamlCone{Kind: c.Kind.String(), Size: c.Size})
	}
	for _, t := range f.A {
		out.A = append(out.A, yamlTriplet{Row: t.Row, Col: t.Col, Val: t.Val})
	}
	return yaml.Marshal(out)
}
