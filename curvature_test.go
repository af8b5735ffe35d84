package conic

import "testing"

func TestComposeCurvature(t *testing.T) {
	tests := []struct {
		name  string
		atom  Curvature
		args  []Curvature
		monos []Monotonicity
		want  Curvature
	}{
		{
			name: "convex increasing of convex",
			atom: CurvConvex, args: []Curvature{CurvConvex}, monos: []Monotonicity{Increasing},
			want: CurvConvex,
		},
		{
			name: "convex increasing of concave",
			atom: CurvConvex, args: []Curvature{CurvConcave}, monos: []Monotonicity{Increasing},
			want: CurvUnknown,
		},
		{
			name: "convex decreasing of concave",
			atom: CurvConvex, args: []Curvature{CurvConcave}, monos: []Monotonicity{Decreasing},
			want: CurvConvex,
		},
		{
			name: "convex nonmonotone of affine",
			atom: CurvConvex, args: []Curvature{CurvAffine}, monos: []Monotonicity{NonMonotone},
			want: CurvConvex,
		},
		{
			name: "convex nonmonotone of convex",
			atom: CurvConvex, args: []Curvature{CurvConvex}, monos: []Monotonicity{NonMonotone},
			want: CurvUnknown,
		},
		{
			name: "concave increasing of concave",
			atom: CurvConcave, args: []Curvature{CurvConcave}, monos: []Monotonicity{Increasing},
			want: CurvConcave,
		},
		{
			name: "affine of affine",
			atom: CurvAffine, args: []Curvature{CurvAffine, CurvAffine}, monos: []Monotonicity{Increasing, Increasing},
			want: CurvAffine,
		},
		{
			name: "affine sum of convex and concave",
			atom: CurvAffine, args: []Curvature{CurvConvex, CurvConcave}, monos: []Monotonicity{Increasing, Increasing},
			want: CurvUnknown,
		},
		{
			name: "affine decreasing flips convex",
			atom: CurvAffine, args: []Curvature{CurvConvex}, monos: []Monotonicity{Decreasing},
			want: CurvConcave,
		},
		{
			name: "all constants collapse",
			atom: CurvConvex, args: []Curvature{CurvConstant, CurvConstant}, monos: []Monotonicity{NonMonotone, NonMonotone},
			want: CurvConstant,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := composeCurvature(tt.atom, tt.args, tt.monos); got != tt.want {
				t.Errorf("composeCurvature = %v, want %v", got, tt.want)
			}
		})
	}
}
