package conic

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestScalarConstant(t *testing.T) {
	c := NewScalarConstant(5)
	if c.Rows() != 1 || c.Cols() != 1 {
		t.Fatalf("size = %dx%d, want 1x1", c.Rows(), c.Cols())
	}
	if c.Sign() != SignPositive {
		t.Errorf("sign = %v, want POSITIVE", c.Sign())
	}
	if c.Curvature() != CurvConstant {
		t.Errorf("curvature = %v, want constant", c.Curvature())
	}

	s := NewSession()
	a, cons, err := s.Canonicalize(c)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if r, cl := a.Dims(); r != 1 || cl != 1 {
		t.Errorf("affine is %dx%d, want 1x1", r, cl)
	}
	if len(cons) != 0 {
		t.Errorf("constant produced %d constraints, want 0", len(cons))
	}
	if got := a.Offset().AtVec(0); got != 5 {
		t.Errorf("offset = %g, want 5", got)
	}
	if len(a.VarIDs()) != 0 || len(a.ParamIDs()) != 0 {
		t.Error("constant affine must not reference variables or parameters")
	}
}

func TestConstantSigns(t *testing.T) {
	tests := []struct {
		name string
		data []float64
		want Sign
	}{
		{"all positive", []float64{1, 2, 3, 4}, SignPositive},
		{"all negative", []float64{-1, -2, -3, -4}, SignNegative},
		{"mixed", []float64{1, -2, 3, -4}, SignUnknown},
		{"zero", []float64{0, 0, 0, 0}, SignZero},
		{"nonneg with zeros", []float64{0, 2, 0, 4}, SignPositive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConstant(mat.NewDense(2, 2, tt.data))
			if c.Sign() != tt.want {
				t.Errorf("sign = %v, want %v", c.Sign(), tt.want)
			}
		})
	}
}

func TestParameterRoundTrip(t *testing.T) {
	s := NewSession()
	p, err := s.NewParameter(2, 2, "weights", "UNKNOWN")
	if err != nil {
		t.Fatalf("NewParameter: %v", err)
	}

	v := mat.NewDense(2, 2, []float64{1, -2, 3, -4})
	if err := p.SetValue(v); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	got, err := p.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if !mat.Equal(got, v) {
		t.Errorf("round trip changed the value: got %v", mat.Formatted(got))
	}

	// A non-conforming shape is rejected and the prior value survives.
	err = p.SetValue(mat.NewDense(3, 1, []float64{1, 2, 3}))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("shape mismatch: got %v, want ValidationError", err)
	}
	got, err = p.Value()
	if err != nil {
		t.Fatalf("Value after rejected assignment: %v", err)
	}
	if !mat.Equal(got, v) {
		t.Error("rejected assignment clobbered the prior value")
	}
}

func TestParameterDeclaredNegative(t *testing.T) {
	s := NewSession()
	p, err := s.NewParameter(3, 1, "discount", "NEGATIVE")
	if err != nil {
		t.Fatalf("NewParameter: %v", err)
	}

	err = p.SetValue(mat.NewDense(3, 1, []float64{1, -2, -3}))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("sign-violating value: got %v, want ValidationError", err)
	}
	if _, err := p.Value(); err == nil {
		t.Fatal("value must stay unset after rejected assignment")
	}

	if err := p.SetValue(mat.NewDense(3, 1, []float64{-1, -2, -3})); err != nil {
		t.Fatalf("conforming value rejected: %v", err)
	}
	if !p.Sign().IsNegative() {
		t.Error("declared-negative parameter must report IsNegative")
	}
}

func TestParameterBadSignDeclaration(t *testing.T) {
	s := NewSession()
	_, err := s.NewParameter(1, 1, "p", "SEMIDEFINITE")
	var sdErr *SignDeclarationError
	if !errors.As(err, &sdErr) {
		t.Fatalf("got %v, want SignDeclarationError", err)
	}
}

func TestCallbackParamFreshness(t *testing.T) {
	a := mat.NewDense(2, 1, []float64{1, 2})
	b := mat.NewDense(2, 1, []float64{3, 4})
	calls := 0
	s := NewSession()
	p, err := s.NewCallbackParam(func() *mat.Dense {
		calls++
		if calls == 1 {
			return a
		}
		return b
	}, 2, 1, "feed", "UNKNOWN")
	if err != nil {
		t.Fatalf("NewCallbackParam: %v", err)
	}

	first, err := p.Value()
	if err != nil {
		t.Fatalf("first Value: %v", err)
	}
	second, err := p.Value()
	if err != nil {
		t.Fatalf("second Value: %v", err)
	}
	if !mat.Equal(first, a) {
		t.Error("first access did not return the first callback result")
	}
	if !mat.Equal(second, b) {
		t.Error("second access returned a cached value instead of re-invoking the callback")
	}
}

func TestCallbackParamRevalidates(t *testing.T) {
	s := NewSession()
	p, err := s.NewCallbackParam(func() *mat.Dense {
		return mat.NewDense(3, 3, nil) // wrong shape
	}, 2, 1, "feed", "UNKNOWN")
	if err != nil {
		t.Fatalf("NewCallbackParam: %v", err)
	}
	_, err = p.Value()
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("got %v, want ValidationError for shape drift", err)
	}

	if err := p.SetValue(mat.NewDense(2, 1, nil)); err == nil {
		t.Fatal("SetValue on a callback parameter must fail")
	}
}

func TestGetData(t *testing.T) {
	s := NewSession()
	p, err := s.NewParameter(2, 3, "rates", "POSITIVE")
	if err != nil {
		t.Fatalf("NewParameter: %v", err)
	}
	d, ok := GetData(p)
	if !ok {
		t.Fatal("GetData on a parameter must succeed")
	}
	if d.Kind != "parameter" || d.Rows != 2 || d.Cols != 3 || d.Name != "rates" || d.Sign != SignPositive {
		t.Errorf("unexpected record: %+v", d)
	}
	if d.Value != nil {
		t.Error("unset parameter must report a nil value")
	}

	v := s.NewVariable(4, 1, "alloc")
	d, ok = GetData(v)
	if !ok || d.Kind != "variable" || d.Name != "alloc" {
		t.Errorf("unexpected variable record: %+v", d)
	}

	if _, ok := GetData(Abs(v)); ok {
		t.Error("GetData on a composite node must report ok == false")
	}
}

func TestIdentifierAllocatorMonotonic(t *testing.T) {
	s := NewSession()
	var last int64
	for i := 0; i < 100; i++ {
		v := s.NewVariable(1, 1, "")
		if v.ID() <= last {
			t.Fatalf("id %d not strictly greater than %d", v.ID(), last)
		}
		last = v.ID()
	}

	// Independent sessions cannot collide structurally: each starts its
	// own counter.
	s2 := NewSession()
	if got := s2.NewVariable(1, 1, "").ID(); got != 1 {
		t.Errorf("fresh session first id = %d, want 1", got)
	}
}
