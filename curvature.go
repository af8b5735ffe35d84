package conic

// Curvature classifies an expression under the disciplined convex
// programming calculus.
type Curvature uint8

const (
	CurvUnknown Curvature = iota
	CurvConstant
	CurvAffine
	CurvConvex
	CurvConcave
)

func (c Curvature) String() string {
	switch c {
	case CurvConstant:
		return "constant"
	case CurvAffine:
		return "affine"
	case CurvConvex:
		return "convex"
	case CurvConcave:
		return "concave"
	default:
		return "unknown"
	}
}

// isConvex reports whether the curvature is usable where a convex
// expression is required (constant and affine qualify).
func (c Curvature) isConvex() bool {
	return c == CurvConstant || c == CurvAffine || c == CurvConvex
}

// isConcave reports whether the curvature is usable where a concave
// expression is required.
func (c Curvature) isConcave() bool {
	return c == CurvConstant || c == CurvAffine || c == CurvConcave
}

func (c Curvature) isAffine() bool {
	return c == CurvConstant || c == CurvAffine
}

// Monotonicity describes how an atom responds to growth in one argument.
type Monotonicity uint8

const (
	NonMonotone Monotonicity = iota
	Increasing
	Decreasing
)

// composeCurvature applies the scalar composition rule: an atom of known
// curvature applied to arguments of known curvature yields the stated
// curvature only when each argument's curvature agrees with the atom's
// monotonicity in that slot. Pure function of the child annotations.
func composeCurvature(atom Curvature, args []Curvature, monos []Monotonicity) Curvature {
	allConst := true
	for _, a := range args {
		if a != CurvConstant {
			allConst = false
			break
		}
	}
	if allConst {
		return CurvConstant
	}

	if atom.isAffine() {
		// Affine atoms pass curvature through, flipped under decreasing
		// slots; mixing convex and concave arguments loses everything.
		out := CurvConstant
		for i, a := range args {
			out = meetCurvature(out, orient(a, monos[i]))
			if out == CurvUnknown {
				return CurvUnknown
			}
		}
		return out
	}

	ok := true
	for i, a := range args {
		switch monos[i] {
		case Increasing:
			ok = ok && agreeWith(atom, a)
		case Decreasing:
			ok = ok && agreeWith(atom, flipCurvature(a))
		default:
			ok = ok && a.isAffine()
		}
	}
	if ok {
		return atom
	}
	return CurvUnknown
}

// orient flips an argument's curvature when the enclosing slot is
// decreasing; non-monotone slots demand affine arguments.
func orient(a Curvature, m Monotonicity) Curvature {
	switch m {
	case Increasing:
		return a
	case Decreasing:
		return flipCurvature(a)
	default:
		if a.isAffine() {
			return a
		}
		return CurvUnknown
	}
}

func flipCurvature(a Curvature) Curvature {
	switch a {
	case CurvConvex:
		return CurvConcave
	case CurvConcave:
		return CurvConvex
	default:
		return a
	}
}

// meetCurvature combines two curvatures flowing into one affine
// combination: convex with convex stays convex, convex with concave is
// unknown.
func meetCurvature(a, b Curvature) Curvature {
	if a == CurvConstant {
		return b
	}
	if b == CurvConstant {
		return a
	}
	if a == CurvAffine {
		return b
	}
	if b == CurvAffine {
		return a
	}
	if a == b {
		return a
	}
	return CurvUnknown
}

// agreeWith reports whether arg can appear in a slot requiring the atom's
// own curvature direction.
func agreeWith(atom, arg Curvature) bool {
	switch atom {
	case CurvConvex:
		return arg.isConvex()
	case CurvConcave:
		return arg.isConcave()
	default:
		return arg.isAffine()
	}
}
