package conic

import "strings"

// Sign classifies whether an expression's value is provably non-negative,
// non-positive, both (identically zero), or neither.
type Sign uint8

const (
	SignUnknown Sign = iota
	SignZero
	SignPositive
	SignNegative
)

func (s Sign) String() string {
	switch s {
	case SignZero:
		return "ZERO"
	case SignPositive:
		return "POSITIVE"
	case SignNegative:
		return "NEGATIVE"
	case SignUnknown:
		return "UNKNOWN"
	default:
		return "UNKNOWN"
	}
}

// ParseSign parses a declared sign string. Anything outside
// {ZERO, POSITIVE, NEGATIVE, UNKNOWN} is a SignDeclarationError.
func ParseSign(s string) (Sign, error) {
	switch strings.ToUpper(s) {
	case "ZERO":
		return SignZero, nil
	case "POSITIVE":
		return SignPositive, nil
	case "NEGATIVE":
		return SignNegative, nil
	case "UNKNOWN":
		return SignUnknown, nil
	default:
		return SignUnknown, &SignDeclarationError{Given: s}
	}
}

// IsPositive reports whether the value is provably non-negative.
// SignZero reports true for both IsPositive and IsNegative.
func (s Sign) IsPositive() bool {
	return s == SignPositive || s == SignZero
}

// IsNegative reports whether the value is provably non-positive.
func (s Sign) IsNegative() bool {
	return s == SignNegative || s == SignZero
}

// addSigns combines the signs of two summed quantities.
func addSigns(a, b Sign) Sign {
	if a == SignZero {
		return b
	}
	if b == SignZero {
		return a
	}
	if a == b {
		return a
	}
	return SignUnknown
}

// mulSigns combines the signs of two multiplied quantities.
func mulSigns(a, b Sign) Sign {
	if a == SignZero || b == SignZero {
		return SignZero
	}
	if a == SignUnknown || b == SignUnknown {
		return SignUnknown
	}
	if a == b {
		return SignPositive
	}
	return SignNegative
}

// negSign flips a sign under negation.
func negSign(a Sign) Sign {
	switch a {
	case SignPositive:
		return SignNegative
	case SignNegative:
		return SignPositive
	default:
		return a
	}
}

// maxSigns combines signs under an elementwise upper envelope.
func maxSigns(a, b Sign) Sign {
	if a.IsPositive() || b.IsPositive() {
		if a == SignZero && b.IsNegative() || b == SignZero && a.IsNegative() {
			return SignZero
		}
		if a == SignUnknown || b == SignUnknown {
			// max(unknown, >=0) is still non-negative
			if a.IsPositive() || b.IsPositive() {
				return SignPositive
			}
			return SignUnknown
		}
		return SignPositive
	}
	if a.IsNegative() && b.IsNegative() {
		return SignNegative
	}
	return SignUnknown
}
