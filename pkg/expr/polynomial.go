package expr

// Polynomial builds the tree of c0 + c1*z + c2*z^2 + ... from coefficients in
// ascending order of degree. Zero coefficients are skipped; an empty or
// all-zero list yields the constant 0.
func Polynomial(coeffs []float64) Node {
	var sum Node
	for k, c := range coeffs {
		if c == 0 {
			continue
		}
		term := monomial(c, k)
		if sum == nil {
			sum = term
			continue
		}
		sum = &BinaryNode{Op: OpAdd, Left: sum, Right: term}
	}
	if sum == nil {
		return &NumberNode{Value: 0}
	}
	return sum
}

// Rational builds P(z)/Q(z) from numerator and denominator coefficients.
// Points where Q vanishes evaluate to Inf/NaN and are handled as
// singularities by the mapper.
func Rational(numerator, denominator []float64) Node {
	return &BinaryNode{Op: OpDiv, Left: Polynomial(numerator), Right: Polynomial(denominator)}
}

func monomial(c float64, k int) Node {
	var power Node
	switch k {
	case 0:
		return &NumberNode{Value: c}
	case 1:
		power = &VariableNode{}
	default:
		power = &BinaryNode{Op: OpPow, Left: &VariableNode{}, Right: &NumberNode{Value: float64(k)}}
	}
	if c == 1 {
		return power
	}
	return &BinaryNode{Op: OpMul, Left: &NumberNode{Value: c}, Right: power}
}
