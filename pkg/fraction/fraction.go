// Package fraction implements exact non-negative rational arithmetic for
// probability and confidence weights. All comparisons are done by
// cross-multiplication over big.Int so that accumulated products across a
// long inference chain never lose precision.
package fraction

import (
	"fmt"
	"math/big"
)

// Fraction is an unsigned rational numerator/denominator pair constrained to
// the range [0, 1] (denominator >= 1, numerator <= denominator). It is not
// normalized to lowest terms; equality and ordering are semantic, computed
// via cross-multiplication.
type Fraction struct {
	Num *big.Int
	Den *big.Int
}

// ErrOutOfRange is returned by Make when the candidate numerator/denominator
// pair cannot represent a value in [0, 1].
type ErrOutOfRange struct {
	Num, Den int64
}

func (e *ErrOutOfRange) Error() string {
	return fmt.Sprintf("fraction out of range: %d/%d", e.Num, e.Den)
}

// Zero is the fraction 0/1.
func Zero() Fraction { return Fraction{Num: big.NewInt(0), Den: big.NewInt(1)} }

// One is the fraction 1/1.
func One() Fraction { return Fraction{Num: big.NewInt(1), Den: big.NewInt(1)} }

// Make validates and constructs a Fraction from a numerator/denominator
// pair. It fails when the denominator is zero or the numerator exceeds the
// denominator (which would put the value outside [0, 1]).
func Make(num, den int64) (Fraction, error) {
	if den == 0 {
		return Fraction{}, &ErrOutOfRange{Num: num, Den: den}
	}
	if num < 0 || den < 0 {
		return Fraction{}, &ErrOutOfRange{Num: num, Den: den}
	}
	if num > den {
		return Fraction{}, &ErrOutOfRange{Num: num, Den: den}
	}
	return Fraction{Num: big.NewInt(num), Den: big.NewInt(den)}, nil
}

// MakeBig is the big.Int-native counterpart of Make, used where the
// numerator and denominator already arrive as arbitrary-precision integers
// (the persistence DTOs and the MCP tools' "num/den" parser).
func MakeBig(num, den *big.Int) (Fraction, error) {
	if den.Sign() == 0 || num.Sign() < 0 || den.Sign() < 0 || num.Cmp(den) > 0 {
		return Fraction{}, &ErrOutOfRange{Num: num.Int64(), Den: den.Int64()}
	}
	return Fraction{Num: new(big.Int).Set(num), Den: new(big.Int).Set(den)}, nil
}

// Valid reports whether f represents a value in [0, 1] with a positive
// denominator. Every Fraction obtained through Make/Multiply/MinCombine is
// valid by construction; Valid exists for verifying invariants on values
// that crossed a boundary (e.g. persistence).
func (f Fraction) Valid() bool {
	if f.Num == nil || f.Den == nil {
		return false
	}
	return f.Den.Sign() > 0 && f.Num.Sign() >= 0 && f.Num.Cmp(f.Den) <= 0
}

// Multiply returns a*b using straightforward numerator/denominator
// multiplication. The result is still within [0, 1] because both operands
// are.
func Multiply(a, b Fraction) Fraction {
	return Fraction{
		Num: new(big.Int).Mul(a.Num, b.Num),
		Den: new(big.Int).Mul(a.Den, b.Den),
	}
}

// cross returns a.Num*b.Den compared against b.Num*a.Den, i.e. the sign of
// (a - b) without ever dividing.
func cross(a, b Fraction) int {
	left := new(big.Int).Mul(a.Num, b.Den)
	right := new(big.Int).Mul(b.Num, a.Den)
	return left.Cmp(right)
}

// GE reports whether a >= b.
func GE(a, b Fraction) bool { return cross(a, b) >= 0 }

// LE reports whether a <= b.
func LE(a, b Fraction) bool { return cross(a, b) <= 0 }

// LT reports whether a < b.
func LT(a, b Fraction) bool { return cross(a, b) < 0 }

// GT reports whether a > b.
func GT(a, b Fraction) bool { return cross(a, b) > 0 }

// Equal reports semantic equality (a == b), not structural equality of the
// numerator/denominator pair.
func Equal(a, b Fraction) bool { return cross(a, b) == 0 }

// MinCombine chooses the lexically smaller of a and b by value, returning it
// expressed over the common denominator a.Den*b.Den. Used to pessimistically
// combine confidences along a derivation chain: the chain is only as
// confident as its weakest link.
func MinCombine(a, b Fraction) Fraction {
	commonDen := new(big.Int).Mul(a.Den, b.Den)
	aOverCommon := new(big.Int).Mul(a.Num, b.Den)
	bOverCommon := new(big.Int).Mul(b.Num, a.Den)

	if aOverCommon.Cmp(bOverCommon) <= 0 {
		return Fraction{Num: aOverCommon, Den: commonDen}
	}
	return Fraction{Num: bOverCommon, Den: commonDen}
}

// String renders the fraction as "num/den", matching the wire notation used
// throughout the kernel's wire format (e.g. "9/10").
func (f Fraction) String() string {
	if f.Num == nil || f.Den == nil {
		return "0/1"
	}
	return fmt.Sprintf("%s/%s", f.Num.String(), f.Den.String())
}
