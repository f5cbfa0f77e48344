// Package fraction implements exact rational arithmetic for prices and percentages,
// with decimal rendering for display.
package fraction

import (
	"fmt"
	"math/big"

	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
	"github.com/shopspring/decimal"
)

var ErrZeroDenominator = fmt.Errorf("%w: zero denominator", uniswapv3.ErrInvalidInput)

var (
	one = big.NewInt(1)
	ten = big.NewInt(10)
)

// Fraction is an exact rational number. The denominator is always positive.
// Values are immutable: every operation returns a new Fraction.
type Fraction struct {
	numerator   *big.Int
	denominator *big.Int
}

// New returns numerator/denominator. The inputs are copied.
func New(numerator, denominator *big.Int) (Fraction, error) {
	if denominator == nil || denominator.Sign() == 0 {
		return Fraction{}, ErrZeroDenominator
	}
	n, d := new(big.Int).Set(numerator), new(big.Int).Set(denominator)
	if d.Sign() < 0 {
		n.Neg(n)
		d.Neg(d)
	}
	return Fraction{numerator: n, denominator: d}, nil
}

// FromInt returns n/1.
func FromInt(n *big.Int) Fraction {
	return Fraction{numerator: new(big.Int).Set(n), denominator: new(big.Int).Set(one)}
}

// FromInt64 returns n/d and panics on a zero denominator; it is meant for constants.
func FromInt64(n, d int64) Fraction {
	f, err := New(big.NewInt(n), big.NewInt(d))
	if err != nil {
		panic(err)
	}
	return f
}

func (f Fraction) Numerator() *big.Int   { return new(big.Int).Set(f.num()) }
func (f Fraction) Denominator() *big.Int { return new(big.Int).Set(f.den()) }

// num and den make the zero Fraction behave as 0/1.
func (f Fraction) num() *big.Int {
	if f.numerator == nil {
		return new(big.Int)
	}
	return f.numerator
}

func (f Fraction) den() *big.Int {
	if f.denominator == nil {
		return one
	}
	return f.denominator
}

// Quotient returns the integer part, truncated towards zero.
func (f Fraction) Quotient() *big.Int {
	return new(big.Int).Quo(f.num(), f.den())
}

// Remainder returns the fractional part with the sign of the numerator.
func (f Fraction) Remainder() Fraction {
	return Fraction{numerator: new(big.Int).Rem(f.num(), f.den()), denominator: new(big.Int).Set(f.den())}
}

// Invert returns 1/f.
func (f Fraction) Invert() (Fraction, error) {
	return New(f.den(), f.num())
}

func (f Fraction) Add(other Fraction) Fraction {
	if f.den().Cmp(other.den()) == 0 {
		return Fraction{numerator: new(big.Int).Add(f.num(), other.num()), denominator: new(big.Int).Set(f.den())}
	}
	n := new(big.Int).Mul(f.num(), other.den())
	n.Add(n, new(big.Int).Mul(other.num(), f.den()))
	return Fraction{numerator: n, denominator: new(big.Int).Mul(f.den(), other.den())}
}

func (f Fraction) Sub(other Fraction) Fraction {
	return f.Add(other.Neg())
}

func (f Fraction) Neg() Fraction {
	return Fraction{numerator: new(big.Int).Neg(f.num()), denominator: new(big.Int).Set(f.den())}
}

func (f Fraction) Mul(other Fraction) Fraction {
	return Fraction{
		numerator:   new(big.Int).Mul(f.num(), other.num()),
		denominator: new(big.Int).Mul(f.den(), other.den()),
	}
}

func (f Fraction) Div(other Fraction) (Fraction, error) {
	return New(new(big.Int).Mul(f.num(), other.den()), new(big.Int).Mul(f.den(), other.num()))
}

// Cmp compares f and other and returns -1, 0 or +1.
func (f Fraction) Cmp(other Fraction) int {
	left := new(big.Int).Mul(f.num(), other.den())
	return left.Cmp(new(big.Int).Mul(other.num(), f.den()))
}

func (f Fraction) LessThan(other Fraction) bool    { return f.Cmp(other) < 0 }
func (f Fraction) EqualTo(other Fraction) bool     { return f.Cmp(other) == 0 }
func (f Fraction) GreaterThan(other Fraction) bool { return f.Cmp(other) > 0 }
func (f Fraction) Sign() int                       { return f.num().Sign() }

// Reduce returns f in lowest terms.
func (f Fraction) Reduce() Fraction {
	gcd := new(big.Int).GCD(nil, nil, new(big.Int).Abs(f.num()), f.den())
	if gcd.Sign() == 0 {
		return Fraction{numerator: new(big.Int), denominator: new(big.Int).Set(one)}
	}
	return Fraction{numerator: new(big.Int).Quo(f.num(), gcd), denominator: new(big.Int).Quo(f.den(), gcd)}
}

// Rat returns f as a big.Rat.
func (f Fraction) Rat() *big.Rat {
	return new(big.Rat).SetFrac(f.num(), f.den())
}

// Decimal returns f rounded half away from zero to places decimal places.
func (f Fraction) Decimal(places int32) decimal.Decimal {
	return decimal.NewFromBigInt(f.num(), 0).DivRound(decimal.NewFromBigInt(f.den(), 0), places)
}

// ToFixed renders f with exactly places digits after the decimal point.
func (f Fraction) ToFixed(places int32) string {
	return f.Decimal(places).StringFixed(places)
}

// ToSignificant renders f rounded to digits significant digits, without trailing zeros.
func (f Fraction) ToSignificant(digits int32) string {
	if digits <= 0 {
		digits = 1
	}
	if f.Sign() == 0 {
		return "0"
	}
	places := digits - 1 - f.exponent()
	if places >= 0 {
		return f.Decimal(places).String()
	}
	// round to a power of ten above the units
	scale := new(big.Int).Exp(ten, big.NewInt(int64(-places)), nil)
	scaled := Fraction{numerator: f.num(), denominator: new(big.Int).Mul(f.den(), scale)}
	return decimal.NewFromBigInt(scaled.Decimal(0).BigInt(), -places).String()
}

// exponent returns e such that 10^e <= |f| < 10^(e+1).
func (f Fraction) exponent() int32 {
	n := new(big.Int).Abs(f.num())
	d := f.den()
	e := int32(len(n.String()) - len(d.String()))

	// compare |n| against d*10^e
	scaledN, scaledD := new(big.Int).Set(n), new(big.Int).Set(d)
	if e >= 0 {
		scaledD.Mul(scaledD, new(big.Int).Exp(ten, big.NewInt(int64(e)), nil))
	} else {
		scaledN.Mul(scaledN, new(big.Int).Exp(ten, big.NewInt(int64(-e)), nil))
	}
	if scaledN.Cmp(scaledD) < 0 {
		e--
	}
	return e
}

func (f Fraction) String() string {
	return f.num().String() + "/" + f.den().String()
}
