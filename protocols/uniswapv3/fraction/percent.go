package fraction

import "math/big"

var hundred = FromInt64(100, 1)

// Percent is a Fraction rendered as a percentage: 1/100 renders as "1".
type Percent struct {
	Fraction
}

// NewPercent returns numerator/denominator as a percent.
func NewPercent(numerator, denominator *big.Int) (Percent, error) {
	f, err := New(numerator, denominator)
	if err != nil {
		return Percent{}, err
	}
	return Percent{f}, nil
}

// PercentFromBips returns bips/10000.
func PercentFromBips(bips int64) Percent {
	return Percent{FromInt64(bips, 10_000)}
}

func (p Percent) Add(other Percent) Percent { return Percent{p.Fraction.Add(other.Fraction)} }
func (p Percent) Sub(other Percent) Percent { return Percent{p.Fraction.Sub(other.Fraction)} }

func (p Percent) ToSignificant(digits int32) string {
	return p.Fraction.Mul(hundred).ToSignificant(digits)
}

func (p Percent) ToFixed(places int32) string {
	return p.Fraction.Mul(hundred).ToFixed(places)
}

func (p Percent) String() string {
	return p.ToSignificant(5) + "%"
}
