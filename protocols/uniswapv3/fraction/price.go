package fraction

import (
	"fmt"
	"math/big"

	"github.com/defistate/v3sim-go/protocols/tokenregistry"
	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
)

var ErrTokenMismatch = fmt.Errorf("%w: token mismatch", uniswapv3.ErrInvalidInput)

// Price is the amount of quote token per base token. The embedded Fraction is the raw ratio of
// smallest units; rendering methods scale it by the tokens' decimals.
type Price struct {
	Fraction
	Base  tokenregistry.Token
	Quote tokenregistry.Token
}

// NewPrice returns a price of quoteAmount quote units per baseAmount base units.
func NewPrice(base, quote tokenregistry.Token, baseAmount, quoteAmount *big.Int) (Price, error) {
	f, err := New(quoteAmount, baseAmount)
	if err != nil {
		return Price{}, err
	}
	return Price{Fraction: f, Base: base, Quote: quote}, nil
}

// PriceFromFraction wraps a raw ratio of quote units per base unit.
func PriceFromFraction(base, quote tokenregistry.Token, raw Fraction) Price {
	return Price{Fraction: raw, Base: base, Quote: quote}
}

// scalar converts raw units to whole tokens: 10^baseDecimals / 10^quoteDecimals.
func (p Price) scalar() Fraction {
	return Fraction{
		numerator:   new(big.Int).Exp(ten, big.NewInt(int64(p.Base.Decimals)), nil),
		denominator: new(big.Int).Exp(ten, big.NewInt(int64(p.Quote.Decimals)), nil),
	}
}

// Adjusted returns the price in whole tokens.
func (p Price) Adjusted() Fraction {
	return p.Fraction.Mul(p.scalar())
}

// Raw returns the ratio of smallest units.
func (p Price) Raw() Fraction {
	return p.Fraction
}

// Invert returns the price of base in quote.
func (p Price) Invert() (Price, error) {
	inverted, err := p.Fraction.Invert()
	if err != nil {
		return Price{}, err
	}
	return Price{Fraction: inverted, Base: p.Quote, Quote: p.Base}, nil
}

// Multiply chains p (A in B) with other (B in C) into A in C.
func (p Price) Multiply(other Price) (Price, error) {
	if !p.Quote.Equals(other.Base) {
		return Price{}, fmt.Errorf("%w: %s quote does not match %s base", ErrTokenMismatch, p.Quote, other.Base)
	}
	return Price{Fraction: p.Fraction.Mul(other.Fraction), Base: p.Base, Quote: other.Quote}, nil
}

// QuoteAmount converts a raw amount of base into a raw amount of quote, rounding towards zero.
func (p Price) QuoteAmount(base tokenregistry.Token, amount *big.Int) (*big.Int, error) {
	if !base.Equals(p.Base) {
		return nil, fmt.Errorf("%w: %s is not the base %s", ErrTokenMismatch, base, p.Base)
	}
	return p.Fraction.Mul(FromInt(amount)).Quotient(), nil
}

func (p Price) ToSignificant(digits int32) string {
	return p.Adjusted().ToSignificant(digits)
}

func (p Price) ToFixed(places int32) string {
	return p.Adjusted().ToFixed(places)
}

func (p Price) String() string {
	return fmt.Sprintf("%s %s/%s", p.ToSignificant(6), p.Quote, p.Base)
}
