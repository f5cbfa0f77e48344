package swapmath

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/defistate/v3sim-go/protocols/uniswapv3/calculator/sqrtpricemath"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper to create a random uint256.Int up to a given bit length.
func newRandInt(bits int) *uint256.Int {
	max := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		panic(err)
	}
	return uint256.MustFromBig(n)
}

// signed encodes v as a two's complement int256.
func signed(v *big.Int) *uint256.Int {
	abs := uint256.MustFromBig(new(big.Int).Abs(v))
	if v.Sign() < 0 {
		return abs.Neg(abs)
	}
	return abs
}

func encodePriceSqrt(reserve1, reserve0 int64) *uint256.Int {
	num := new(big.Int).Mul(big.NewInt(reserve1), new(big.Int).Lsh(big.NewInt(1), 192))
	ratio := new(big.Int).Div(num, big.NewInt(reserve0))
	return uint256.MustFromBig(new(big.Int).Sqrt(ratio))
}

func TestComputeSwapStep(t *testing.T) {
	e18 := big.NewInt(1e18)
	sqrtP := uint256.MustFromDecimal("20282409603651670423947251286016")

	testCases := []struct {
		name            string
		price           *uint256.Int
		target          *uint256.Int
		liquidity       *uint256.Int
		amountRemaining *big.Int
		feePips         uint32
		expectedNext    string
		expectedIn      string
		expectedOut     string
		expectedFee     string
	}{
		{
			name: "exact amount in that gets capped at price target in one for zero",
			price: encodePriceSqrt(1, 1), target: encodePriceSqrt(101, 100), liquidity: uint256.NewInt(2e18),
			amountRemaining: e18, feePips: 600,
			expectedNext: encodePriceSqrt(101, 100).Dec(), expectedIn: "9975124224178055", expectedOut: "9925619580021728", expectedFee: "5988667735148",
		},
		{
			name: "exact amount out that gets capped at price target in one for zero",
			price: encodePriceSqrt(1, 1), target: encodePriceSqrt(101, 100), liquidity: uint256.NewInt(2e18),
			amountRemaining: new(big.Int).Neg(e18), feePips: 600,
			expectedNext: encodePriceSqrt(101, 100).Dec(), expectedIn: "9975124224178055", expectedOut: "9925619580021728", expectedFee: "5988667735148",
		},
		{
			name: "exact amount in that is fully spent in one for zero",
			price: encodePriceSqrt(1, 1), target: encodePriceSqrt(1000, 100), liquidity: uint256.NewInt(2e18),
			amountRemaining: e18, feePips: 600,
			expectedNext: "118818475322642227089037862318", expectedIn: "999400000000000000", expectedOut: "666399946655997866", expectedFee: "600000000000000",
		},
		{
			name: "exact amount out that is fully received in one for zero",
			price: encodePriceSqrt(1, 1), target: encodePriceSqrt(10000, 100), liquidity: uint256.NewInt(2e18),
			amountRemaining: new(big.Int).Neg(e18), feePips: 600,
			expectedNext: "158456325028528675187087900672", expectedIn: "2000000000000000000", expectedOut: "1000000000000000000", expectedFee: "1200720432259356",
		},
		{
			name:  "amount out is capped at the desired amount out",
			price: uint256.MustFromDecimal("417332158212080721273783715441582"), target: uint256.MustFromDecimal("1452870262520218020823638996"),
			liquidity: uint256.MustFromDecimal("159344665391607089467575320103"), amountRemaining: big.NewInt(-1), feePips: 1,
			expectedNext: "417332158212080721273783715441581", expectedIn: "1", expectedOut: "1", expectedFee: "1",
		},
		{
			name:  "target price of 1 uses partial input amount",
			price: uint256.NewInt(2), target: uint256.NewInt(1), liquidity: uint256.NewInt(1),
			amountRemaining: mustBig("3915081100057732413702495386755767"), feePips: 1,
			expectedNext: "1", expectedIn: "39614081257132168796771975168", expectedOut: "0", expectedFee: "39614120871253040049813",
		},
		{
			name:  "entire input amount taken as fee",
			price: uint256.NewInt(2413), target: uint256.NewInt(79887613182836312), liquidity: uint256.MustFromDecimal("1985041575832132834610021537970"),
			amountRemaining: big.NewInt(10), feePips: 1872,
			expectedNext: "2413", expectedIn: "0", expectedOut: "0", expectedFee: "10",
		},
		{
			name:  "handles intermediate insufficient liquidity in zero for one exact output case",
			price: sqrtP, target: new(uint256.Int).Div(new(uint256.Int).Mul(sqrtP, uint256.NewInt(11)), uint256.NewInt(10)), liquidity: uint256.NewInt(1024),
			amountRemaining: big.NewInt(-4), feePips: 3000,
			expectedNext: "22310650564016837466341976414617", expectedIn: "26215", expectedOut: "0", expectedFee: "79",
		},
		{
			name:  "handles intermediate insufficient liquidity in one for zero exact output case",
			price: sqrtP, target: new(uint256.Int).Div(new(uint256.Int).Mul(sqrtP, uint256.NewInt(9)), uint256.NewInt(10)), liquidity: uint256.NewInt(1024),
			amountRemaining: big.NewInt(-263000), feePips: 3000,
			expectedNext: "18254168643286503381552526157414", expectedIn: "1", expectedOut: "26214", expectedFee: "1",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sqrtQ, amountIn, amountOut, feeAmount := new(uint256.Int), new(uint256.Int), new(uint256.Int), new(uint256.Int)
			err := ComputeSwapStep(sqrtQ, amountIn, amountOut, feeAmount, tc.price, tc.target, tc.liquidity, signed(tc.amountRemaining), tc.feePips)
			require.NoError(t, err)

			assert.Equal(t, tc.expectedNext, sqrtQ.Dec())
			assert.Equal(t, tc.expectedIn, amountIn.Dec())
			assert.Equal(t, tc.expectedOut, amountOut.Dec())
			assert.Equal(t, tc.expectedFee, feeAmount.Dec())
		})
	}
}

func TestComputeSwapStep_InvalidFee(t *testing.T) {
	err := ComputeSwapStep(new(uint256.Int), new(uint256.Int), new(uint256.Int), new(uint256.Int),
		encodePriceSqrt(1, 1), encodePriceSqrt(2, 1), uint256.NewInt(1e18), uint256.NewInt(1e18), FeeDenominator)
	assert.ErrorIs(t, err, ErrInvalidFee)
}

func mustBig(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(s)
	}
	return n
}

// TestComputeSwapStep_Invariants runs the function on a large number of random inputs
// and verifies its mathematical properties.
func TestComputeSwapStep_Invariants(t *testing.T) {
	for i := 0; i < 1000; i++ {
		sqrtPriceRaw := newRandInt(160)
		sqrtPriceTargetRaw := newRandInt(160)
		liquidity := newRandInt(128)
		amountRemaining := newRandInt(255)
		if i%2 == 1 {
			amountRemaining.Neg(amountRemaining)
		}
		feePips := uint32(newRandInt(20).Uint64()) % FeeDenominator

		if sqrtPriceRaw.IsZero() {
			sqrtPriceRaw.SetOne()
		}
		if sqrtPriceTargetRaw.IsZero() {
			sqrtPriceTargetRaw.SetOne()
		}
		if feePips == 0 {
			feePips = 1
		}

		sqrtQ, amountIn, amountOut, feeAmount := new(uint256.Int), new(uint256.Int), new(uint256.Int), new(uint256.Int)
		err := ComputeSwapStep(sqrtQ, amountIn, amountOut, feeAmount, sqrtPriceRaw, sqrtPriceTargetRaw, liquidity, amountRemaining, feePips)
		if err != nil {
			continue
		}

		sumIn, overflow := new(uint256.Int).AddOverflow(amountIn, feeAmount)
		assert.False(t, overflow)

		remainingAbs := new(uint256.Int).Set(amountRemaining)
		if amountRemaining.Sign() < 0 {
			remainingAbs.Neg(amountRemaining)
			assert.False(t, amountOut.Gt(remainingAbs))
		} else {
			assert.False(t, sumIn.Gt(remainingAbs))
		}

		if sqrtPriceRaw.Eq(sqrtPriceTargetRaw) {
			assert.True(t, amountIn.IsZero())
			assert.True(t, amountOut.IsZero())
			assert.True(t, feeAmount.IsZero())
			assert.True(t, sqrtQ.Eq(sqrtPriceTargetRaw))
		}

		// didn't reach price target, entire amount must be consumed
		if !sqrtQ.Eq(sqrtPriceTargetRaw) {
			if amountRemaining.Sign() < 0 {
				assert.True(t, amountOut.Eq(remainingAbs))
			} else {
				assert.True(t, sumIn.Eq(remainingAbs))
			}
		}

		// next price is between price and price target
		if !sqrtPriceRaw.Lt(sqrtPriceTargetRaw) {
			assert.False(t, sqrtQ.Gt(sqrtPriceRaw))
			assert.False(t, sqrtQ.Lt(sqrtPriceTargetRaw))
		} else {
			assert.False(t, sqrtQ.Lt(sqrtPriceRaw))
			assert.False(t, sqrtQ.Gt(sqrtPriceTargetRaw))
		}
	}
}

// TestComputeSwapStep_PriceConsistency checks that the input consumed by an exact input step
// reproduces the step's ending price.
func TestComputeSwapStep_PriceConsistency(t *testing.T) {
	for i := 0; i < 1000; i++ {
		price := new(uint256.Int).Add(newRandInt(96), new(uint256.Int).Lsh(uint256.NewInt(1), 95))
		target := new(uint256.Int).Add(newRandInt(96), new(uint256.Int).Lsh(uint256.NewInt(1), 95))
		liquidity := new(uint256.Int).AddUint64(newRandInt(100), 1)
		amountRemaining := newRandInt(90)
		zeroForOne := !price.Lt(target)

		sqrtQ, amountIn, amountOut, feeAmount := new(uint256.Int), new(uint256.Int), new(uint256.Int), new(uint256.Int)
		require.NoError(t, ComputeSwapStep(sqrtQ, amountIn, amountOut, feeAmount, price, target, liquidity, amountRemaining, 3000))

		// paying amountIn for token0 moves the price at least to sqrtQ
		if !zeroForOne {
			fromIn := new(uint256.Int)
			require.NoError(t, sqrtpricemath.GetNextSqrtPriceFromInput(fromIn, price, liquidity, amountIn, false))
			assert.False(t, fromIn.Lt(sqrtQ), "input %s does not reach %s", amountIn.Dec(), sqrtQ.Dec())
		}

		// the amount needed to reach sqrtQ is exactly amountIn
		needed := new(uint256.Int)
		if zeroForOne {
			require.NoError(t, sqrtpricemath.GetAmount0Delta(needed, sqrtQ, price, liquidity, true))
		} else {
			require.NoError(t, sqrtpricemath.GetAmount1Delta(needed, price, sqrtQ, liquidity, true))
		}
		assert.True(t, needed.Eq(amountIn))
	}
}

// TestComputeSwapStep_FeeBound checks fee accounting for the standard fee tiers.
func TestComputeSwapStep_FeeBound(t *testing.T) {
	fees := []uint32{100, 500, 3000, 10000}
	for i := 0; i < 1000; i++ {
		feePips := fees[i%len(fees)]
		price := encodePriceSqrt(1, 1)
		target := encodePriceSqrt(11, 10)
		if i%2 == 0 {
			target = encodePriceSqrt(10, 11)
		}
		liquidity := uint256.NewInt(1e18)
		amountRemaining := new(uint256.Int).AddUint64(newRandInt(64), 1)

		sqrtQ, amountIn, amountOut, feeAmount := new(uint256.Int), new(uint256.Int), new(uint256.Int), new(uint256.Int)
		require.NoError(t, ComputeSwapStep(sqrtQ, amountIn, amountOut, feeAmount, price, target, liquidity, amountRemaining, feePips))

		assert.False(t, feeAmount.Gt(amountIn) && !amountIn.IsZero(), "fee %s exceeds input %s", feeAmount.Dec(), amountIn.Dec())

		if sqrtQ.Eq(target) {
			// ceil(amountIn * fee / (1e6 - fee))
			expected := new(big.Int).Mul(amountIn.ToBig(), big.NewInt(int64(feePips)))
			denominator := big.NewInt(int64(FeeDenominator - feePips))
			quotient, remainder := new(big.Int).QuoRem(expected, denominator, new(big.Int))
			if remainder.Sign() != 0 {
				quotient.Add(quotient, big.NewInt(1))
			}
			assert.Zero(t, quotient.Cmp(feeAmount.ToBig()))
		} else {
			// the partial step absorbs the rounding remainder
			assert.True(t, new(uint256.Int).Add(amountIn, feeAmount).Eq(amountRemaining))
			// and the fee is at least the floor of the nominal fee on the whole amount
			nominal := new(uint256.Int).Div(new(uint256.Int).Mul(amountRemaining, uint256.NewInt(uint64(feePips))), uint256.NewInt(FeeDenominator))
			assert.False(t, feeAmount.Lt(nominal))
		}
	}
}

func BenchmarkComputeSwapStep(b *testing.B) {
	price := encodePriceSqrt(1, 1)
	target := encodePriceSqrt(101, 100)
	liquidity := uint256.NewInt(2e18)
	amount := uint256.NewInt(1e18)
	sqrtQ, amountIn, amountOut, feeAmount := new(uint256.Int), new(uint256.Int), new(uint256.Int), new(uint256.Int)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = ComputeSwapStep(sqrtQ, amountIn, amountOut, feeAmount, price, target, liquidity, amount, 600)
	}
}
