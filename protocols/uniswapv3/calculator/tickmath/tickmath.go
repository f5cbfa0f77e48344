package tickmath

import (
	"fmt"

	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
	"github.com/holiman/uint256"
)

const (
	// MIN_TICK is the minimum tick that may be passed to getSqrtRatioAtTick.
	MIN_TICK = int64(-887272)
	// MAX_TICK is the maximum tick that may be passed to getSqrtRatioAtTick.
	MAX_TICK = int64(887272)
)

var (
	// MIN_SQRT_RATIO is the minimum value that can be returned from getSqrtRatioAtTick.
	MIN_SQRT_RATIO = uint256.NewInt(4295128739)
	// MAX_SQRT_RATIO is the maximum value that can be returned from getSqrtRatioAtTick.
	MAX_SQRT_RATIO = uint256.MustFromDecimal("1461446703485210103287273052203988822378723970342")

	ErrTickOutOfBounds      = fmt.Errorf("%w: tick must be within [MIN_TICK, MAX_TICK]", uniswapv3.ErrTickOutOfRange)
	ErrSqrtPriceOutOfBounds = fmt.Errorf("%w: sqrt price must be within [MIN_SQRT_RATIO, MAX_SQRT_RATIO)", uniswapv3.ErrPriceOutOfRange)
	ErrInvalidTickSpacing   = fmt.Errorf("%w: tick spacing must be positive", uniswapv3.ErrInvalidInput)

	maxUint256 = new(uint256.Int).SetAllOne()
	q128       = new(uint256.Int).Lsh(uint256.NewInt(1), 128)

	// sqrtFactors[i] is 2^128 / sqrt(1.0001^(2^i)) as a UQ128.128, applied for bit i of |tick|.
	sqrtFactors = [20]*uint256.Int{
		uint256.MustFromHex("0xfffcb933bd6fad37aa2d162d1a594001"),
		uint256.MustFromHex("0xfff97272373d413259a46990580e213a"),
		uint256.MustFromHex("0xfff2e50f5f656932ef12357cf3c7fdcc"),
		uint256.MustFromHex("0xffe5caca7e10e4e61c3624eaa0941cd0"),
		uint256.MustFromHex("0xffcb9843d60f6159c9db58835c926644"),
		uint256.MustFromHex("0xff973b41fa98c081472e6896dfb254c0"),
		uint256.MustFromHex("0xff2ea16466c96a3843ec78b326b52861"),
		uint256.MustFromHex("0xfe5dee046a99a2a811c461f1969c3053"),
		uint256.MustFromHex("0xfcbe86c7900a88aedcffc83b479aa3a4"),
		uint256.MustFromHex("0xf987a7253ac413176f2b074cf7815e54"),
		uint256.MustFromHex("0xf3392b0822b70005940c7a398e4b70f3"),
		uint256.MustFromHex("0xe7159475a2c29b7443b29c7fa6e889d9"),
		uint256.MustFromHex("0xd097f3bdfd2022b8845ad8f792aa5825"),
		uint256.MustFromHex("0xa9f746462d870fdf8a65dc1f90e061e5"),
		uint256.MustFromHex("0x70d869a156d2a1b890bb3df62baf32f7"),
		uint256.MustFromHex("0x31be135f97d08fd981231505542fcfa6"),
		uint256.MustFromHex("0x9aa508b5b7a84e1c677de54f3e99bc9"),
		uint256.MustFromHex("0x5d6af8dedb81196699c329225ee604"),
		uint256.MustFromHex("0x2216e584f5fa1ea926041bedfe98"),
		uint256.MustFromHex("0x48a170391f7dc42444e8fa2"),
	}

	// log base sqrt(1.0001) of 2 as a Q64.64 multiplier, and the error bounds of the approximation.
	log2ToLogSqrt10001 = uint256.MustFromDecimal("255738958999603826347141")
	tickLowErrorBound  = uint256.MustFromDecimal("3402992956809132418596140100660247210")
	tickHighErrorBound = uint256.MustFromDecimal("291339464771989622907027621153398088495")
)

// GetSqrtRatioAtTick calculates sqrt(1.0001^tick) * 2^96 and writes it to dest.
// This function is the Go equivalent of the Solidity TickMath.getSqrtRatioAtTick function
// and is allocation free.
func GetSqrtRatioAtTick(dest *uint256.Int, tick int64) error {
	if tick < MIN_TICK || tick > MAX_TICK {
		return ErrTickOutOfBounds
	}

	absTick := uint64(tick)
	if tick < 0 {
		absTick = uint64(-tick)
	}

	var ratio uint256.Int
	if absTick&0x1 != 0 {
		ratio.Set(sqrtFactors[0])
	} else {
		ratio.Set(q128)
	}
	for i := 1; i < len(sqrtFactors); i++ {
		if absTick&(1<<uint(i)) != 0 {
			ratio.Mul(&ratio, sqrtFactors[i])
			ratio.Rsh(&ratio, 128)
		}
	}

	// the factors compute the price of a negative tick, positive ticks take the reciprocal
	if tick > 0 {
		ratio.Div(maxUint256, &ratio)
	}

	// Q128.128 -> Q128.96, rounding up so getTickAtSqrtRatio of the result is consistent.
	roundUp := ratio[0]&0xffffffff != 0
	ratio.Rsh(&ratio, 32)
	if roundUp {
		ratio.AddUint64(&ratio, 1)
	}

	dest.Set(&ratio)
	return nil
}

// GetTickAtSqrtRatio calculates the greatest tick value such that getSqrtRatioAtTick(tick) <= sqrtPriceX96.
// It computes log2 of the price with integer bit operations, converts it to a base sqrt(1.0001)
// logarithm and picks between the two candidate ticks the approximation error allows.
func GetTickAtSqrtRatio(sqrtPriceX96 *uint256.Int) (int64, error) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Lt(MIN_SQRT_RATIO) || !sqrtPriceX96.Lt(MAX_SQRT_RATIO) {
		return 0, ErrSqrtPriceOutOfBounds
	}

	var ratio, r, log2, f, bit uint256.Int
	ratio.Lsh(sqrtPriceX96, 32)

	msb := uint(ratio.BitLen() - 1)
	if msb >= 128 {
		r.Rsh(&ratio, msb-127)
	} else {
		r.Lsh(&ratio, 127-msb)
	}

	// integer part of log2, as a signed Q64.64 in two's complement
	setInt64(&log2, int64(msb)-128)
	log2.Lsh(&log2, 64)

	// fractional part: 14 bits of precision are enough to resolve a single tick
	for i := uint(0); i < 14; i++ {
		r.Mul(&r, &r)
		r.Rsh(&r, 127)
		f.Rsh(&r, 128)
		bit.Lsh(&f, 63-i)
		log2.Or(&log2, &bit)
		r.Rsh(&r, uint(f.Uint64()))
	}

	var logSqrt10001, low, high uint256.Int
	logSqrt10001.Mul(&log2, log2ToLogSqrt10001)

	low.Sub(&logSqrt10001, tickLowErrorBound)
	low.SRsh(&low, 128)
	high.Add(&logSqrt10001, tickHighErrorBound)
	high.SRsh(&high, 128)

	tickLow, tickHigh := toInt64(&low), toInt64(&high)
	if tickLow == tickHigh {
		return tickLow, nil
	}

	var sqrtHigh uint256.Int
	if err := GetSqrtRatioAtTick(&sqrtHigh, tickHigh); err != nil {
		return tickLow, nil
	}
	if !sqrtHigh.Gt(sqrtPriceX96) {
		return tickHigh, nil
	}
	return tickLow, nil
}

// NearestUsableTick returns the tick closest to tick that is a multiple of tickSpacing
// and lies within [MIN_TICK, MAX_TICK].
func NearestUsableTick(tick, tickSpacing int64) (int64, error) {
	if tickSpacing <= 0 {
		return 0, ErrInvalidTickSpacing
	}
	if tick < MIN_TICK || tick > MAX_TICK {
		return 0, ErrTickOutOfBounds
	}

	rounded := tick / tickSpacing * tickSpacing
	remainder := tick - rounded
	// halves round up
	if 2*remainder >= tickSpacing {
		rounded += tickSpacing
	} else if 2*remainder < -tickSpacing {
		rounded -= tickSpacing
	}

	if rounded < MIN_TICK {
		return rounded + tickSpacing, nil
	}
	if rounded > MAX_TICK {
		return rounded - tickSpacing, nil
	}
	return rounded, nil
}

// setInt64 stores v in z as a two's complement 256 bit value.
func setInt64(z *uint256.Int, v int64) {
	if v >= 0 {
		z.SetUint64(uint64(v))
		return
	}
	z.SetUint64(uint64(-v))
	z.Neg(z)
}

// toInt64 reads a small two's complement 256 bit value.
func toInt64(z *uint256.Int) int64 {
	if z.Sign() < 0 {
		var abs uint256.Int
		abs.Neg(z)
		return -int64(abs.Uint64())
	}
	return int64(z.Uint64())
}
