package uniswapv3

import "errors"

// Error taxonomy shared by every package of the engine. Package level errors wrap one of
// these so callers can classify a failure with errors.Is regardless of where it was raised.
var (
	// ErrOverflow is returned when an intermediate or final value exceeds its representable width.
	ErrOverflow = errors.New("overflow")
	// ErrInvalidInput is returned when an argument is zero, nil or otherwise unusable.
	ErrInvalidInput = errors.New("invalid input")
	// ErrTickOutOfRange is returned for ticks outside [MIN_TICK, MAX_TICK].
	ErrTickOutOfRange = errors.New("tick out of range")
	// ErrPriceOutOfRange is returned for sqrt prices outside [MIN_SQRT_RATIO, MAX_SQRT_RATIO) or invalid price limits.
	ErrPriceOutOfRange = errors.New("price out of range")
	// ErrLiquidityUnderflow is returned when crossing a tick would make pool liquidity negative.
	// It indicates corrupted or stale tick data.
	ErrLiquidityUnderflow = errors.New("liquidity underflow")
	// ErrInsufficientLiquidity is returned when a swap cannot be filled before its price limit.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
)
