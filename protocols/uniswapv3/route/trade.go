package route

import (
	"fmt"
	"math/big"

	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/calculator"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/fraction"
)

var (
	ErrInvalidAmount   = fmt.Errorf("%w: trade amount must be greater than zero", uniswapv3.ErrInvalidInput)
	ErrInvalidSlippage = fmt.Errorf("%w: slippage tolerance must not be negative", uniswapv3.ErrInvalidInput)
)

// TradeType fixes which side of a trade is specified.
type TradeType int

const (
	ExactInput TradeType = iota
	ExactOutput
)

func (t TradeType) String() string {
	switch t {
	case ExactInput:
		return "exact_input"
	case ExactOutput:
		return "exact_output"
	}
	return fmt.Sprintf("TradeType(%d)", int(t))
}

// Trade is a simulated swap along a route.
type Trade struct {
	Route     Route
	TradeType TradeType

	InputAmount  *big.Int
	OutputAmount *big.Int

	// Amounts holds the amount of every token along the path, input first.
	Amounts []*big.Int
	// PoolsAfter holds each pool's state after its hop.
	PoolsAfter []calculator.Pool
}

// NewTrade simulates amount through r. For an exact input trade the amount is fed forward through
// every pool; for an exact output trade the required input is computed backwards from the last pool.
// Every hop must fill completely.
func NewTrade(r Route, amount *big.Int, tradeType TradeType) (*Trade, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if len(r.Pools) == 0 || len(r.path) != len(r.Pools)+1 {
		return nil, ErrEmptyRoute
	}

	hops := len(r.Pools)
	amounts := make([]*big.Int, hops+1)
	after := make([]calculator.Pool, hops)

	switch tradeType {
	case ExactInput:
		amounts[0] = new(big.Int).Set(amount)
		for i := 0; i < hops; i++ {
			out, next, err := r.Pools[i].GetOutputAmount(r.path[i], amounts[i], nil)
			if err != nil {
				return nil, fmt.Errorf("hop %d (pool %d): %w", i, r.Pools[i].ID, err)
			}
			amounts[i+1], after[i] = out, next
		}
	case ExactOutput:
		amounts[hops] = new(big.Int).Set(amount)
		for i := hops - 1; i >= 0; i-- {
			in, next, err := r.Pools[i].GetInputAmount(r.path[i+1], amounts[i+1], nil)
			if err != nil {
				return nil, fmt.Errorf("hop %d (pool %d): %w", i, r.Pools[i].ID, err)
			}
			amounts[i], after[i] = in, next
		}
	default:
		return nil, fmt.Errorf("%w: trade type %s", uniswapv3.ErrInvalidInput, tradeType)
	}

	return &Trade{
		Route:        r,
		TradeType:    tradeType,
		InputAmount:  amounts[0],
		OutputAmount: amounts[hops],
		Amounts:      amounts,
		PoolsAfter:   after,
	}, nil
}

// ExecutionPrice is the average price paid: output per input.
func (t *Trade) ExecutionPrice() (fraction.Price, error) {
	return fraction.NewPrice(t.Route.Input, t.Route.Output, t.InputAmount, t.OutputAmount)
}

// PriceImpact is the relative shortfall of the output against the output at the mid price.
func (t *Trade) PriceImpact() (fraction.Percent, error) {
	mid, err := t.Route.MidPrice()
	if err != nil {
		return fraction.Percent{}, err
	}
	spotOutput := mid.Raw().Mul(fraction.FromInt(t.InputAmount))
	if spotOutput.Sign() == 0 {
		return fraction.Percent{}, fmt.Errorf("%w: zero mid price output", uniswapv3.ErrInvalidInput)
	}
	impact, err := spotOutput.Sub(fraction.FromInt(t.OutputAmount)).Div(spotOutput)
	if err != nil {
		return fraction.Percent{}, err
	}
	return fraction.Percent{Fraction: impact}, nil
}

// MinimumAmountOut returns the least output acceptable under slippage: output / (1 + slippage),
// rounded down. An exact output trade returns its output unchanged.
func (t *Trade) MinimumAmountOut(slippage fraction.Percent) (*big.Int, error) {
	if slippage.Sign() < 0 {
		return nil, ErrInvalidSlippage
	}
	if t.TradeType == ExactOutput {
		return new(big.Int).Set(t.OutputAmount), nil
	}
	factor, err := fraction.FromInt64(1, 1).Add(slippage.Fraction).Invert()
	if err != nil {
		return nil, err
	}
	return factor.Mul(fraction.FromInt(t.OutputAmount)).Quotient(), nil
}

// MaximumAmountIn returns the most input acceptable under slippage: input * (1 + slippage),
// rounded down. An exact input trade returns its input unchanged.
func (t *Trade) MaximumAmountIn(slippage fraction.Percent) (*big.Int, error) {
	if slippage.Sign() < 0 {
		return nil, ErrInvalidSlippage
	}
	if t.TradeType == ExactInput {
		return new(big.Int).Set(t.InputAmount), nil
	}
	factor := fraction.FromInt64(1, 1).Add(slippage.Fraction)
	return factor.Mul(fraction.FromInt(t.InputAmount)).Quotient(), nil
}

// WorstExecutionPrice is the price obtained at the slippage bounds.
func (t *Trade) WorstExecutionPrice(slippage fraction.Percent) (fraction.Price, error) {
	maxIn, err := t.MaximumAmountIn(slippage)
	if err != nil {
		return fraction.Price{}, err
	}
	minOut, err := t.MinimumAmountOut(slippage)
	if err != nil {
		return fraction.Price{}, err
	}
	return fraction.NewPrice(t.Route.Input, t.Route.Output, maxIn, minOut)
}

// SwapResults replays every hop against the pool state the trade was priced on and returns the
// per-hop results, in route order. The simulation is deterministic, so the results match the
// amounts and PoolsAfter of the trade.
func (t *Trade) SwapResults() ([]*calculator.SwapResult, error) {
	results := make([]*calculator.SwapResult, len(t.Route.Pools))
	for i, pool := range t.Route.Pools {
		zeroForOne := t.Route.path[i] == pool.Token0

		amount := t.Amounts[i]
		if t.TradeType == ExactOutput {
			amount = new(big.Int).Neg(t.Amounts[i+1])
		}
		res, err := pool.SimulateSwap(zeroForOne, amount, nil)
		if err != nil {
			return nil, fmt.Errorf("hop %d (pool %d): %w", i, pool.ID, err)
		}
		results[i] = res
	}
	return results, nil
}
