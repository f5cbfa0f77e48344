package route

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/defistate/v3sim-go/bitset"
	"github.com/defistate/v3sim-go/protocols/tokenregistry"
	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/calculator"
	"github.com/ethereum/go-ethereum/common"
)

// BestTradeOptions bounds the route search.
type BestTradeOptions struct {
	MaxHops    int
	MaxResults int
}

// DefaultBestTradeOptions mirrors the router defaults: up to three hops, three results.
var DefaultBestTradeOptions = BestTradeOptions{MaxHops: 3, MaxResults: 3}

func (o BestTradeOptions) validate() error {
	if o.MaxHops <= 0 {
		return fmt.Errorf("%w: max hops must be positive", uniswapv3.ErrInvalidInput)
	}
	if o.MaxResults <= 0 {
		return fmt.Errorf("%w: max results must be positive", uniswapv3.ErrInvalidInput)
	}
	return nil
}

// searcher holds the state of one depth first route search. Each pool is used at most once per route.
type searcher struct {
	pools  []calculator.Pool
	input  tokenregistry.Token
	output tokenregistry.Token
	opts   BestTradeOptions

	used   bitset.BitSet
	hops   []int
	trades []*Trade
}

func newSearcher(pools []calculator.Pool, input, output tokenregistry.Token, opts BestTradeOptions) (*searcher, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &searcher{
		pools:  pools,
		input:  input,
		output: output,
		opts:   opts,
		used:   bitset.NewBitSet(uint64(len(pools))),
	}, nil
}

// BestTradeExactIn returns up to MaxResults exact input trades of amountIn from input to output,
// best output first. Pools that cannot fill a hop are skipped.
func BestTradeExactIn(pools []calculator.Pool, input, output tokenregistry.Token, amountIn *big.Int, opts BestTradeOptions) ([]*Trade, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	s, err := newSearcher(pools, input, output, opts)
	if err != nil {
		return nil, err
	}
	if err := s.forward(input.Address, amountIn, amountIn); err != nil {
		return nil, err
	}
	return s.best(ExactInput), nil
}

// BestTradeExactOut returns up to MaxResults exact output trades delivering amountOut of output,
// cheapest input first.
func BestTradeExactOut(pools []calculator.Pool, input, output tokenregistry.Token, amountOut *big.Int, opts BestTradeOptions) ([]*Trade, error) {
	if amountOut == nil || amountOut.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	s, err := newSearcher(pools, input, output, opts)
	if err != nil {
		return nil, err
	}
	if err := s.backward(output.Address, amountOut, amountOut); err != nil {
		return nil, err
	}
	return s.best(ExactOutput), nil
}

// forward extends the current path from token holding amount.
func (s *searcher) forward(token common.Address, amount, amountIn *big.Int) error {
	for i, pool := range s.pools {
		if s.used.IsSet(uint64(i)) || !pool.InvolvesToken(token) {
			continue
		}
		out, _, err := pool.GetOutputAmount(token, amount, nil)
		if err != nil {
			if skippable(err) {
				continue
			}
			return fmt.Errorf("pool %d: %w", pool.ID, err)
		}
		if out.Sign() == 0 {
			continue
		}

		next := other(pool, token)
		s.push(i)
		if next == s.output.Address {
			if err := s.record(s.hops, amountIn, ExactInput); err != nil {
				return err
			}
		} else if len(s.hops) < s.opts.MaxHops {
			if err := s.forward(next, out, amountIn); err != nil {
				return err
			}
		}
		s.pop(i)
	}
	return nil
}

// backward extends the current path towards the input, from token that must deliver amount.
func (s *searcher) backward(token common.Address, amount, amountOut *big.Int) error {
	for i, pool := range s.pools {
		if s.used.IsSet(uint64(i)) || !pool.InvolvesToken(token) {
			continue
		}
		in, _, err := pool.GetInputAmount(token, amount, nil)
		if err != nil {
			if skippable(err) {
				continue
			}
			return fmt.Errorf("pool %d: %w", pool.ID, err)
		}

		prev := other(pool, token)
		s.push(i)
		if prev == s.input.Address {
			reversed := make([]int, len(s.hops))
			for j, h := range s.hops {
				reversed[len(s.hops)-1-j] = h
			}
			if err := s.record(reversed, amountOut, ExactOutput); err != nil {
				return err
			}
		} else if len(s.hops) < s.opts.MaxHops {
			if err := s.backward(prev, in, amountOut); err != nil {
				return err
			}
		}
		s.pop(i)
	}
	return nil
}

func (s *searcher) push(i int) {
	s.used.Set(uint64(i))
	s.hops = append(s.hops, i)
}

func (s *searcher) pop(i int) {
	s.used.Unset(uint64(i))
	s.hops = s.hops[:len(s.hops)-1]
}

func (s *searcher) record(hops []int, amount *big.Int, tradeType TradeType) error {
	pools := make([]calculator.Pool, len(hops))
	for j, h := range hops {
		pools[j] = s.pools[h]
	}
	r, err := NewRoute(pools, s.input, s.output)
	if err != nil {
		return err
	}
	trade, err := NewTrade(r, amount, tradeType)
	if err != nil {
		if skippable(err) {
			return nil
		}
		return err
	}
	s.trades = append(s.trades, trade)
	return nil
}

// best sorts the collected trades and keeps the first MaxResults. Better amounts win, then
// fewer hops.
func (s *searcher) best(tradeType TradeType) []*Trade {
	sort.SliceStable(s.trades, func(i, j int) bool {
		a, b := s.trades[i], s.trades[j]
		var c int
		if tradeType == ExactInput {
			c = b.OutputAmount.Cmp(a.OutputAmount)
		} else {
			c = a.InputAmount.Cmp(b.InputAmount)
		}
		if c != 0 {
			return c < 0
		}
		return a.Route.Hops() < b.Route.Hops()
	})
	if len(s.trades) > s.opts.MaxResults {
		s.trades = s.trades[:s.opts.MaxResults]
	}
	return s.trades
}

// skippable reports whether a hop failure only rules out the pool rather than the search.
func skippable(err error) bool {
	return errors.Is(err, uniswapv3.ErrInsufficientLiquidity) ||
		errors.Is(err, uniswapv3.ErrPriceOutOfRange) ||
		errors.Is(err, uniswapv3.ErrLiquidityUnderflow)
}

func other(pool calculator.Pool, token common.Address) common.Address {
	if token == pool.Token0 {
		return pool.Token1
	}
	return pool.Token0
}
