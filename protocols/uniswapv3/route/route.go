// Package route chains pools into multi-hop routes and prices trades along them.
package route

import (
	"fmt"

	"github.com/defistate/v3sim-go/protocols/tokenregistry"
	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/calculator"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/fraction"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrEmptyRoute   = fmt.Errorf("%w: route has no pools", uniswapv3.ErrInvalidInput)
	ErrDisconnected = fmt.Errorf("%w: pools do not form a path", uniswapv3.ErrInvalidInput)
)

// Route is an ordered list of pools leading from Input to Output.
type Route struct {
	Pools  []calculator.Pool
	Input  tokenregistry.Token
	Output tokenregistry.Token

	path []common.Address
}

// NewRoute validates that pools chain from input to output.
func NewRoute(pools []calculator.Pool, input, output tokenregistry.Token) (Route, error) {
	if len(pools) == 0 {
		return Route{}, ErrEmptyRoute
	}

	path := make([]common.Address, 0, len(pools)+1)
	path = append(path, input.Address)
	current := input.Address
	for i, pool := range pools {
		switch current {
		case pool.Token0:
			current = pool.Token1
		case pool.Token1:
			current = pool.Token0
		default:
			return Route{}, fmt.Errorf("%w: hop %d (pool %d) does not hold %s", ErrDisconnected, i, pool.ID, current.Hex())
		}
		path = append(path, current)
	}
	if current != output.Address {
		return Route{}, fmt.Errorf("%w: path ends at %s, not %s", ErrDisconnected, current.Hex(), output)
	}

	return Route{
		Pools:  append([]calculator.Pool(nil), pools...),
		Input:  input,
		Output: output,
		path:   path,
	}, nil
}

// Path returns the token addresses visited by the route, input first.
func (r Route) Path() []common.Address {
	return append([]common.Address(nil), r.path...)
}

// Hops returns the number of pools in the route.
func (r Route) Hops() int {
	return len(r.Pools)
}

// MidPrice returns the price of Input in Output at the current pool prices, before any trade.
func (r Route) MidPrice() (fraction.Price, error) {
	raw := fraction.FromInt64(1, 1)
	for i, pool := range r.Pools {
		hop, err := pool.PriceOf(r.path[i])
		if err != nil {
			return fraction.Price{}, err
		}
		raw = raw.Mul(hop)
	}
	return fraction.PriceFromFraction(r.Input, r.Output, raw), nil
}

func (r Route) String() string {
	s := r.Input.String()
	for i, pool := range r.Pools {
		s += fmt.Sprintf(" -[%d]-> ", pool.ID)
		if i == len(r.Pools)-1 {
			s += r.Output.String()
		} else {
			s += r.path[i+1].Hex()
		}
	}
	return s
}
