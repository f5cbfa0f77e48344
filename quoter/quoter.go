// Package quoter answers best-trade questions against one snapshot, serving batches in parallel.
package quoter

import (
	"context"
	"errors"
	"fmt"

	tokenindexer "github.com/defistate/v3sim-go/protocols/tokenregistry/indexer"
	uniswapv3 "github.com/defistate/v3sim-go/protocols/uniswapv3"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/calculator"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/indexer"
	"github.com/defistate/v3sim-go/protocols/uniswapv3/route"
	"github.com/defistate/v3sim-go/snapshot"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds the number of quotes of a batch simulated at once.
const DefaultConcurrency = 8

var (
	ErrUnknownToken = fmt.Errorf("%w: unknown token", uniswapv3.ErrInvalidInput)
	ErrNoRoute      = fmt.Errorf("%w: no route", uniswapv3.ErrInsufficientLiquidity)
)

// Config holds the quoter's dependencies and limits.
type Config struct {
	Logger   Logger
	Registry prometheus.Registerer

	// Concurrency is the number of batch quotes simulated at once; zero selects DefaultConcurrency.
	Concurrency int
	// CacheSize bounds the number of pools whose tick data is kept ready; zero selects the indexer default.
	CacheSize int
	// Search bounds the route search; the zero value selects route.DefaultBestTradeOptions.
	Search route.BestTradeOptions
}

func (c *Config) validate() error {
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	if c.Registry == nil {
		return errors.New("config: Registry cannot be nil")
	}
	if c.Concurrency < 0 {
		return errors.New("config: Concurrency cannot be negative")
	}
	if c.CacheSize < 0 {
		return errors.New("config: CacheSize cannot be negative")
	}
	return nil
}

// Quoter searches routes over the pools of a snapshot. It is safe for concurrent use.
type Quoter struct {
	logger      Logger
	metrics     *Metrics
	concurrency int
	search      route.BestTradeOptions

	tokens *tokenindexer.IndexableTokenSystem
	ready  []calculator.Pool
}

// New indexes snap and prepares every pool for simulation. A pool that fails validation is
// logged and left out of the search.
func New(snap *snapshot.Snapshot, cfg *Config) (*Quoter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	tokens, err := tokenindexer.NewIndexableTokenSystem(snap.Tokens)
	if err != nil {
		return nil, err
	}
	pools, err := indexer.NewIndexableUniswapV3System(snap.Pools, cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	ready := make([]calculator.Pool, 0, len(snap.Pools))
	for _, p := range pools.All() {
		pool, err := pools.Pool(p.ID)
		if err != nil {
			cfg.Logger.Warn("skipping pool", "pool_id", p.ID, "error", err)
			continue
		}
		ready = append(ready, pool)
	}

	concurrency := cfg.Concurrency
	if concurrency == 0 {
		concurrency = DefaultConcurrency
	}
	search := cfg.Search
	if search == (route.BestTradeOptions{}) {
		search = route.DefaultBestTradeOptions
	}

	cfg.Logger.Info("quoter ready",
		"chain_id", snap.ChainID,
		"block", snap.Block,
		"pools", len(ready),
		"skipped", len(snap.Pools)-len(ready),
	)
	return &Quoter{
		logger:      cfg.Logger,
		metrics:     NewMetrics(cfg.Registry),
		concurrency: concurrency,
		search:      search,
		tokens:      tokens,
		ready:       ready,
	}, nil
}

// Pools returns the number of pools the quoter searches.
func (q *Quoter) Pools() int {
	return len(q.ready)
}

// Quote returns the best trade for req. ErrNoRoute is returned when no route can fill it.
func (q *Quoter) Quote(ctx context.Context, req Request) (*route.Trade, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tradeType := req.TradeType.String()
	timer := prometheus.NewTimer(q.metrics.quoteDuration.WithLabelValues(tradeType))
	defer timer.ObserveDuration()

	trade, err := q.quote(req)
	switch {
	case err == nil:
		q.metrics.quotes.WithLabelValues(tradeType, outcomeOK).Inc()
		q.metrics.routeHops.Observe(float64(trade.Route.Hops()))
	case errors.Is(err, ErrNoRoute):
		q.metrics.quotes.WithLabelValues(tradeType, outcomeNoRoute).Inc()
	default:
		q.metrics.quotes.WithLabelValues(tradeType, outcomeError).Inc()
		q.logger.Debug("quote failed", "token_in", req.TokenIn.Hex(), "token_out", req.TokenOut.Hex(), "error", err)
	}
	return trade, err
}

func (q *Quoter) quote(req Request) (*route.Trade, error) {
	in, ok := q.tokens.GetByAddress(req.TokenIn)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, req.TokenIn.Hex())
	}
	out, ok := q.tokens.GetByAddress(req.TokenOut)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, req.TokenOut.Hex())
	}

	var (
		trades []*route.Trade
		err    error
	)
	switch req.TradeType {
	case route.ExactInput:
		trades, err = route.BestTradeExactIn(q.ready, in, out, req.Amount, q.search)
	case route.ExactOutput:
		trades, err = route.BestTradeExactOut(q.ready, in, out, req.Amount, q.search)
	default:
		return nil, fmt.Errorf("%w: trade type %s", uniswapv3.ErrInvalidInput, req.TradeType)
	}
	if err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return nil, fmt.Errorf("%w: %s to %s", ErrNoRoute, in, out)
	}
	return trades[0], nil
}

// QuoteAll quotes every request, at most Concurrency at a time. Per request failures are reported
// in the matching Response; the returned error is only set when ctx is cancelled.
func (q *Quoter) QuoteAll(ctx context.Context, reqs []Request) ([]Response, error) {
	responses := make([]Response, len(reqs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(q.concurrency)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			trade, err := q.Quote(gCtx, req)
			responses[i] = Response{Request: req, Trade: trade, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return responses, nil
}
