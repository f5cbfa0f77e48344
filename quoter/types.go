package quoter

import (
	"math/big"

	"github.com/defistate/v3sim-go/protocols/uniswapv3/route"
	"github.com/ethereum/go-ethereum/common"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Request asks for the best trade of Amount between two tokens. Amount is the input for an
// exact input request and the output for an exact output request.
type Request struct {
	TokenIn   common.Address
	TokenOut  common.Address
	Amount    *big.Int
	TradeType route.TradeType
}

// Response is the outcome of one Request in a batch.
type Response struct {
	Request Request
	Trade   *route.Trade
	Err     error
}
