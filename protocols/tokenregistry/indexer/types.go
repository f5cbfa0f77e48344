package indexer

import (
	tokenregistry "github.com/defistate/v3sim-go/protocols/tokenregistry"
	"github.com/ethereum/go-ethereum/common"
)

// IndexedTokenSystem defines the methods for accessing indexed token data.
type IndexedTokenSystem interface {
	GetByID(id uint64) (tokenregistry.Token, bool)
	GetByAddress(address common.Address) (tokenregistry.Token, bool)
	Resolve(ref string) (tokenregistry.Token, bool)
	All() []tokenregistry.Token
}
