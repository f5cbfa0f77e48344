package indexer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tokenregistry "github.com/defistate/v3sim-go/protocols/tokenregistry"
	"github.com/ethereum/go-ethereum/common"
)

var ErrDuplicateToken = errors.New("duplicate token")

// Indexer builds IndexedTokenSystem values.
type Indexer struct{}

// New creates a new Indexer.
func New() *Indexer {
	return &Indexer{}
}

// Index creates an indexed token system from a raw slice of tokens.
func (i *Indexer) Index(tokens []tokenregistry.Token) (IndexedTokenSystem, error) {
	return NewIndexableTokenSystem(tokens)
}

// IndexableTokenSystem provides fast, indexed access to token data.
type IndexableTokenSystem struct {
	byID      map[uint64]tokenregistry.Token
	byAddress map[common.Address]tokenregistry.Token
	bySymbol  map[string][]tokenregistry.Token
	all       []tokenregistry.Token
}

// NewIndexableTokenSystem validates tokens and indexes them by ID, address and symbol.
// IDs and addresses must be unique; symbols need not be.
func NewIndexableTokenSystem(tokens []tokenregistry.Token) (*IndexableTokenSystem, error) {
	its := &IndexableTokenSystem{
		byID:      make(map[uint64]tokenregistry.Token, len(tokens)),
		byAddress: make(map[common.Address]tokenregistry.Token, len(tokens)),
		bySymbol:  make(map[string][]tokenregistry.Token, len(tokens)),
		all:       make([]tokenregistry.Token, 0, len(tokens)),
	}

	for _, t := range tokens {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, ok := its.byID[t.ID]; ok {
			return nil, fmt.Errorf("%w: id %d", ErrDuplicateToken, t.ID)
		}
		if _, ok := its.byAddress[t.Address]; ok {
			return nil, fmt.Errorf("%w: address %s", ErrDuplicateToken, t.Address.Hex())
		}
		its.byID[t.ID] = t
		its.byAddress[t.Address] = t
		symbol := strings.ToUpper(t.Symbol)
		its.bySymbol[symbol] = append(its.bySymbol[symbol], t)
		its.all = append(its.all, t)
	}

	return its, nil
}

// GetByID retrieves a token by its unique ID.
func (its *IndexableTokenSystem) GetByID(id uint64) (tokenregistry.Token, bool) {
	t, ok := its.byID[id]
	return t, ok
}

// GetByAddress retrieves a token by its contract address.
func (its *IndexableTokenSystem) GetByAddress(address common.Address) (tokenregistry.Token, bool) {
	t, ok := its.byAddress[address]
	return t, ok
}

// Resolve looks a token up by hex address, decimal ID or case-insensitive symbol, in that order.
// An ambiguous symbol does not resolve.
func (its *IndexableTokenSystem) Resolve(ref string) (tokenregistry.Token, bool) {
	if common.IsHexAddress(ref) {
		return its.GetByAddress(common.HexToAddress(ref))
	}
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		return its.GetByID(id)
	}
	matches := its.bySymbol[strings.ToUpper(ref)]
	if len(matches) != 1 {
		return tokenregistry.Token{}, false
	}
	return matches[0], true
}

// All returns a defensive copy of the slice of all tokens in the system.
func (its *IndexableTokenSystem) All() []tokenregistry.Token {
	allCopy := make([]tokenregistry.Token, len(its.all))
	copy(allCopy, its.all)
	return allCopy
}
