package tokenregistry

import (
	"errors"
	"fmt"
	"sort"
)

var ErrPatchConflict = errors.New("token diff does not apply to this token list")

// Patcher constructs the next token list by applying diff to prevState. The result is ordered by
// ID. Deleting or updating a missing token, or adding a present one, is a conflict.
func Patcher(prevState []Token, diff TokenDiff) ([]Token, error) {
	// Token has no pointer fields, so copying the values is a deep copy.
	next := make(map[uint64]Token, len(prevState)+len(diff.Additions))
	for _, token := range prevState {
		next[token.ID] = token
	}

	for _, id := range diff.Deletions {
		if _, ok := next[id]; !ok {
			return nil, fmt.Errorf("%w: delete of missing token %d", ErrPatchConflict, id)
		}
		delete(next, id)
	}
	for _, token := range diff.Updates {
		if _, ok := next[token.ID]; !ok {
			return nil, fmt.Errorf("%w: update of missing token %d", ErrPatchConflict, token.ID)
		}
		next[token.ID] = token
	}
	for _, token := range diff.Additions {
		if _, ok := next[token.ID]; ok {
			return nil, fmt.Errorf("%w: addition of present token %d", ErrPatchConflict, token.ID)
		}
		next[token.ID] = token
	}

	tokens := make([]Token, 0, len(next))
	for _, token := range next {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].ID < tokens[j].ID })
	return tokens, nil
}
