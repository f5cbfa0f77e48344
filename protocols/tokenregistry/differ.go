package tokenregistry

import "sort"

// TokenDiff is the set of token changes between two snapshots.
type TokenDiff struct {
	Additions []Token  `json:"additions,omitempty"`
	Updates   []Token  `json:"updates,omitempty"`
	Deletions []uint64 `json:"deletions,omitempty"`
}

// IsEmpty returns true if the diff contains no changes.
func (d TokenDiff) IsEmpty() bool {
	return len(d.Additions) == 0 && len(d.Updates) == 0 && len(d.Deletions) == 0
}

// Differ calculates the difference between two token lists, keyed by token ID.
// The output lists are ordered by ID.
func Differ(old, new []Token) TokenDiff {
	oldTokensMap := make(map[uint64]Token, len(old))
	for _, token := range old {
		oldTokensMap[token.ID] = token
	}

	newTokensMap := make(map[uint64]Token, len(new))
	for _, token := range new {
		newTokensMap[token.ID] = token
	}

	var diff TokenDiff
	for newID, newToken := range newTokensMap {
		oldToken, exists := oldTokensMap[newID]
		if !exists {
			diff.Additions = append(diff.Additions, newToken)
		} else if oldToken != newToken {
			// Token has only comparable fields
			diff.Updates = append(diff.Updates, newToken)
		}
	}

	for oldID := range oldTokensMap {
		if _, exists := newTokensMap[oldID]; !exists {
			diff.Deletions = append(diff.Deletions, oldID)
		}
	}

	sort.Slice(diff.Additions, func(i, j int) bool { return diff.Additions[i].ID < diff.Additions[j].ID })
	sort.Slice(diff.Updates, func(i, j int) bool { return diff.Updates[i].ID < diff.Updates[j].ID })
	sort.Slice(diff.Deletions, func(i, j int) bool { return diff.Deletions[i] < diff.Deletions[j] })

	return diff
}
