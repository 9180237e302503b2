// Package compare classifies merged records against the caller's own
// stores. It is pure: the own-store set is passed per call, never held
// as ambient state.
package compare

import (
	"strings"

	"github.com/rbarroso/mlwatch/internal/types"
)

// OwnStoreSet holds normalized own-store names.
type OwnStoreSet map[string]struct{}

// NewOwnStoreSet normalizes and collects the configured store names.
func NewOwnStoreSet(names []string) OwnStoreSet {
	set := make(OwnStoreSet, len(names))
	for _, n := range names {
		if norm := Normalize(n); norm != "" {
			set[norm] = struct{}{}
		}
	}
	return set
}

// Contains reports whether name normalized-matches the set.
func (s OwnStoreSet) Contains(name string) bool {
	_, ok := s[Normalize(name)]
	return ok
}

// Normalize folds a seller name for matching: whitespace-trimmed,
// case-insensitive.
func Normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Annotate sets the price-comparison fields on one term's record set,
// in place. With no own-store rows there is no baseline and no flags
// are set. A competitor is undercutting iff its price is strictly below
// the minimum own-store price; ties are not flagged.
func Annotate(records []*types.MergedRecord, own OwnStoreSet) {
	var minOwn float64
	haveOwn := false

	for _, r := range records {
		r.OwnStore = own.Contains(r.Seller())
		if r.OwnStore && (!haveOwn || r.Price < minOwn) {
			minOwn = r.Price
			haveOwn = true
		}
	}

	if !haveOwn {
		return
	}

	for _, r := range records {
		r.MinOwnPrice = &minOwn
		if !r.OwnStore {
			r.UndercutByCompetitor = r.Price < minOwn
		}
	}
}
