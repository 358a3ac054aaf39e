package classify

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/okian/bingo/internal/domain/tile"
)

// MatchedItem is one tile the classifier judged present.
type MatchedItem struct {
	ID         int      `json:"id"`
	Motivation string   `json:"motivation"`
	Evidence   []string `json:"evidence"`
}

// Result is the parsed classifier answer. Err is set when the body could not
// be parsed; Items is then empty, never nil.
type Result struct {
	Items    []MatchedItem
	Rejected []MatchedItem
	Err      error
}

type wireResponse struct {
	Matches *[]MatchedItem `json:"matches"`
}

// ParseResponse decodes the raw classifier body. It never fails outright:
// malformed input yields an empty item list plus Err.
func ParseResponse(raw string) Result {
	var w wireResponse
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return Result{Items: []MatchedItem{}, Err: fmt.Errorf("%w: %w", ErrParse, err)}
	}
	if w.Matches == nil {
		return Result{Items: []MatchedItem{}, Err: fmt.Errorf("%w: missing matches", ErrParse)}
	}

	res := Result{Items: make([]MatchedItem, 0, len(*w.Matches))}
	for _, m := range *w.Matches {
		if !tile.ValidID(m.ID) {
			res.Rejected = append(res.Rejected, m)
			continue
		}
		if m.Evidence == nil {
			m.Evidence = []string{}
		}
		res.Items = append(res.Items, m)
	}
	return res
}

// MatchedIDs returns the sorted, de-duplicated id set for items with the
// special tile always included.
func MatchedIDs(items []MatchedItem) []int {
	set := MatchedSet(items)
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// MatchedSet is MatchedIDs as a lookup set.
func MatchedSet(items []MatchedItem) map[int]bool {
	set := make(map[int]bool, len(items)+1)
	for _, it := range items {
		set[it.ID] = true
	}
	set[tile.SpecialID] = true
	return set
}
