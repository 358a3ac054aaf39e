package smoke

import (
	"fmt"

	"github.com/okian/bingo/internal/domain/board"
	"github.com/okian/bingo/internal/domain/tile"
)

// verifyOutcome checks the invariants every classify answer must hold and
// returns one error per violation.
func verifyOutcome(out Outcome) []error {
	var errs []error
	if len(out.Board) != tile.Size {
		return append(errs, fmt.Errorf("board has %d tiles, want %d", len(out.Board), tile.Size))
	}

	var b tile.Board
	for i, t := range out.Board {
		if t.ID != i+1 {
			errs = append(errs, fmt.Errorf("tile at %d has id %d", i, t.ID))
		}
		b[i] = tile.Tile{ID: t.ID, IsMatched: t.IsMatched}
	}
	if !b[tile.SpecialID-1].IsMatched {
		errs = append(errs, fmt.Errorf("special tile %d is not matched", tile.SpecialID))
	}

	if want := board.HasBingo(b); out.Bingo != want {
		errs = append(errs, fmt.Errorf("bingo flag %v disagrees with board (%v)", out.Bingo, want))
	}
	if len(board.WinningLines(b)) != len(out.Lines) {
		errs = append(errs, fmt.Errorf("%d lines reported, board has %d", len(out.Lines), len(board.WinningLines(b))))
	}

	if out.ParseError != "" {
		if got := b.MatchedIDs(); len(got) != 1 {
			errs = append(errs, fmt.Errorf("parse failure left %d tiles matched", len(got)))
		}
		return errs
	}
	for _, m := range out.Matches {
		if !tile.ValidID(m.ID) {
			errs = append(errs, fmt.Errorf("match id %d is off the board", m.ID))
			continue
		}
		if !b[m.ID-1].IsMatched {
			errs = append(errs, fmt.Errorf("match %d is not marked on the board", m.ID))
		}
	}
	return errs
}
