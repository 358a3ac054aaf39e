// Package board detects completed lines on the 5x5 bingo board.
//
// The board shape never changes, so every line is listed by index rather
// than derived from a generic NxN walk.
package board

import "github.com/okian/bingo/internal/domain/tile"

// LineKind names the orientation of a line.
type LineKind string

// Line orientations.
const (
	Row      LineKind = "row"
	Column   LineKind = "column"
	Diagonal LineKind = "diagonal"
)

// Line is one of the twelve winning index sets.
type Line struct {
	Kind    LineKind        `json:"kind"`
	Index   int             `json:"index"`
	Indices [tile.Width]int `json:"indices"`
}

var lines = [...]Line{
	{Kind: Row, Index: 0, Indices: [tile.Width]int{0, 1, 2, 3, 4}},
	{Kind: Row, Index: 1, Indices: [tile.Width]int{5, 6, 7, 8, 9}},
	{Kind: Row, Index: 2, Indices: [tile.Width]int{10, 11, 12, 13, 14}},
	{Kind: Row, Index: 3, Indices: [tile.Width]int{15, 16, 17, 18, 19}},
	{Kind: Row, Index: 4, Indices: [tile.Width]int{20, 21, 22, 23, 24}},
	{Kind: Column, Index: 0, Indices: [tile.Width]int{0, 5, 10, 15, 20}},
	{Kind: Column, Index: 1, Indices: [tile.Width]int{1, 6, 11, 16, 21}},
	{Kind: Column, Index: 2, Indices: [tile.Width]int{2, 7, 12, 17, 22}},
	{Kind: Column, Index: 3, Indices: [tile.Width]int{3, 8, 13, 18, 23}},
	{Kind: Column, Index: 4, Indices: [tile.Width]int{4, 9, 14, 19, 24}},
	{Kind: Diagonal, Index: 0, Indices: [tile.Width]int{0, 6, 12, 18, 24}},
	{Kind: Diagonal, Index: 1, Indices: [tile.Width]int{4, 8, 12, 16, 20}},
}

// Lines returns the twelve lines checked for a win.
func Lines() []Line {
	out := make([]Line, len(lines))
	copy(out, lines[:])
	return out
}

// HasBingo reports whether any row, column or diagonal is fully matched.
func HasBingo(b tile.Board) bool {
	for _, l := range lines {
		if complete(b, l) {
			return true
		}
	}
	return false
}

// WinningLines returns every fully matched line, rows first.
func WinningLines(b tile.Board) []Line {
	var out []Line
	for _, l := range lines {
		if complete(b, l) {
			out = append(out, l)
		}
	}
	return out
}

func complete(b tile.Board, l Line) bool {
	for _, i := range l.Indices {
		if !b[i].IsMatched {
			return false
		}
	}
	return true
}
