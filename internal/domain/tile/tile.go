// Package tile holds the fixed bingo catalogue and the 5x5 board built from it.
package tile

// Board geometry.
const (
	Width = 5
	Size  = Width * Width

	// SpecialID is the brand tile in the centre column. It carries no
	// keywords, is never sent to the classifier and is always matched.
	SpecialID = 13
)

// Tile is a single concept cell on the board.
type Tile struct {
	ID        int      `json:"id"`
	Label     string   `json:"label"`
	Keywords  []string `json:"keywords"`
	IsMatched bool     `json:"is_matched"`
}

// Special reports whether t is the always-matched brand tile.
func (t Tile) Special() bool { return t.ID == SpecialID }

// Board is the row-major 5x5 grid. Index i sits at row i/5, column i%5.
type Board [Size]Tile

// Position returns the row and column of a board index.
func Position(index int) (row, col int) {
	return index / Width, index % Width
}

// catalogue is the immutable template. Never hand out the backing slices.
var catalogue = [Size]Tile{
	{ID: 1, Label: "AUTO", Keywords: []string{"car", "vehicle", "voertuig", "automobiel", "wagen"}},
	{ID: 2, Label: "DIGITALISERING", Keywords: []string{"digital", "digitization", "digital transformation", "digitale transformatie", "automatisering"}},
	{ID: 3, Label: "ELEKTRISCH", Keywords: []string{"electric", "electrical", "elektriciteit", "elektrische auto", "ev"}},
	{ID: 4, Label: "SYSTEEM", Keywords: []string{"system", "framework", "structure", "raamwerk", "structuur"}},
	{ID: 5, Label: "VAN A NAAR B", Keywords: []string{"from a to b", "transport", "journey", "reis", "verplaatsing"}},
	{ID: 6, Label: "EFFICIENT", Keywords: []string{"efficiency", "effective", "optimized", "efficiënt", "doelmatig"}},
	{ID: 7, Label: "VERKEERSVEILIGHEID", Keywords: []string{"traffic safety", "road safety", "safe driving", "veilig verkeer", "verkeersveilig"}},
	{ID: 8, Label: "LAADINFRASTRUCTUUR", Keywords: []string{"charging infrastructure", "ev charging", "laadpaal", "laadstation", "oplaadpunt"}},
	{ID: 9, Label: "FILES", Keywords: []string{"traffic jam", "congestion", "verkeersopstopping", "opstopping", "drukte"}},
	{ID: 10, Label: "DOORFIETSROUTE", Keywords: []string{"bicycle route", "bike path", "cycling route", "fietspad", "fietsroute"}},
	{ID: 11, Label: "DUURZAAM", Keywords: []string{"sustainable", "eco-friendly", "green", "milieuvriendelijk", "ecologisch"}},
	{ID: 12, Label: "PARKEERVERGUNNING", Keywords: []string{"parking permit", "parking license", "parkeerplaats", "parkeren", "vergunning"}},
	{ID: 13, Label: "LAB", Keywords: []string{}, IsMatched: true},
	{ID: 14, Label: "REISTIJDWINST", Keywords: []string{"travel time gain", "time saving", "faster journey", "tijdwinst", "snellere reis"}},
	{ID: 15, Label: "MAKKELIJK", Keywords: []string{"easy", "simple", "convenient", "eenvoudig", "gemakkelijk"}},
	{ID: 16, Label: "ZELFRIJDEND", Keywords: []string{"self-driving", "autonomous", "automated", "autonoom", "zelfrijdend"}},
	{ID: 17, Label: "DOORSTROMING", Keywords: []string{"flow", "traffic flow", "circulation", "verkeersstroom", "doorstroom"}},
	{ID: 18, Label: "SNEL", Keywords: []string{"fast", "quick", "rapid", "vlug", "rap"}},
	{ID: 19, Label: "OPENBAAR VERVOER", Keywords: []string{"public transport", "public transit", "bus", "train", "ov"}},
	{ID: 20, Label: "WOON WERKVERKEER", Keywords: []string{"commute", "commuter traffic", "rush hour", "forens", "spitsuur"}},
	{ID: 21, Label: "OPTIMALISATIE", Keywords: []string{"optimization", "improvement", "enhancement", "verbetering", "optimaliseren"}},
	{ID: 22, Label: "PARKEERDRUK", Keywords: []string{"parking pressure", "parking demand", "parking shortage", "parkeertekort", "parkeerprobleem"}},
	{ID: 23, Label: "E-BIKE/ FATBIKE", Keywords: []string{"electric bike", "electric bicycle", "fat tire bike", "elektrische fiets", "pedelec"}},
	{ID: 24, Label: "VERKEER", Keywords: []string{"traffic", "transport", "transportation", "vervoer", "mobiliteit"}},
	{ID: 25, Label: "BETAALD PARKEREN", Keywords: []string{"paid parking", "parking fee", "parking charge", "parkeergeld", "parkeerkosten"}},
}

// Catalogue returns a deep copy of the template tiles in board order.
func Catalogue() []Tile {
	out := make([]Tile, Size)
	for i, t := range catalogue {
		out[i] = clone(t)
	}
	return out
}

// Lookup returns a copy of the template tile with the given id.
func Lookup(id int) (Tile, bool) {
	if !ValidID(id) {
		return Tile{}, false
	}
	// ids are 1..25 in board order
	return clone(catalogue[id-1]), true
}

// ValidID reports whether id names a tile on the board.
func ValidID(id int) bool { return id >= 1 && id <= Size }

// NewBoard returns the baseline board: only the special tile is matched.
func NewBoard() Board {
	return FromMatches(nil)
}

// FromMatches derives a fresh board from the template, marking exactly the
// tiles in matched plus the special tile. The template is left untouched.
func FromMatches(matched map[int]bool) Board {
	var b Board
	for i, t := range catalogue {
		c := clone(t)
		c.IsMatched = c.Special() || matched[c.ID]
		b[i] = c
	}
	return b
}

// MatchedIDs returns the ids of matched tiles in board order.
func (b Board) MatchedIDs() []int {
	ids := make([]int, 0, Size)
	for _, t := range b {
		if t.IsMatched {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

func clone(t Tile) Tile {
	kw := make([]string, len(t.Keywords))
	copy(kw, t.Keywords)
	t.Keywords = kw
	return t
}
