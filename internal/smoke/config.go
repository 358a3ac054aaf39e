// Package smoke drives a running bingo server through its public API and
// checks the board invariants on every answer.
package smoke

import "time"

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL       string        // Base URL of the service
	TextsFile     string        // Optional file of texts separated by blank lines
	Timeout       time.Duration // HTTP request timeout
	WaitOnLimit   bool          // Sleep through 429 answers instead of counting them
	SkipVersions  bool          // Skip the version round trip
	Verbose       bool          // Log every outcome
	MaxLimitWaits int           // Upper bound on rate limit sleeps
}

// Tile mirrors one board cell.
type Tile struct {
	ID        int    `json:"id"`
	Label     string `json:"label"`
	IsMatched bool   `json:"is_matched"`
}

// Line mirrors a completed row, column or diagonal.
type Line struct {
	Kind    string `json:"kind"`
	Index   int    `json:"index"`
	Indices []int  `json:"indices"`
}

// Outcome mirrors the classify response.
type Outcome struct {
	Board      []Tile `json:"board"`
	Bingo      bool   `json:"bingo"`
	Lines      []Line `json:"lines"`
	ParseError string `json:"parse_error"`
	Matches    []struct {
		ID int `json:"id"`
	} `json:"matches"`
}

// Version mirrors a saved version.
type Version struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Content   string `json:"content"`
	PlainText string `json:"plainText"`
}

// apiError mirrors the error body.
type apiError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RetryAfterMS int64  `json:"retry_after_ms"`
}

// Stats holds run statistics.
type Stats struct {
	Submitted   int
	Succeeded   int
	RateLimited int
	Failed      int
	ParseErrors int
	Bingos      int
	Violations  int
	StartTime   time.Time
	Duration    time.Duration
}
