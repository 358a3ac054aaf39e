package classify

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrRateLimited   = errors.New("rate limit exceeded")
	ErrTransport     = errors.New("classification request failed")
	ErrParse         = errors.New("classification response malformed")
	ErrEmptyText     = errors.New("text is empty")
	ErrInvalidTileID = errors.New("tile id out of range")
)

// RateLimitError is returned before any network attempt when the limiter
// has no budget left.
type RateLimitError struct {
	RetryAfter time.Duration
	Remaining  int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: retry in %s (%d remaining)", ErrRateLimited, e.RetryAfter.Round(time.Millisecond), e.Remaining)
}

// Is lets errors.Is(err, ErrRateLimited) match.
func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }
