package smoke

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/bingo/pkg/logger"
)

// ErrViolations is returned when any answer broke a board invariant.
var ErrViolations = errors.New("board invariants violated")

// Run executes the complete smoke run and returns its statistics.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()
	c := newClient(config.BaseURL, config.Timeout)

	log.Info(ctx, "starting bingo smoke run",
		logger.String("baseURL", config.BaseURL),
		logger.Duration("timeout", config.Timeout),
		logger.Bool("waitOnLimit", config.WaitOnLimit))

	// Step 1: Check service health
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, nil); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	texts, err := LoadTexts(config.TextsFile)
	if err != nil {
		return stats, err
	}

	// Step 2: Start from the baseline board
	var baseline Outcome
	if err := c.do(ctx, http.MethodPost, "/api/board/reset", nil, &baseline); err != nil {
		return stats, fmt.Errorf("reset failed: %w", err)
	}
	stats.Violations += report(ctx, "reset", verifyOutcome(baseline))

	// Step 3: Submit every text
	waits := 0
	for i := 0; i < len(texts); i++ {
		var out Outcome
		stats.Submitted++
		err := c.do(ctx, http.MethodPost, "/api/board/classify", map[string]string{"text": texts[i]}, &out)

		var se *statusError
		switch {
		case err == nil:
			stats.Succeeded++
			if out.ParseError != "" {
				stats.ParseErrors++
			}
			if out.Bingo {
				stats.Bingos++
			}
			stats.Violations += report(ctx, fmt.Sprintf("text %d", i+1), verifyOutcome(out))
			if config.Verbose {
				log.Info(ctx, "classified", logger.Int("text", i+1), logger.Int("matches", len(out.Matches)), logger.Bool("bingo", out.Bingo))
			}
		case errors.As(err, &se) && se.Status == http.StatusTooManyRequests:
			stats.RateLimited++
			if !config.WaitOnLimit || waits >= config.MaxLimitWaits {
				continue
			}
			waits++
			wait := time.Duration(se.Body.RetryAfterMS) * time.Millisecond
			log.Info(ctx, "rate limited, waiting", logger.Duration("wait", wait))
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(wait):
			}
			stats.Submitted--
			i--
		default:
			stats.Failed++
			log.Warn(ctx, "classification failed", logger.Int("text", i+1), logger.Error(err))
		}
	}

	// Step 4: Version round trip
	if !config.SkipVersions {
		if err := versionRoundTrip(ctx, c); err != nil {
			return stats, fmt.Errorf("version round trip failed: %w", err)
		}
	}

	stats.Duration = time.Since(stats.StartTime)
	log.Info(ctx, "smoke run finished",
		logger.Int("submitted", stats.Submitted),
		logger.Int("succeeded", stats.Succeeded),
		logger.Int("rateLimited", stats.RateLimited),
		logger.Int("failed", stats.Failed),
		logger.Int("parseErrors", stats.ParseErrors),
		logger.Int("bingos", stats.Bingos),
		logger.Int("violations", stats.Violations),
		logger.Duration("duration", stats.Duration))

	if stats.Violations > 0 {
		return stats, fmt.Errorf("%w: %d", ErrViolations, stats.Violations)
	}
	return stats, nil
}

func report(ctx context.Context, what string, errs []error) int {
	for _, err := range errs {
		logger.Get().Error(ctx, "invariant violated", logger.String("answer", what), logger.Error(err))
	}
	return len(errs)
}

// versionRoundTrip saves, reads back and deletes one version.
func versionRoundTrip(ctx context.Context, c *client) error {
	name := "smoke " + time.Now().UTC().Format(time.RFC3339)
	var saved Version
	if err := c.do(ctx, http.MethodPost, "/api/versions", map[string]string{
		"name":    name,
		"content": "<p>smoke run</p>",
	}, &saved); err != nil {
		return err
	}

	var got Version
	if err := c.do(ctx, http.MethodGet, "/api/versions/"+saved.ID, nil, &got); err != nil {
		return err
	}
	if got.Name != name || got.PlainText != "smoke run" {
		return fmt.Errorf("read back %q/%q, want %q/%q", got.Name, got.PlainText, name, "smoke run")
	}

	if err := c.do(ctx, http.MethodDelete, "/api/versions/"+saved.ID, nil, nil); err != nil {
		return err
	}
	var se *statusError
	err := c.do(ctx, http.MethodGet, "/api/versions/"+saved.ID, nil, nil)
	if !errors.As(err, &se) || se.Status != http.StatusNotFound {
		return fmt.Errorf("deleted version still readable: %v", err)
	}
	return nil
}
