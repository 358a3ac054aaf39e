package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/bingo/internal/smoke"
	"github.com/okian/bingo/pkg/logger"
)

// Default configuration constants.
const (
	defaultTimeout    = 45 * time.Second
	defaultRunTimeout = 10 * time.Minute
	defaultLimitWaits = 3
)

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:8080", "Base URL of the service")
		textsFile    = flag.String("texts", "", "File of texts separated by blank lines (default: built-in samples)")
		timeout      = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		waitOnLimit  = flag.Bool("wait", false, "Sleep through rate limit answers")
		maxWaits     = flag.Int("max-waits", defaultLimitWaits, "Maximum rate limit sleeps")
		skipVersions = flag.Bool("skip-versions", false, "Skip the version round trip")
		jsonLogs     = flag.Bool("json", false, "Log as JSON lines")
		verbose      = flag.Bool("verbose", false, "Log every outcome")
	)
	flag.Parse()

	if err := logger.Init(logger.WithJSON(*jsonLogs)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &smoke.Config{
		BaseURL:       *baseURL,
		TextsFile:     *textsFile,
		Timeout:       *timeout,
		WaitOnLimit:   *waitOnLimit,
		SkipVersions:  *skipVersions,
		Verbose:       *verbose,
		MaxLimitWaits: *maxWaits,
	}

	if _, err := smoke.Run(ctx, config); err != nil {
		logger.Get().Error(ctx, "smoke run failed", logger.Error(err))
		cancel()
		os.Exit(1)
	}
}
