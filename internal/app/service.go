// Package service owns the bingo board state and wires classification,
// rate limiting and version storage behind one API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/bingo/internal/adapters/repository"
	"github.com/okian/bingo/internal/domain/board"
	"github.com/okian/bingo/internal/domain/classify"
	"github.com/okian/bingo/internal/domain/ratelimit"
	"github.com/okian/bingo/internal/domain/tile"
	"github.com/okian/bingo/pkg/logger"
	"github.com/okian/bingo/pkg/metrics"
)

// specialDescription is shown when the brand tile is opened.
const specialDescription = "The LAB tile is the free square: it is always matched and never sent to the classifier."

// Classifier turns free text into matched tiles.
type Classifier interface {
	Classify(ctx context.Context, text string, tiles []tile.Tile) (classify.Result, error)
}

// VersionStore persists saved editor versions.
type VersionStore interface {
	Save(ctx context.Context, name, content, plainText string) (repository.Version, error)
	List(ctx context.Context) ([]repository.Version, error)
	Get(ctx context.Context, id string) (repository.Version, error)
	Delete(ctx context.Context, id string) error
}

// Outcome is the result of one submission.
type Outcome struct {
	Board      tile.Board             `json:"board"`
	Bingo      bool                   `json:"bingo"`
	Lines      []board.Line           `json:"lines"`
	Matches    []classify.MatchedItem `json:"matches"`
	Rejected   []classify.MatchedItem `json:"rejected,omitempty"`
	ParseError string                 `json:"parse_error,omitempty"`
}

// Snapshot is the current board as served to clients.
type Snapshot struct {
	Board tile.Board   `json:"board"`
	Bingo bool         `json:"bingo"`
	Lines []board.Line `json:"lines"`
}

// Explanation describes one tile for the detail view.
type Explanation struct {
	ID         int      `json:"id"`
	Label      string   `json:"label"`
	Keywords   []string `json:"keywords"`
	Matched    bool     `json:"matched"`
	Special    bool     `json:"special"`
	Motivation string   `json:"motivation,omitempty"`
	Evidence   []string `json:"evidence"`
}

// Service implements the API dependencies for the bingo board.
type Service struct {
	mu sync.RWMutex

	// submitMu keeps one classification in flight per board.
	submitMu sync.Mutex

	// Board state, replaced wholesale on every submission.
	board   tile.Board
	details map[int]classify.MatchedItem

	limiter    *ratelimit.Limiter
	transport  classify.Transport
	clientOpts []classify.Option
	classifier Classifier
	versions   VersionStore

	started     bool
	submissions int
	bingos      int
	parseErrors int

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLimiter replaces the default limiter.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(s *Service) {
		if l != nil {
			s.limiter = l
		}
	}
}

// WithTransport enables classification over t. The client shares the
// service's limiter.
func WithTransport(t classify.Transport, opts ...classify.Option) Option {
	return func(s *Service) {
		if t != nil {
			s.transport = t
			s.clientOpts = opts
		}
	}
}

// WithClassifier sets a ready-made classifier. It takes precedence over
// WithTransport.
func WithClassifier(c Classifier) Option {
	return func(s *Service) {
		if c != nil {
			s.classifier = c
		}
	}
}

// WithVersionStore sets the version store.
func WithVersionStore(v VersionStore) Option {
	return func(s *Service) {
		if v != nil {
			s.versions = v
		}
	}
}

// New constructs a Service. Without a transport or classifier, Submit
// returns ErrClassifierUnavailable.
func New(opts ...Option) *Service {
	s := &Service{
		board:   tile.NewBoard(),
		details: map[int]classify.MatchedItem{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = ratelimit.New()
	}
	if s.classifier == nil && s.transport != nil {
		s.classifier = classify.NewClient(s.transport, s.limiter, s.clientOpts...)
	}
	if s.versions == nil {
		s.versions = repository.NewVersionStore(repository.NewMemoryKV())
	}
	return s
}

// Start marks the service ready and publishes initial gauges.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	metrics.UpdateMatchedTiles(len(s.board.MatchedIDs()))
	metrics.UpdateRateLimitRemaining(s.limiter.RemainingRequests())

	s.started = true
	st := s.limiter.Status()
	s.logger.Info(ctx, "bingo service started",
		logger.Bool("classifier", s.classifier != nil),
		logger.Int("rateLimit", st.Limit),
		logger.Duration("rateWindow", st.Window),
	)
	return nil
}

// Stop marks the service stopped.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "bingo service stopped")
}

func (s *Service) log() logger.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logger.Get()
}

// ClassifierEnabled reports whether Submit can reach a classifier.
func (s *Service) ClassifierEnabled() bool {
	return s.classifier != nil
}

// Submit classifies text and replaces the board with the result.
//
// Submissions are serialized: a second caller waits until the first has
// updated the board. Rate-limit and transport errors leave the board
// untouched. A malformed classifier answer resets the board to the baseline
// and is reported in Outcome.ParseError rather than as an error.
func (s *Service) Submit(ctx context.Context, text string) (Outcome, error) {
	if s.classifier == nil {
		return Outcome{}, ErrClassifierUnavailable
	}
	s.submitMu.Lock()
	defer s.submitMu.Unlock()
	log := s.log()

	start := time.Now()
	res, err := s.classifier.Classify(ctx, text, tile.Catalogue())
	metrics.UpdateRateLimitRemaining(s.limiter.RemainingRequests())
	if err != nil {
		var rl *classify.RateLimitError
		switch {
		case errors.As(err, &rl):
			metrics.RecordRateLimitRejection()
			metrics.RecordClassifyRequest(metrics.OutcomeRateLimited)
			log.Warn(ctx, "classification rate limited",
				logger.Duration("retryAfter", rl.RetryAfter),
				logger.Int("remaining", rl.Remaining),
			)
		case errors.Is(err, classify.ErrTransport):
			metrics.RecordClassifyTransportError()
			metrics.RecordClassifyRequest(metrics.OutcomeTransport)
			metrics.RecordErrorByComponent("classify", "transport")
			log.Error(ctx, "classification failed", logger.Error(err))
		}
		return Outcome{}, err
	}
	metrics.RecordClassifyLatency(float64(time.Since(start).Milliseconds()))

	if len(res.Rejected) > 0 {
		ids := make([]int, len(res.Rejected))
		for i, r := range res.Rejected {
			ids[i] = r.ID
		}
		metrics.RecordClassifyRejectedIDs(len(ids))
		log.Warn(ctx, "dropping classifier matches",
			logger.Error(fmt.Errorf("%w: %v", classify.ErrInvalidTileID, ids)),
		)
	}

	out := Outcome{Matches: res.Items, Rejected: res.Rejected}
	details := make(map[int]classify.MatchedItem, len(res.Items))
	if res.Err != nil {
		out.ParseError = res.Err.Error()
		out.Board = tile.NewBoard()
		metrics.RecordClassifyParseError()
		metrics.RecordClassifyRequest(metrics.OutcomeParseError)
		log.Warn(ctx, "classifier answer could not be parsed", logger.Error(res.Err))
	} else {
		for _, m := range res.Items {
			if _, seen := details[m.ID]; !seen {
				details[m.ID] = m
			}
		}
		out.Board = tile.FromMatches(classify.MatchedSet(res.Items))
		metrics.RecordClassifyRequest(metrics.OutcomeMatched)
	}
	out.Lines = board.WinningLines(out.Board)
	out.Bingo = len(out.Lines) > 0

	s.mu.Lock()
	s.board = out.Board
	s.details = details
	s.submissions++
	if res.Err != nil {
		s.parseErrors++
	}
	if out.Bingo {
		s.bingos++
	}
	s.mu.Unlock()

	matched := out.Board.MatchedIDs()
	metrics.UpdateMatchedTiles(len(matched))
	if out.Bingo {
		metrics.RecordBingo()
	}
	log.Info(ctx, "board updated",
		logger.Any("matched", matched),
		logger.Bool("bingo", out.Bingo),
	)
	return out, nil
}

// Board returns the current board.
func (s *Service) Board(_ context.Context) Snapshot {
	s.mu.RLock()
	b := s.board
	s.mu.RUnlock()

	lines := board.WinningLines(b)
	return Snapshot{Board: b, Bingo: len(lines) > 0, Lines: lines}
}

// Explain returns the detail view for tile id.
func (s *Service) Explain(_ context.Context, id int) (Explanation, error) {
	t, ok := tile.Lookup(id)
	if !ok {
		return Explanation{}, fmt.Errorf("%w: %d", ErrUnknownTile, id)
	}

	s.mu.RLock()
	matched := s.board[id-1].IsMatched
	detail, hasDetail := s.details[id]
	s.mu.RUnlock()

	ex := Explanation{
		ID:       t.ID,
		Label:    t.Label,
		Keywords: t.Keywords,
		Matched:  matched,
		Special:  t.Special(),
		Evidence: []string{},
	}
	switch {
	case t.Special():
		ex.Motivation = specialDescription
	case hasDetail:
		ex.Motivation = detail.Motivation
		ex.Evidence = append(ex.Evidence, detail.Evidence...)
	}
	return ex, nil
}

// Reset restores the baseline board.
func (s *Service) Reset(ctx context.Context) Snapshot {
	s.mu.Lock()
	s.board = tile.NewBoard()
	s.details = map[int]classify.MatchedItem{}
	s.mu.Unlock()

	metrics.UpdateMatchedTiles(1)
	s.log().Info(ctx, "board reset")
	return s.Board(ctx)
}

// Limits returns the current rate limit status.
func (s *Service) Limits(_ context.Context) ratelimit.Status {
	return s.limiter.Status()
}

// SaveVersion stores a named snapshot of the editor content.
func (s *Service) SaveVersion(ctx context.Context, name, content, plainText string) (repository.Version, error) {
	v, err := s.versions.Save(ctx, name, content, plainText)
	if err != nil {
		s.logStorageError(ctx, "save", err)
		return repository.Version{}, err
	}
	s.log().Info(ctx, "version saved", logger.String("id", v.ID), logger.String("name", v.Name))
	return v, nil
}

// ListVersions returns saved versions, newest first.
func (s *Service) ListVersions(ctx context.Context) ([]repository.Version, error) {
	list, err := s.versions.List(ctx)
	if err != nil {
		s.logStorageError(ctx, "list", err)
		return nil, err
	}
	return list, nil
}

// GetVersion returns one saved version.
func (s *Service) GetVersion(ctx context.Context, id string) (repository.Version, error) {
	v, err := s.versions.Get(ctx, id)
	if err != nil {
		s.logStorageError(ctx, "get", err)
		return repository.Version{}, err
	}
	return v, nil
}

// DeleteVersion removes a saved version. Unknown ids are not an error.
func (s *Service) DeleteVersion(ctx context.Context, id string) error {
	if err := s.versions.Delete(ctx, id); err != nil {
		s.logStorageError(ctx, "delete", err)
		return err
	}
	s.log().Info(ctx, "version deleted", logger.String("id", id))
	return nil
}

func (s *Service) logStorageError(ctx context.Context, op string, err error) {
	if !errors.Is(err, repository.ErrStorage) {
		return
	}
	metrics.RecordErrorByComponent("repository", op)
	s.log().Error(ctx, "version storage failed", logger.String("op", op), logger.Error(err))
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.limiter.Status()
	return map[string]any{
		"started":            s.started,
		"classifierEnabled":  s.classifier != nil,
		"submissions":        s.submissions,
		"bingos":             s.bingos,
		"parseErrors":        s.parseErrors,
		"matchedTiles":       len(s.board.MatchedIDs()),
		"rateLimitLimit":     st.Limit,
		"rateLimitRemaining": st.Remaining,
	}
}
