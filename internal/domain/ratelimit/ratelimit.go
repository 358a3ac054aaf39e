// Package ratelimit bounds outbound classification calls with a sliding
// window over the timestamps of recently dispatched requests.
package ratelimit

import (
	"sort"
	"sync"
	"time"
)

// Default limits: five requests in any trailing minute.
const (
	DefaultMaxRequests = 5
	DefaultWindow      = 60 * time.Second
)

// Clock returns the current time.
type Clock func() time.Time

// Option applies a configuration option to the Limiter.
type Option func(*Limiter)

// WithMaxRequests sets how many requests fit in one window.
func WithMaxRequests(n int) Option {
	return func(l *Limiter) {
		if n > 0 {
			l.maxRequests = n
		}
	}
}

// WithWindow sets the trailing window length.
func WithWindow(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.window = d
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(c Clock) Option {
	return func(l *Limiter) {
		if c != nil {
			l.now = c
		}
	}
}

// Status is a point-in-time view of the limiter.
type Status struct {
	Limit      int           `json:"limit"`
	Window     time.Duration `json:"-"`
	WindowMS   int64         `json:"window_ms"`
	Remaining  int           `json:"remaining"`
	RetryAfter time.Duration `json:"-"`
	RetryMS    int64         `json:"retry_after_ms"`
}

// Limiter tracks dispatched request timestamps, oldest first.
//
// CanMakeRequest followed by LogRequest is two separate critical sections;
// callers that dispatch concurrently must use TryAcquire, which checks and
// reserves a slot in one.
type Limiter struct {
	mu          sync.Mutex
	log         []time.Time
	maxRequests int
	window      time.Duration
	now         Clock
}

// New creates a Limiter with the default five-per-minute policy.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		maxRequests: DefaultMaxRequests,
		window:      DefaultWindow,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = make([]time.Time, 0, l.maxRequests)
	return l
}

// CanMakeRequest reports whether another request fits in the window.
func (l *Limiter) CanMakeRequest() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.now())
	return len(l.log) < l.maxRequests
}

// LogRequest records a dispatched request. Call it only after the request
// has actually gone out.
func (l *Limiter) LogRequest() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.log = append(l.log, l.now())
}

// TryAcquire reserves a slot for a request about to be dispatched. It
// reports false without reserving when the window is full. On success the
// caller must call exactly one of commit, after the request went out, or
// cancel, when it failed and must not count. Both are safe to call more
// than once; only the first call has an effect.
func (l *Limiter) TryAcquire() (commit, cancel func(), ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)
	if len(l.log) >= l.maxRequests {
		return nil, nil, false
	}
	l.log = append(l.log, now)

	var once sync.Once
	commit = func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			// the request counts from when it completed, like LogRequest
			l.remove(now)
			l.insert(l.now())
		})
	}
	cancel = func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.remove(now)
		})
	}
	return commit, cancel, true
}

// remove drops one entry equal to t, if still present. Must be called with
// l.mu held.
func (l *Limiter) remove(t time.Time) {
	for i, ts := range l.log {
		if ts.Equal(t) {
			l.log = append(l.log[:i], l.log[i+1:]...)
			return
		}
	}
}

// insert adds t keeping the log ordered. Must be called with l.mu held.
func (l *Limiter) insert(t time.Time) {
	i := sort.Search(len(l.log), func(i int) bool { return l.log[i].After(t) })
	l.log = append(l.log, time.Time{})
	copy(l.log[i+1:], l.log[i:])
	l.log[i] = t
}

// TimeUntilNextRequest returns zero while under the limit, otherwise the
// time until the oldest logged request leaves the window.
func (l *Limiter) TimeUntilNextRequest() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.retryAfter(l.now())
}

// RemainingRequests returns how many requests may still be sent in the
// current window.
func (l *Limiter) RemainingRequests() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.now())
	return l.remaining()
}

// Status returns limit, remaining budget and retry delay in one consistent read.
func (l *Limiter) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	retry := l.retryAfter(now)
	return Status{
		Limit:      l.maxRequests,
		Window:     l.window,
		WindowMS:   l.window.Milliseconds(),
		Remaining:  l.remaining(),
		RetryAfter: retry,
		RetryMS:    retry.Milliseconds(),
	}
}

// retryAfter must be called with l.mu held.
func (l *Limiter) retryAfter(now time.Time) time.Duration {
	l.prune(now)
	if len(l.log) < l.maxRequests {
		return 0
	}
	return l.window - now.Sub(l.log[0])
}

// remaining must be called with l.mu held, after prune.
func (l *Limiter) remaining() int {
	if n := l.maxRequests - len(l.log); n > 0 {
		return n
	}
	return 0
}

// prune drops entries that are no longer strictly inside the window.
// Must be called with l.mu held.
func (l *Limiter) prune(now time.Time) {
	keep := 0
	for keep < len(l.log) && now.Sub(l.log[keep]) >= l.window {
		keep++
	}
	if keep == 0 {
		return
	}
	l.log = append(l.log[:0], l.log[keep:]...)
}
