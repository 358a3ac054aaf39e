package repository

import "time"

// Option applies a configuration option to the VersionStore.
type Option func(*VersionStore)

// WithMaxVersions caps how many versions are kept.
func WithMaxVersions(n int) Option {
	return func(s *VersionStore) {
		if n > 0 {
			s.maxVersions = n
		}
	}
}

// WithKey overrides the storage key the list is written under.
func WithKey(key string) Option {
	return func(s *VersionStore) {
		if key != "" {
			s.key = key
		}
	}
}

// WithClock replaces the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *VersionStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *VersionStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}
