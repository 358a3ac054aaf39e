// Package repository persists saved editor versions in a key-value backend.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/okian/bingo/pkg/metrics"
)

// Store defaults.
const (
	DefaultKey         = "editor-versions"
	DefaultMaxVersions = 50
	previewRunes       = 100
)

// Version is a named snapshot of the editor content.
type Version struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
	PlainText string `json:"plainText,omitempty"`
}

// Preview returns the first line of the plain text, cut at 100 runes.
func (v Version) Preview() string {
	line := v.PlainText
	if line == "" {
		line = v.Content
	}
	line = strings.TrimSpace(line)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	if utf8.RuneCountInString(line) <= previewRunes {
		return line
	}
	return string([]rune(line)[:previewRunes]) + "…"
}

// KV is the byte-level backend the store writes through.
type KV interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// VersionStore keeps the newest-first version list under a single key.
type VersionStore struct {
	mu          sync.Mutex
	kv          KV
	key         string
	maxVersions int
	now         func() time.Time
	newID       func() string
}

// NewVersionStore creates a store over kv.
func NewVersionStore(kv KV, opts ...Option) *VersionStore {
	s := &VersionStore{
		kv:          kv,
		key:         DefaultKey,
		maxVersions: DefaultMaxVersions,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save prepends a new version and evicts the oldest beyond the cap.
func (s *VersionStore) Save(ctx context.Context, name, content, plainText string) (Version, error) {
	start := time.Now()
	defer observe("save", start)

	name = strings.TrimSpace(name)
	if name == "" {
		return Version{}, ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return Version{}, err
	}

	v := Version{
		ID:        s.newID(),
		Name:      name,
		Content:   content,
		Timestamp: s.now().UnixMilli(),
		PlainText: plainText,
	}
	list = append([]Version{v}, list...)
	if len(list) > s.maxVersions {
		list = list[:s.maxVersions]
	}

	if err := s.store(ctx, list); err != nil {
		return Version{}, err
	}
	metrics.RecordVersionSaved()
	metrics.UpdateVersionsTotal(len(list))
	return v, nil
}

// List returns all versions, newest first.
func (s *VersionStore) List(ctx context.Context) ([]Version, error) {
	start := time.Now()
	defer observe("list", start)

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	metrics.UpdateVersionsTotal(len(list))
	return list, nil
}

// Get returns the version with id or ErrNotFound.
func (s *VersionStore) Get(ctx context.Context, id string) (Version, error) {
	start := time.Now()
	defer observe("get", start)

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return Version{}, err
	}
	for _, v := range list {
		if v.ID == id {
			return v, nil
		}
	}
	metrics.RecordErrorByComponent("repository", "not_found")
	return Version{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Delete removes the version with id. Unknown ids are not an error.
func (s *VersionStore) Delete(ctx context.Context, id string) error {
	start := time.Now()
	defer observe("delete", start)

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, v := range list {
		if v.ID != id {
			kept = append(kept, v)
		}
	}
	if len(kept) == len(list) {
		return nil
	}
	if err := s.store(ctx, kept); err != nil {
		return err
	}
	metrics.RecordVersionDeleted()
	metrics.UpdateVersionsTotal(len(kept))
	return nil
}

// Count returns the number of stored versions.
func (s *VersionStore) Count(ctx context.Context) (int, error) {
	list, err := s.List(ctx)
	return len(list), err
}

func (s *VersionStore) load(ctx context.Context) ([]Version, error) {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		metrics.RecordStorageError("get")
		return nil, fmt.Errorf("%w: read %s: %w", ErrStorage, s.key, err)
	}
	if !ok || len(raw) == 0 {
		return []Version{}, nil
	}
	var list []Version
	if err := json.Unmarshal(raw, &list); err != nil {
		metrics.RecordStorageError("decode")
		return nil, fmt.Errorf("%w: decode %s: %w", ErrStorage, s.key, err)
	}
	if list == nil {
		list = []Version{}
	}
	return list, nil
}

func (s *VersionStore) store(ctx context.Context, list []Version) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrStorage, err)
	}
	if err := s.kv.Set(ctx, s.key, raw); err != nil {
		metrics.RecordStorageError("set")
		return fmt.Errorf("%w: write %s: %w", ErrStorage, s.key, err)
	}
	return nil
}

func observe(op string, start time.Time) {
	metrics.RecordRepositoryLatency(op, float64(time.Since(start).Microseconds())/1000)
}
