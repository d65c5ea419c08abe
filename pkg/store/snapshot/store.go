package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/de-tools/revenue-atlas/pkg/adapters"
	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/models/store"
	"github.com/rs/zerolog"
)

// ErrNotFound means no snapshot exists for the key.
var ErrNotFound = errors.New("snapshot not found")

// Key identifies one snapshot. An empty category means all categories.
type Key struct {
	Quarter  string
	RunDate  time.Time
	Category string
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName is l1_{quarter}_{run date}_{category|all}.json. Names that had to be
// sanitized get a short hash so distinct categories never share a file.
func (k Key) FileName() string {
	category := "all"
	if k.Category != "" {
		category = sanitize(k.Category)
	}
	return fmt.Sprintf("l1_%s_%s_%s.json", sanitize(k.Quarter), domain.FormatDate(k.RunDate), category)
}

func (k Key) String() string {
	return k.FileName()
}

func sanitize(s string) string {
	clean := unsafeChars.ReplaceAllString(s, "_")
	if clean == s {
		return s
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%s-%08x", clean, h.Sum32())
}

type Store interface {
	Load(ctx context.Context, key Key) (*domain.Report, error)
	Save(ctx context.Context, key Key, report *domain.Report) error
	Delete(ctx context.Context, key Key) error
	Path(key Key) string
}

type fileStore struct {
	dir string
}

// NewStore creates the cache directory if needed.
func NewStore(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &fileStore{dir: dir}, nil
}

func (s *fileStore) Path(key Key) string {
	return filepath.Join(s.dir, key.FileName())
}

func (s *fileStore) Load(_ context.Context, key Key) (*domain.Report, error) {
	data, err := os.ReadFile(s.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", key, err)
	}

	var doc store.Snapshot
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", key, err)
	}
	return adapters.MapSnapshotToReport(&doc)
}

// Save writes to a temporary file in the same directory, syncs it, and renames it
// over the target so readers see either the old file or the complete new one.
func (s *fileStore) Save(ctx context.Context, key Key, report *domain.Report) error {
	logger := zerolog.Ctx(ctx)

	data, err := json.MarshalIndent(adapters.MapReportToSnapshot(report), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".snapshot.*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if _, err := os.Stat(tmpPath); err == nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path(key)); err != nil {
		return fmt.Errorf("failed to publish snapshot %s: %w", key, err)
	}

	if dir, err := os.Open(s.dir); err == nil {
		if err := dir.Sync(); err != nil {
			logger.Debug().Err(err).Msg("snapshot directory sync failed")
		}
		_ = dir.Close()
	}

	logger.Info().Str("path", s.Path(key)).Int("bytes", len(data)).Msg("snapshot stored")
	return nil
}

func (s *fileStore) Delete(_ context.Context, key Key) error {
	err := os.Remove(s.Path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete snapshot %s: %w", key, err)
	}
	return nil
}
