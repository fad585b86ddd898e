// Package filestore persists session results as files:
//
//	<dir>/discussions/<key>.json                    full result record
//	<dir>/full_summaries/summary_<ts>_<id>_<topic>.txt   human readable summary
//
// Files are written to a temporary name and renamed into place.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/internal/util"
	"github.com/hupe1980/roundtable/logging"
	"github.com/hupe1980/roundtable/report"
	"github.com/hupe1980/roundtable/store"
)

// Directory names below the store root.
const (
	DiscussionsDir = "discussions"
	SummariesDir   = "full_summaries"
)

// Compile-time check.
var _ core.ResultStore = (*Store)(nil)

// Options configures a Store.
type Options struct {
	// WriteSummary enables the summary text file next to each record.
	WriteSummary bool
	Logger       logging.Logger
}

// Store is a file-backed ResultStore.
type Store struct {
	dir  string
	opts Options
	mu   sync.Mutex
}

// New creates the directory layout under dir.
func New(dir string, optFns ...func(o *Options)) (*Store, error) {
	opts := Options{WriteSummary: true, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	for _, d := range []string{DiscussionsDir, SummariesDir} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return nil, fmt.Errorf("create results directory: %w", err)
		}
	}
	return &Store{dir: dir, opts: opts}, nil
}

// Save writes the JSON record and, when enabled, the summary text file.
func (s *Store) Save(ctx context.Context, result *core.SessionResult) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r, err := store.Prepare(result)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result %q: %w", r.Key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeAtomic(s.recordPath(r.Key), data); err != nil {
		return "", err
	}
	if s.opts.WriteSummary {
		if err := writeAtomic(s.SummaryPath(r), []byte(report.SummaryDocument(r))); err != nil {
			return "", err
		}
	}

	s.opts.Logger.Debug("result saved", "key", r.Key, "dir", s.dir)
	return r.Key, nil
}

// Get reads a stored record.
func (s *Store) Get(ctx context.Context, key string) (*core.SessionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if key == "" || strings.ContainsAny(key, `/\`) {
		return nil, fmt.Errorf("result %q: %w", key, core.ErrNotFound)
	}
	return s.read(s.recordPath(key))
}

// List reads every record, newest first. Unreadable files are skipped and
// logged.
func (s *Store) List(ctx context.Context) ([]*core.SessionResult, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, DiscussionsDir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	out := make([]*core.SessionResult, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := s.read(p)
		if err != nil {
			s.opts.Logger.Warn("skipping unreadable result", "path", p, "error", err)
			continue
		}
		out = append(out, r)
	}

	store.SortNewestFirst(out)
	return out, nil
}

// Delete removes a record and its summary file.
func (s *Store) Delete(ctx context.Context, key string) error {
	r, err := s.Get(ctx, key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.recordPath(key)); err != nil {
		return fmt.Errorf("delete result %q: %w", key, err)
	}
	if err := os.Remove(s.SummaryPath(r)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete summary of %q: %w", key, err)
	}
	return nil
}

// SummaryPath returns the summary text file of r. The name carries the
// record key, so each record owns exactly one summary file.
func (s *Store) SummaryPath(r *core.SessionResult) string {
	key := r.Key
	if key == "" {
		key = core.ResultKey(r.FinishedAt, r.ID)
	}
	name := fmt.Sprintf("summary_%s_%s.txt", strings.TrimPrefix(key, core.ResultKeyPrefix), util.SafeName(r.Topic, 50))
	return filepath.Join(s.dir, SummariesDir, name)
}

func (s *Store) recordPath(key string) string {
	return filepath.Join(s.dir, DiscussionsDir, key+".json")
}

func (s *Store) read(path string) (*core.SessionResult, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("result %q: %w", strings.TrimSuffix(filepath.Base(path), ".json"), core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read result: %w", err)
	}

	var r core.SessionResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return &r, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
