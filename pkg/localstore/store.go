package localstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"github.com/openfroyo/agentcore/pkg/engine"
	"github.com/openfroyo/agentcore/pkg/model"
	"github.com/openfroyo/agentcore/pkg/validate"
)

// Defaults for Config.
const (
	DefaultPath        = ".agentcore/config.yaml"
	DefaultLockTimeout = 5 * time.Second
	DefaultRetryDelay  = 50 * time.Millisecond
)

// Config holds local store configuration.
type Config struct {
	// Path is the document file. The lock file is Path + ".lock".
	Path string

	// LockTimeout bounds how long an operation waits for the lock.
	LockTimeout time.Duration

	// RetryDelay is the interval between lock attempts.
	RetryDelay time.Duration
}

// DefaultConfig returns the default local store configuration.
func DefaultConfig() Config {
	return Config{
		Path:        DefaultPath,
		LockTimeout: DefaultLockTimeout,
		RetryDelay:  DefaultRetryDelay,
	}
}

// Commit describes the result of a successful write.
type Commit struct {
	// Document is the committed document. Callers must not modify it.
	Document *model.Document

	// Warnings are the soft findings of the commit-time validation.
	Warnings []engine.Violation

	// Changed is false when the document was already identical on disk.
	Changed bool
}

// Store persists the document as a single file. Every read-modify-write cycle
// runs under an exclusive file lock, and writes go through a temp file and a
// rename so the file is never observed half written.
type Store struct {
	path        string
	lockPath    string
	format      model.Format
	lockTimeout time.Duration
	retryDelay  time.Duration
	validator   *validate.Validator
	schema      *validate.Schema
	logger      zerolog.Logger
}

// New creates a store. The schema may be nil.
func New(cfg Config, v *validate.Validator, schema *validate.Schema, logger zerolog.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("local store path is required")
	}
	if v == nil {
		return nil, fmt.Errorf("validator is required")
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = DefaultLockTimeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	return &Store{
		path:        cfg.Path,
		lockPath:    cfg.Path + ".lock",
		format:      model.FormatFromPath(cfg.Path),
		lockTimeout: cfg.LockTimeout,
		retryDelay:  cfg.RetryDelay,
		validator:   v,
		schema:      schema,
		logger:      logger.With().Str("component", "localstore").Str("path", cfg.Path).Logger(),
	}, nil
}

// Path returns the document file path.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether the document file exists.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads and validates the document under a shared lock. A missing file
// yields an empty document. When the document is invalid it is returned
// together with the validation error so callers can still inspect it.
func (s *Store) Load(ctx context.Context) (*model.Document, *validate.Result, error) {
	fl, err := s.lock(ctx, true)
	if err != nil {
		return nil, nil, err
	}
	defer s.unlock(fl)

	doc, err := s.read()
	if err != nil {
		return nil, nil, err
	}
	res := s.check(doc)
	return doc, res, res.Err()
}

// Mutate applies fn to a copy of the current document, validates the result
// and writes it. If fn or validation fails nothing is written. The lock is held
// while fn runs, so fn may perform remote I/O that must not interleave with
// another writer.
func (s *Store) Mutate(ctx context.Context, fn func(doc *model.Document) error) (*Commit, error) {
	return s.update(ctx, true, func(base *model.Document) (*model.Document, error) {
		working := base.Clone()
		if err := fn(working); err != nil {
			return nil, err
		}
		return working, nil
	})
}

// Replace installs doc as the whole document. The current file does not need
// to be valid, which lets a pull repair a broken local copy.
func (s *Store) Replace(ctx context.Context, doc *model.Document) (*Commit, error) {
	return s.update(ctx, false, func(*model.Document) (*model.Document, error) {
		return doc.Clone(), nil
	})
}

// Export writes the current document to w.
func (s *Store) Export(ctx context.Context, w io.Writer, format model.Format) error {
	doc, _, err := s.Load(ctx)
	if err != nil {
		return err
	}
	return model.EncodeTo(w, doc, format)
}

// Import replaces the document with one read from r.
func (s *Store) Import(ctx context.Context, r io.Reader, format model.Format) (*Commit, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read import: %w", err)
	}
	doc, err := model.Decode(data, format)
	if err != nil {
		return nil, engine.NewValidationError("import is not a valid document", []engine.Violation{{
			Code:     engine.ErrCodeSchemaViolation,
			Message:  err.Error(),
			Severity: engine.SeverityError,
		}}).WithOperation("import")
	}
	return s.Replace(ctx, doc)
}

func (s *Store) update(ctx context.Context, requireValidBase bool, fn func(base *model.Document) (*model.Document, error)) (*Commit, error) {
	fl, err := s.lock(ctx, false)
	if err != nil {
		return nil, err
	}
	defer s.unlock(fl)

	var base *model.Document
	if requireValidBase {
		base, err = s.read()
		if err != nil {
			return nil, err
		}
		if res := s.check(base); !res.OK() {
			return nil, fmt.Errorf("local configuration %s is invalid: %w", s.path, res.Err())
		}
	}

	next, err := fn(base)
	if err != nil {
		return nil, err
	}
	next.EnsureMaps()

	res := s.check(next)
	if err := res.Err(); err != nil {
		return nil, err
	}

	data, err := model.Encode(next, s.format)
	if err != nil {
		return nil, err
	}
	current, err := os.ReadFile(s.path)
	if err == nil && bytes.Equal(current, data) {
		return &Commit{Document: next, Warnings: res.Warnings}, nil
	}

	if err := writeAtomic(s.path, data); err != nil {
		return nil, err
	}
	s.logger.Debug().Int("bytes", len(data)).Msg("Configuration committed")
	return &Commit{Document: next, Warnings: res.Warnings, Changed: true}, nil
}

func (s *Store) check(doc *model.Document) *validate.Result {
	res := s.validator.Validate(doc)
	if s.schema != nil {
		res.Violations = append(res.Violations, s.schema.Check(doc)...)
	}
	return res
}

func (s *Store) read() (*model.Document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return model.NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	doc, err := model.Decode(data, s.format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	return doc, nil
}

func (s *Store) lock(ctx context.Context, shared bool) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", s.path, err)
	}

	// A fresh Flock per acquisition opens its own descriptor, so two
	// operations in the same process contend like two processes would.
	fl := flock.New(s.lockPath)
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	var (
		ok  bool
		err error
	)
	if shared {
		ok, err = fl.TryRLockContext(lockCtx, s.retryDelay)
	} else {
		ok, err = fl.TryLockContext(lockCtx, s.retryDelay)
	}
	if ok {
		return fl, nil
	}
	if ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, ctx.Err()
	}
	if err == nil || errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn().Dur("timeout", s.lockTimeout).Msg("Timed out waiting for configuration lock")
		return nil, engine.NewLocalStoreBusyError(s.path, err)
	}
	return nil, fmt.Errorf("failed to lock %s: %w", s.lockPath, err)
}

func (s *Store) unlock(fl *flock.Flock) {
	if err := fl.Unlock(); err != nil {
		s.logger.Error().Err(err).Msg("Failed to release configuration lock")
	}
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	committed = true
	return nil
}
