// Package spool stores files uploaded by the ERP in chunks until they are
// imported. All paths are relative to the exchange directory.
package spool

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/erp/exchange/internal/domain/exchange"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Option configures a Spool
type Option func(*Spool)

// WithLogger sets the logger for the spool
func WithLogger(logger *zap.Logger) Option {
	return func(s *Spool) {
		s.logger = logger
	}
}

// Spool is an append-only file area on an afero filesystem.
type Spool struct {
	fs     afero.Fs
	logger *zap.Logger
}

// Ensure Spool implements exchange.Spool
var _ exchange.Spool = (*Spool)(nil)

// New creates a spool over fs. fs is treated as rooted at the exchange
// directory.
func New(fs afero.Fs, opts ...Option) *Spool {
	s := &Spool{
		fs:     fs,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewOnDisk creates a spool rooted at dir on the OS filesystem.
func NewOnDisk(dir string, opts ...Option) (*Spool, error) {
	if dir == "" {
		return nil, errors.New("spool: directory is required")
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("spool: create directory: %w", err)
	}
	return New(afero.NewBasePathFs(afero.NewOsFs(), dir), opts...), nil
}

// Append adds the bytes of r to the end of the file, creating it and its
// parent directories as needed.
func (s *Spool) Append(name string, r io.Reader) (int64, error) {
	p, err := cleanPath(name)
	if err != nil {
		return 0, err
	}
	if err := s.fs.MkdirAll(path.Dir(p), dirPerm); err != nil {
		return 0, fmt.Errorf("spool: create directory for %s: %w", name, err)
	}

	f, err := s.fs.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePerm)
	if err != nil {
		return 0, fmt.Errorf("spool: open %s: %w", name, err)
	}
	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil {
		return n, fmt.Errorf("spool: write %s: %w", name, copyErr)
	}
	if closeErr != nil {
		return n, fmt.Errorf("spool: close %s: %w", name, closeErr)
	}

	s.logger.Debug("Chunk appended", zap.String("file", p), zap.Int64("bytes", n))
	return n, nil
}

// ReadFile returns the whole content of the file.
func (s *Spool) ReadFile(name string) ([]byte, error) {
	p, err := s.existing(name)
	if err != nil {
		return nil, err
	}
	return afero.ReadFile(s.fs, p)
}

// Open opens the file for reading.
func (s *Spool) Open(name string) (io.ReadCloser, error) {
	p, err := s.existing(name)
	if err != nil {
		return nil, err
	}
	return s.fs.Open(p)
}

// Exists reports whether a regular file exists at name.
func (s *Spool) Exists(name string) bool {
	p, err := cleanPath(name)
	if err != nil {
		return false
	}
	info, err := s.fs.Stat(p)
	return err == nil && !info.IsDir()
}

// Head returns up to n leading bytes of the file.
func (s *Spool) Head(name string, n int) ([]byte, error) {
	f, err := s.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("spool: read %s: %w", name, err)
	}
	return buf[:read], nil
}

// Remove deletes the file. Removing a missing file is not an error.
func (s *Spool) Remove(name string) error {
	p, err := cleanPath(name)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("spool: remove %s: %w", name, err)
	}
	return nil
}

// CleanupOlderThan removes files whose modification time is more than age
// before now, in every subdirectory. Directories are kept.
func (s *Spool) CleanupOlderThan(age time.Duration, now time.Time) (int, error) {
	removed := 0
	err := afero.Walk(s.fs, "/", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if info.IsDir() || now.Sub(info.ModTime()) <= age {
			return nil
		}
		if err := s.fs.Remove(p); err != nil {
			s.logger.Warn("Failed to remove stale exchange file", zap.String("file", p), zap.Error(err))
			return nil
		}
		removed++
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("spool: cleanup: %w", err)
	}
	if removed > 0 {
		s.logger.Info("Stale exchange files removed", zap.Int("count", removed), zap.Duration("older_than", age))
	}
	return removed, nil
}

func (s *Spool) existing(name string) (string, error) {
	p, err := cleanPath(name)
	if err != nil {
		return "", err
	}
	info, err := s.fs.Stat(p)
	if err != nil || info.IsDir() {
		return "", exchange.ErrFileNotFound.WithDetail("%s", name)
	}
	return p, nil
}

// cleanPath turns a client supplied relative path into a rooted spool path,
// rejecting anything that would leave the exchange directory.
func cleanPath(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return "", exchange.ErrFilenameRequired
	}
	if strings.HasPrefix(name, "/") {
		return "", exchange.ErrUnsafePath.WithDetail("%s", name)
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			return "", exchange.ErrUnsafePath.WithDetail("%s", name)
		}
	}
	p := path.Clean("/" + name)
	if p == "/" {
		return "", exchange.ErrFilenameRequired
	}
	return p, nil
}
