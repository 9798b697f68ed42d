package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/samber/oops"
)

const (
	DefaultMaxLogBytes   = 10 << 20
	DefaultMaxLogBackups = 5
)

// RotatingFile is an io.WriteCloser for slog handlers. Once the file would
// grow past MaxBytes it is renamed to path.1 (shifting older backups up to
// path.N) and a fresh file is opened.
type RotatingFile struct {
	mu         sync.Mutex
	path       string
	maxBytes   int64
	maxBackups int
	f          *os.File
	written    int64
}

func OpenRotatingFile(path string, maxBytes int64, maxBackups int) (*RotatingFile, error) {
	if path == "" {
		return nil, oops.Code("LOG_FILE_INVALID").Errorf("log path is required")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxLogBytes
	}
	if maxBackups < 0 {
		maxBackups = 0
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, oops.Code("LOG_FILE_INVALID").With("path", path).Wrap(err)
	}

	rf := &RotatingFile{path: path, maxBytes: maxBytes, maxBackups: maxBackups}
	if err := rf.open(os.O_APPEND); err != nil {
		return nil, err
	}
	if rf.written > rf.maxBytes {
		if err := rf.rotate(); err != nil {
			return nil, err
		}
	}
	return rf, nil
}

func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.f == nil {
		return 0, os.ErrClosed
	}
	// A single record larger than maxBytes still goes into an empty file.
	if rf.written > 0 && rf.written+int64(len(p)) > rf.maxBytes {
		if err := rf.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := rf.f.Write(p)
	rf.written += int64(n)
	return n, err
}

func (rf *RotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.f == nil {
		return nil
	}
	err := rf.f.Close()
	rf.f = nil
	return err
}

func (rf *RotatingFile) open(mode int) error {
	f, err := os.OpenFile(rf.path, os.O_CREATE|os.O_WRONLY|mode, 0o644)
	if err != nil {
		return oops.Code("LOG_FILE_OPEN_FAILED").With("path", rf.path).Wrap(err)
	}
	rf.f = f
	rf.written = 0
	if info, err := f.Stat(); err == nil {
		rf.written = info.Size()
	}
	return nil
}

// rotate must be called with mu held.
func (rf *RotatingFile) rotate() error {
	if rf.f != nil {
		if err := rf.f.Close(); err != nil {
			return err
		}
		rf.f = nil
	}

	if rf.maxBackups == 0 {
		if err := os.Remove(rf.path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return rf.open(os.O_TRUNC)
	}

	for i := rf.maxBackups; i >= 1; i-- {
		src := rf.path
		if i > 1 {
			src = rf.backup(i - 1)
		}
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		if err := os.Rename(src, rf.backup(i)); err != nil {
			return err
		}
	}
	return rf.open(os.O_TRUNC)
}

func (rf *RotatingFile) backup(n int) string {
	return fmt.Sprintf("%s.%d", rf.path, n)
}
