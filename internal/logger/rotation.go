package logger

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

const rotateStamp = "20060102-150405"

// rotatedName matches "<base>.<stamp>", "<base>.<stamp>.<n>" and their .gz forms
var rotatedName = regexp.MustCompile(`^\.\d{8}-\d{6}(\.\d+)?(\.gz)?$`)

// rotatingFile is the log sink used when logging.max_size is set. Before a
// write would push the live file past limit, the file is renamed to
// <path>.<stamp> and a fresh one is opened. Rotated files older than maxAge
// days are pruned on open and after each rotation.
type rotatingFile struct {
	path     string
	limit    int64
	maxAge   int
	compress bool
	now      func() time.Time

	mu   sync.Mutex
	f    *os.File
	size int64

	// background gzip and prune work, waited on by Close
	bg sync.WaitGroup
}

func openRotatingFile(path string, limit int64, maxAge int, compress bool) (*rotatingFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rf := &rotatingFile{
		path:     path,
		limit:    limit,
		maxAge:   maxAge,
		compress: compress,
		now:      time.Now,
	}
	if err := rf.open(); err != nil {
		return nil, err
	}

	rf.bg.Add(1)
	go func() {
		defer rf.bg.Done()
		rf.prune()
	}()

	return rf, nil
}

func (rf *rotatingFile) open() error {
	f, err := os.OpenFile(rf.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	rf.f = f
	rf.size = info.Size()
	return nil
}

// Write appends one log record. A record larger than limit still lands in a
// file of its own rather than rotating an empty file.
func (rf *rotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.f == nil {
		return 0, os.ErrClosed
	}
	if rf.size > 0 && rf.size+int64(len(p)) > rf.limit {
		if err := rf.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := rf.f.Write(p)
	rf.size += int64(n)
	return n, err
}

// rotate moves the live file aside. Caller holds rf.mu.
func (rf *rotatingFile) rotate() error {
	if err := rf.f.Close(); err != nil {
		return err
	}
	rf.f = nil

	target := rf.path + "." + rf.now().Format(rotateStamp)
	for i := 1; exists(target) || exists(target+".gz"); i++ {
		target = fmt.Sprintf("%s.%s.%d", rf.path, rf.now().Format(rotateStamp), i)
	}
	if err := os.Rename(rf.path, target); err != nil {
		if oerr := rf.open(); oerr != nil {
			return oerr
		}
		return err
	}
	if err := rf.open(); err != nil {
		return err
	}

	rf.bg.Add(1)
	go func() {
		defer rf.bg.Done()
		if rf.compress {
			_ = gzipFile(target)
		}
		rf.prune()
	}()
	return nil
}

// Close closes the live file and waits for background gzip and prune work
func (rf *rotatingFile) Close() error {
	rf.mu.Lock()
	var err error
	if rf.f != nil {
		err = rf.f.Close()
		rf.f = nil
	}
	rf.mu.Unlock()

	rf.bg.Wait()
	return err
}

// prune removes rotated files older than maxAge days. Unrelated files that
// share the prefix are left alone.
func (rf *rotatingFile) prune() {
	if rf.maxAge <= 0 {
		return
	}

	base := filepath.Base(rf.path)
	entries, err := os.ReadDir(filepath.Dir(rf.path))
	if err != nil {
		return
	}

	cutoff := rf.now().AddDate(0, 0, -rf.maxAge)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, base) || !rotatedName.MatchString(name[len(base):]) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		_ = os.Remove(filepath.Join(filepath.Dir(rf.path), name))
	}
}

// gzipFile replaces path with path.gz
func gzipFile(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}

	gzw := gzip.NewWriter(dst)
	if _, err := io.Copy(gzw, src); err != nil {
		gzw.Close()
		dst.Close()
		os.Remove(path + ".gz")
		return err
	}
	if err := gzw.Close(); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}
	return os.Remove(path)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
