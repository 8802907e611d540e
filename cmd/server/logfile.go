package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rpggio/parkline/internal/config"
)

const megabyte = 1024 * 1024

// rotatingLog is an append-only log file that drops its oldest bytes once it
// passes maxBytes, keeping the newest keepBytes.
type rotatingLog struct {
	mu        sync.Mutex
	file      *os.File
	maxBytes  int64
	keepBytes int64
}

func openLogFile(cfg config.LogConfig) (*rotatingLog, error) {
	return newRotatingLog(cfg.Path, int64(cfg.MaxSizeMB)*megabyte, int64(cfg.KeepSizeMB)*megabyte)
}

func newRotatingLog(path string, maxBytes, keepBytes int64) (*rotatingLog, error) {
	if keepBytes <= 0 || keepBytes >= maxBytes {
		return nil, fmt.Errorf("log file %s: keep size %d must be below max size %d", path, keepBytes, maxBytes)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	l := &rotatingLog{file: file, maxBytes: maxBytes, keepBytes: keepBytes}
	if err := l.trim(); err != nil {
		_ = file.Close()
		return nil, err
	}
	return l, nil
}

func (l *rotatingLog) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, err := l.file.Write(p)
	if err != nil {
		return n, err
	}
	return n, l.trim()
}

func (l *rotatingLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// trim must be called with mu held.
func (l *rotatingLog) trim() error {
	info, err := l.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size <= l.maxBytes {
		return nil
	}

	tail := make([]byte, l.keepBytes)
	n, err := l.file.ReadAt(tail, size-l.keepBytes)
	if err != nil && err != io.EOF {
		return err
	}
	if err := l.file.Truncate(0); err != nil {
		return err
	}
	// O_APPEND writes land at the new end after truncation.
	_, err = l.file.Write(tail[:n])
	return err
}
