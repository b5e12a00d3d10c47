// Package logging routes the stdlib logger to stdout and a
// size-capped file so long daemon runs do not fill the disk.
package logging

import (
	"io"
	"log"
	"os"
	"sync"
)

const defaultMaxSize = 5 * 1024 * 1024 // 5MB

// RotatingWriter appends to a log file and swaps it out for a fresh
// one once it grows past maxSize. One previous generation is kept as
// <path>.old.
type RotatingWriter struct {
	mu      sync.Mutex
	file    *os.File
	path    string
	size    int64
	maxSize int64
}

// Setup opens the log file at logPath and points the stdlib logger at
// both it and stdout. The returned writer should be closed on exit.
func Setup(logPath string) (*RotatingWriter, error) {
	rw := &RotatingWriter{path: logPath, maxSize: defaultMaxSize}
	if err := rw.open(); err != nil {
		return nil, err
	}
	if rw.size > rw.maxSize {
		rw.rotate()
	}

	log.SetOutput(io.MultiWriter(os.Stdout, rw))
	return rw, nil
}

func (w *RotatingWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	w.file = f
	if info, err := f.Stat(); err == nil {
		w.size = info.Size()
	}
	return nil
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	w.size += int64(n)
	if w.size > w.maxSize {
		w.rotate()
	}
	return n, err
}

// rotate closes the current file, shifts it to the .old slot and
// starts a new one. A failed reopen leaves writes going nowhere until
// the process restarts, which the daemon tolerates.
func (w *RotatingWriter) rotate() {
	w.file.Close()
	os.Rename(w.path, w.path+".old")

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return
	}
	w.file = f
	w.size = 0
}

func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
