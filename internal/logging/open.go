package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendZap    = "zap"
	BackendLogrus = "logrus"
)

// Options select a backend and destination.
type Options struct {
	Backend string // zap (default) or logrus
	Level   string // debug, info, warn, error; default info
	Path    string // log file; empty writes to Stderr
	Stderr  io.Writer
}

// Open builds a Logger for opts. The returned close func flushes the backend
// and closes the log file, if one was opened.
func Open(opts Options) (Logger, func() error, error) {
	level := strings.TrimSpace(opts.Level)
	if level == "" {
		level = "info"
	}

	var w io.Writer = opts.Stderr
	if w == nil {
		w = os.Stderr
	}
	closeFile := func() error { return nil }
	if path := strings.TrimSpace(opts.Path); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFile = f.Close
	}

	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendZap:
		z, err := newZap(w, level)
		if err != nil {
			_ = closeFile()
			return nil, nil, err
		}
		return z, func() error {
			_ = z.L.Sync()
			return closeFile()
		}, nil
	case BackendLogrus:
		l, err := newLogrus(w, level)
		if err != nil {
			_ = closeFile()
			return nil, nil, err
		}
		return l, closeFile, nil
	default:
		_ = closeFile()
		return nil, nil, fmt.Errorf("unknown log backend %q", opts.Backend)
	}
}
