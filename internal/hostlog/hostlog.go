// Package hostlog provides per-host command-output log sinks: one daily
// log file per host, opened when Open is called and wrapped as an hclog.Logger so the
// execution engine can hand each worker a named sink without knowing
// anything about the filesystem layout underneath it.
package hostlog

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

// DefaultSubdir is appended under the base logs directory.
const DefaultSubdir = "logs"

// DefaultDayFormat controls the log filename date format.
const DefaultDayFormat = "2006-01-02"

// Options controls where per-host log files are created.
type Options struct {
	// BaseDir overrides the base logs directory. If empty, defaults to
	// $XDG_CONFIG_HOME/mussh/logs, or ~/.config/mussh/logs.
	BaseDir string

	// FilePerm is the permission mode used when creating a new log file.
	// Defaults to 0600.
	FilePerm os.FileMode

	// DirPerm is the permission mode used when creating parent
	// directories. Defaults to 0700.
	DirPerm os.FileMode
}

// DefaultOptions returns conservative defaults.
func DefaultOptions() Options {
	return Options{FilePerm: 0o600, DirPerm: 0o700}
}

// baseDir resolves the base logs directory according to opts and XDG
// rules.
func (o Options) baseDir() (string, error) {
	if strings.TrimSpace(o.BaseDir) != "" {
		return o.BaseDir, nil
	}
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "mussh", DefaultSubdir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "mussh", DefaultSubdir), nil
}

// PathFor returns today's log file path for hostKey, creating parent
// directories as needed.
func PathFor(hostKey string, opts Options, now time.Time) (string, error) {
	base, err := opts.baseDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, sanitize(hostKey))
	dirPerm := opts.DirPerm
	if dirPerm == 0 {
		dirPerm = 0o700
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", err
	}
	return filepath.Join(dir, now.Format(DefaultDayFormat)+".log"), nil
}

// Open returns an hclog.Logger named hostKey that appends to hostKey's
// daily log file. The returned closer must be closed by the caller when
// the worker finishes.
func Open(hostKey string, opts Options, now time.Time) (hclog.Logger, *os.File, error) {
	path, err := PathFor(hostKey, opts, now)
	if err != nil {
		return nil, nil, err
	}
	perm := opts.FilePerm
	if perm == 0 {
		perm = 0o600
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, perm)
	if err != nil {
		return nil, nil, err
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   hostKey,
		Output: f,
		Level:  hclog.Trace,
	})
	return logger, f, nil
}

// sanitize makes hostKey safe to use as a single filesystem path segment.
func sanitize(hostKey string) string {
	var b strings.Builder
	for _, r := range hostKey {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
