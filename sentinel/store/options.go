package store

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cyberpath-HQ/sentinel/sentinel/types"
)

// BackendKind selects how a store persists documents.
type BackendKind string

const (
	// FileBackend keeps one JSON file per document under the store root.
	FileBackend BackendKind = "file"
	// BoltBackend keeps everything in a single bbolt database file.
	BoltBackend BackendKind = "bolt"
	// MemoryBackend keeps documents in process memory only.
	MemoryBackend BackendKind = "memory"
)

// Options configures a store at open time.
type Options struct {
	// Backend selects the persistence layer. Defaults to FileBackend.
	Backend BackendKind
	// KeepDeleted makes the file backend archive deleted documents under
	// deleted/ instead of removing them.
	KeepDeleted bool
	// DisableWAL turns off the per-collection journal. The memory backend
	// never journals.
	DisableWAL bool
	// Workers sizes the async task pool.
	Workers int
	// Passphrase gates the store. A store created with a passphrase can
	// only be reopened with the same one.
	Passphrase string
	// Logger receives engine logs. Nil discards them.
	Logger *slog.Logger
}

// Option mutates Options.
type Option func(*Options)

// WithBackend selects the persistence backend.
func WithBackend(kind BackendKind) Option {
	return func(o *Options) { o.Backend = kind }
}

// WithKeepDeleted archives deleted documents instead of removing them.
func WithKeepDeleted() Option {
	return func(o *Options) { o.KeepDeleted = true }
}

// WithoutWAL disables the mutation journal.
func WithoutWAL() Option {
	return func(o *Options) { o.DisableWAL = true }
}

// WithWorkers sizes the async worker pool.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithPassphrase gates the store behind a passphrase.
func WithPassphrase(p string) Option {
	return func(o *Options) { o.Passphrase = p }
}

// WithLogger injects the engine logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *Options) { o.Logger = log }
}

func buildOptions(opts []Option) Options {
	o := Options{Backend: FileBackend}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// optionsFile is the YAML shape accepted by LoadOptionsFile.
type optionsFile struct {
	Backend     string `yaml:"backend"`
	KeepDeleted bool   `yaml:"keep_deleted"`
	DisableWAL  bool   `yaml:"disable_wal"`
	Workers     int    `yaml:"workers"`
}

// LoadOptionsFile reads store options from a YAML file. The passphrase and
// logger are never read from disk; combine the result with WithPassphrase
// and WithLogger at the call site.
func LoadOptionsFile(path string) ([]Option, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewError(types.CodeIO, fmt.Sprintf("reading options file %s", path), err)
	}
	var f optionsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, types.NewError(types.CodeInvalidArgument, fmt.Sprintf("parsing options file %s", path), err)
	}
	var opts []Option
	switch f.Backend {
	case "":
	case string(FileBackend), string(BoltBackend), string(MemoryBackend):
		opts = append(opts, WithBackend(BackendKind(f.Backend)))
	default:
		return nil, types.Errorf(types.CodeInvalidArgument, "unknown backend %q in %s", f.Backend, path)
	}
	if f.KeepDeleted {
		opts = append(opts, WithKeepDeleted())
	}
	if f.DisableWAL {
		opts = append(opts, WithoutWAL())
	}
	if f.Workers > 0 {
		opts = append(opts, WithWorkers(f.Workers))
	}
	return opts, nil
}
