// Package session makes the process-wide state of the decompiler
// (command-line flags, the named-type registry, logging, the output
// directory) into an explicit value threaded through every pass, instead
// of package-level globals.
package session

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/boomerang-decompiler/boomerang/internal/logging"
	"github.com/boomerang-decompiler/boomerang/internal/types"
)

// Config is the set of knobs exposed on the CLI surface and,
// optionally, loaded from a project manifest file (`boomerang.json`).
type Config struct {
	// EntryAddr/EntryName name a starting procedure in a manifest;
	// cmd/boomerang does not read them and takes the entry procedure's
	// name from its command line.
	EntryAddr uint64 `json:"entry_addr,omitempty"`
	EntryName string `json:"entry_name,omitempty"`

	// MaxPropagationDepth bounds C6's propagation nesting.
	MaxPropagationDepth int `json:"max_propagation_depth"`
	// MaxPropagations is carried in the config and manifest, but
	// propagate.Run does not read it: Run repeats its sweep until no
	// statement changes, with no iteration cap.
	MaxPropagations int `json:"max_propagations"`
	// MaxTypeIterations bounds C7's fixed-point loop.
	MaxTypeIterations int `json:"max_type_iterations"`
	// MaxRecursionGroupPasses bounds C8's recursion_group_analysis loop.
	MaxRecursionGroupPasses int `json:"max_recursion_group_passes"`
	// MaxUnusedReturnPasses bounds the removeRetSet worklist.
	MaxUnusedReturnPasses int `json:"max_unused_return_passes"`

	// DebugPasses enables per-pass debug logging/dumps, keyed by pass
	// name ("ssa", "propagate", "typeanalysis", "structure", ...).
	DebugPasses map[string]bool `json:"debug_passes,omitempty"`

	// OutputDir names an output directory in a manifest; no package reads
	// it, and cmd/boomerang writes its bundle to the path of its -o flag.
	OutputDir string `json:"output_dir,omitempty"`

	// PersistDSN, if set, is a database/sql data source name the
	// persist package uses to save per-procedure progress after a run.
	PersistDSN string `json:"persist_dsn,omitempty"`
	PersistDriver string `json:"persist_driver,omitempty"` // sqlite, postgres, mysql, sqlserver

	// WatchAddr, if set, starts the optional websocket progress channel
	// on this address, e.g. "localhost:6677".
	WatchAddr string `json:"watch_addr,omitempty"`
}

// DefaultConfig returns the caps the original decompiler effectively hard
// codes, made explicit and overridable.
func DefaultConfig() Config {
	return Config{
		MaxPropagationDepth: 3,
		MaxPropagations: 100,
		MaxTypeIterations: 50,
		MaxRecursionGroupPasses: 50,
		MaxUnusedReturnPasses: 200,
		DebugPasses: map[string]bool{},
	}
}

// LoadManifest merges a JSON project manifest (boomerang.json) on top of
// DefaultConfig.
func LoadManifest(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Session is the explicit, passed-everywhere replacement for ambient
// process-wide globals: one value threaded through every pass instead.
type Session struct {
	ID string // stable per-run id, namespaces persisted snapshots/logs
	Config Config
	Log *logging.Logger
	Types *types.TypeRegistry

	started time.Time
	// stopRequested is polled between passes, never within one.
	stopRequested bool
}

// New creates a Session with a fresh run id and the given logger; a nil
// logger is replaced by one at LevelInfo writing to os.Stderr.
func New(cfg Config, log *logging.Logger) *Session {
	if log == nil {
		log = logging.New(nil, logging.LevelInfo)
	}
	return &Session{
		ID: uuid.NewString(),
		Config: cfg,
		Log: log,
		Types: types.NewTypeRegistry(),
		started: time.Now(),
	}
}

// RequestStop marks the session for cooperative cancellation; the driver
// checks this between procedures, never mid-pass.
func (s *Session) RequestStop() { s.stopRequested = true }

// StopRequested reports whether RequestStop was called.
func (s *Session) StopRequested() bool { return s.stopRequested }

// Elapsed returns how long this session has been running.
func (s *Session) Elapsed() time.Duration { return time.Since(s.started) }

// DebugPass reports whether per-pass debug output was requested for name.
func (s *Session) DebugPass(name string) bool {
	return s.Config.DebugPasses != nil && s.Config.DebugPasses[name]
}
