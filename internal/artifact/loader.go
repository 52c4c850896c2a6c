package artifact

import (
	"fmt"

	"github.com/bryanchriswhite/RenderWatch/internal/config"
)

// Loader turns a private copy of the artifact into something callable
type Loader interface {
	// Load prepares the copy at path. Errors wrap ErrLoad or ErrEntryPoint.
	Load(path string) (Module, error)

	// Name returns the loader's invocation mode
	Name() string
}

// Module is a loaded artifact copy
type Module interface {
	// Call runs the entry point to completion and returns its status code
	// (zero means success). An error wrapping ErrLoad means it never started.
	Call() (int, error)

	// Close unloads the module. The backing file is removed by the lease.
	Close() error
}

// NewLoader builds the loader for the configured invocation mode
func NewLoader(cfg config.ArtifactConfig, workDir string) (Loader, error) {
	switch cfg.Mode {
	case config.ModeProcess:
		return NewProcessLoader(cfg.Args, workDir), nil
	case config.ModeLibrary:
		l, err := NewLibraryLoader(cfg.EntryPoint)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unsupported invocation mode: %q", cfg.Mode)
	}
}
