package artifact

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/bryanchriswhite/RenderWatch/internal/logger"
	"github.com/spf13/afero"
)

// InvokerConfig configures an Invoker. Zero-valued filesystems default to the OS.
type InvokerConfig struct {
	Loader  Loader
	TempDir string
	// SourceFs is where the watched artifact is read from
	SourceFs afero.Fs
	// TempFs is where private copies are written; loaders need it to be the OS
	TempFs afero.Fs
}

// Invoker runs the watched artifact through a private copy so the build
// toolchain can keep rewriting the original path
type Invoker struct {
	loader  Loader
	tempDir string
	srcFs   afero.Fs
	tmpFs   afero.Fs
}

// NewInvoker creates a new invoker
func NewInvoker(cfg InvokerConfig) *Invoker {
	inv := &Invoker{
		loader:  cfg.Loader,
		tempDir: cfg.TempDir,
		srcFs:   cfg.SourceFs,
		tmpFs:   cfg.TempFs,
	}
	if inv.tempDir == "" {
		inv.tempDir = os.TempDir()
	}
	if inv.srcFs == nil {
		inv.srcFs = afero.NewOsFs()
	}
	if inv.tmpFs == nil {
		inv.tmpFs = afero.NewOsFs()
	}
	return inv
}

// Invoke copies, loads and runs the artifact at path, blocking until it returns
func (i *Invoker) Invoke(ctx context.Context, path string) Outcome {
	log := logger.WithComponent("invoker")

	if err := ctx.Err(); err != nil {
		return Outcome{Kind: LockContention, Err: err}
	}

	lease, err := acquire(i.srcFs, i.tmpFs, i.loader, path, i.tempDir)
	if err != nil {
		return classify(err)
	}
	defer lease.Release()

	log.Debug().
		Str("path", path).
		Str("temp_path", lease.TempPath).
		Str("mode", i.loader.Name()).
		Msg("Invoking artifact copy")

	start := time.Now()
	code, err := lease.Module.Call()
	elapsed := time.Since(start)

	out := Outcome{Elapsed: elapsed, ExitCode: code, TempPath: lease.TempPath, Err: err}
	switch {
	case err != nil && errors.Is(err, ErrLoad):
		out.Kind = InvalidArtifact
		out.Elapsed = 0
	case err != nil || code != 0:
		out.Kind = RuntimeFailure
	default:
		out.Kind = Success
	}
	return out
}

// classify maps an acquisition error to an outcome kind
func classify(err error) Outcome {
	switch {
	case errors.Is(err, ErrLoad), errors.Is(err, ErrEntryPoint):
		return Outcome{Kind: InvalidArtifact, Err: err}
	default:
		return Outcome{Kind: LockContention, Err: err}
	}
}
