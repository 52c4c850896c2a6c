package artifact

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bryanchriswhite/RenderWatch/internal/logger"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Lease owns one private, uniquely named copy of the artifact and the module
// loaded from it. Release must be called exactly once on every path.
type Lease struct {
	TempPath string
	Module   Module

	fs afero.Fs
}

// acquire copies src from srcFs into a fresh file under tempDir on dstFs and
// loads it. On error nothing is left behind except, at worst, a stray temp file.
func acquire(srcFs, dstFs afero.Fs, loader Loader, src, tempDir string) (*Lease, error) {
	tempPath, err := copyToTemp(srcFs, dstFs, src, tempDir)
	if err != nil {
		return nil, err
	}

	mod, err := loader.Load(tempPath)
	if err != nil {
		removeTemp(dstFs, tempPath)
		return nil, err
	}

	return &Lease{TempPath: tempPath, Module: mod, fs: dstFs}, nil
}

// Release unloads the module and deletes the copy. Failures are logged only;
// every lease has its own name so a leftover file never collides.
func (l *Lease) Release() {
	if l.Module != nil {
		if err := l.Module.Close(); err != nil {
			logger.WithComponent("artifact").Debug().
				Err(err).
				Str("temp_path", l.TempPath).
				Msg("Failed to unload artifact copy")
		}
	}
	removeTemp(l.fs, l.TempPath)
}

func removeTemp(fs afero.Fs, path string) {
	if err := fs.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.WithComponent("artifact").Debug().
			Err(err).
			Str("temp_path", path).
			Msg("Failed to delete artifact copy")
	}
}

// copyToTemp copies src to <tempDir>/<uuid><ext>. The extension is kept
// because platform loaders look at it (.dll on Windows).
func copyToTemp(srcFs, dstFs afero.Fs, src, tempDir string) (string, error) {
	in, err := srcFs.Open(src)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCopy, err)
	}
	defer in.Close()

	if err := dstFs.MkdirAll(tempDir, 0755); err != nil {
		return "", fmt.Errorf("%w: create temp dir: %w", ErrCopy, err)
	}

	tempPath := filepath.Join(tempDir, uuid.New().String()+filepath.Ext(src))
	out, err := dstFs.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0700)
	if err != nil {
		return "", fmt.Errorf("%w: create %s: %w", ErrCopy, tempPath, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		removeTemp(dstFs, tempPath)
		return "", fmt.Errorf("%w: %w", ErrCopy, err)
	}
	// the copy must be fully closed before exec, or Linux reports ETXTBSY
	if err := out.Close(); err != nil {
		removeTemp(dstFs, tempPath)
		return "", fmt.Errorf("%w: %w", ErrCopy, err)
	}

	return tempPath, nil
}
