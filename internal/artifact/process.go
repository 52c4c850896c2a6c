package artifact

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/bryanchriswhite/RenderWatch/internal/logger"
	"github.com/rs/zerolog"
)

// ProcessLoader runs the artifact copy as an executable
type ProcessLoader struct {
	args    []string
	workDir string
}

// NewProcessLoader creates a loader that execs the copy with args inside workDir.
// workDir is normally the watched artifact's directory so relative output paths
// resolve the same way they do when the artifact is run by hand.
func NewProcessLoader(args []string, workDir string) *ProcessLoader {
	return &ProcessLoader{args: args, workDir: workDir}
}

// Name returns the invocation mode
func (l *ProcessLoader) Name() string {
	return "process"
}

// Load checks that the copy is a regular file and marks it executable
func (l *ProcessLoader) Load(path string) (Module, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrLoad, path)
	}
	if info.Mode().Perm()&0100 == 0 {
		if err := os.Chmod(path, info.Mode().Perm()|0700); err != nil {
			return nil, fmt.Errorf("%w: chmod: %w", ErrLoad, err)
		}
	}
	return &processModule{path: path, args: l.args, workDir: l.workDir}, nil
}

type processModule struct {
	path    string
	args    []string
	workDir string
}

// Call execs the copy and waits for it to exit
func (m *processModule) Call() (int, error) {
	log := logger.WithComponent("artifact")

	cmd := exec.Command(m.path, m.args...)
	cmd.Dir = m.workDir

	stdout := newLineLogger(log, "stdout")
	stderr := newLineLogger(log, "stderr")
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	defer stdout.Flush()
	defer stderr.Flush()

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	log.Debug().Int("pid", cmd.Process.Pid).Str("temp_path", m.path).Msg("Artifact process started")

	err := cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("failed waiting for artifact: %w", err)
}

// Close is a no-op; the process has already exited
func (m *processModule) Close() error {
	return nil
}

// lineLogger forwards child output to the logger one line at a time
type lineLogger struct {
	log    *zerolog.Logger
	stream string
	mu     sync.Mutex
	buf    bytes.Buffer
}

func newLineLogger(log *zerolog.Logger, stream string) *lineLogger {
	return &lineLogger{log: log, stream: stream}
}

func (w *lineLogger) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadBytes('\n')
		if err != nil {
			// incomplete line, keep it for the next write
			w.buf.Write(line)
			break
		}
		w.emit(bytes.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

// Flush logs any trailing partial line
func (w *lineLogger) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit(w.buf.Bytes())
		w.buf.Reset()
	}
}

func (w *lineLogger) emit(line []byte) {
	if len(line) == 0 {
		return
	}
	w.log.Debug().Str("stream", w.stream).Msg(string(line))
}
