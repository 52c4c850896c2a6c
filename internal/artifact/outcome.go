package artifact

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCopy marks a failure to make the private copy (locked, missing, unreadable)
	ErrCopy = errors.New("artifact copy failed")
	// ErrLoad marks a copy that could not be loaded or started
	ErrLoad = errors.New("artifact could not be loaded")
	// ErrEntryPoint marks a loaded library without the configured symbol
	ErrEntryPoint = errors.New("artifact entry point not found")
)

// Kind classifies one invocation attempt
type Kind int

const (
	Success Kind = iota
	RuntimeFailure
	LockContention
	InvalidArtifact
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case RuntimeFailure:
		return "runtime_failure"
	case LockContention:
		return "lock_contention"
	case InvalidArtifact:
		return "invalid_artifact"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Ran reports whether the entry point actually executed
func (k Kind) Ran() bool {
	return k == Success || k == RuntimeFailure
}

// Outcome is the result of one invocation attempt. Elapsed and ExitCode
// are only meaningful when Kind.Ran() is true.
type Outcome struct {
	Kind     Kind          `json:"kind"`
	Elapsed  time.Duration `json:"elapsed"`
	ExitCode int           `json:"exit_code"`
	TempPath string        `json:"temp_path,omitempty"`
	Err      error         `json:"-"`
}

func (o Outcome) String() string {
	if o.Kind.Ran() {
		return fmt.Sprintf("%s (code %d, %.1fms)", o.Kind, o.ExitCode, float64(o.Elapsed.Microseconds())/1000)
	}
	if o.Err != nil {
		return fmt.Sprintf("%s: %v", o.Kind, o.Err)
	}
	return o.Kind.String()
}
