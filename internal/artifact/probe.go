package artifact

import (
	"fmt"

	"github.com/spf13/afero"
)

// Signal is the change indicator of the watched artifact.
// Two signals differ whenever a rebuild rewrote the file.
type Signal struct {
	ModTime int64 // unix nanoseconds
	Size    int64
}

// Absent is the "missing / never seen" sentinel
var Absent = Signal{}

// IsAbsent reports whether s is the sentinel
func (s Signal) IsAbsent() bool {
	return s == Absent
}

func (s Signal) String() string {
	if s.IsAbsent() {
		return "absent"
	}
	return fmt.Sprintf("%d/%d", s.ModTime, s.Size)
}

// Probe reads the artifact's change signal without opening it
type Probe struct {
	fs afero.Fs
}

// NewProbe creates a probe over fs; nil means the OS filesystem
func NewProbe(fs afero.Fs) *Probe {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Probe{fs: fs}
}

// Current returns the artifact's signal, or Absent if it cannot be stat'ed
func (p *Probe) Current(path string) Signal {
	info, err := p.fs.Stat(path)
	if err != nil || info.IsDir() {
		return Absent
	}
	sig := Signal{ModTime: info.ModTime().UnixNano(), Size: info.Size()}
	if sig.IsAbsent() {
		// an empty file stamped at the epoch must still count as present
		sig.Size = -1
	}
	return sig
}
