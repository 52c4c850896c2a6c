package output

import (
	"errors"
	"image"
)

// Output defines the interface for frame sinks. The watch window and the
// MJPEG browser stream are both outputs; Multi mirrors one frame to several.
type Output interface {
	// Start initializes the output mechanism
	Start() error

	// Stop cleanly shuts down the output
	Stop() error

	// WriteFrame replaces the displayed frame
	WriteFrame(frame *image.RGBA) error

	// Name returns a human-readable name for this output type
	Name() string

	// IsRunning returns true if the output is currently active
	IsRunning() bool
}

// Config holds common configuration for encoded outputs
type Config struct {
	Quality int // JPEG quality, 1-100
}

// Multi fans frames out to several outputs
type Multi []Output

// Start starts every output, stopping the ones already started on failure
func (m Multi) Start() error {
	for i, o := range m {
		if err := o.Start(); err != nil {
			for _, started := range m[:i] {
				started.Stop()
			}
			return err
		}
	}
	return nil
}

// Stop stops every output
func (m Multi) Stop() error {
	var errs []error
	for _, o := range m {
		if err := o.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteFrame writes the same frame to every output. It fails only if no
// output accepted the frame.
func (m Multi) WriteFrame(frame *image.RGBA) error {
	var errs []error
	for _, o := range m {
		if err := o.WriteFrame(frame); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == len(m) && len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Name returns the output type name
func (m Multi) Name() string {
	return "multi"
}

// IsRunning reports whether any output is running
func (m Multi) IsRunning() bool {
	for _, o := range m {
		if o.IsRunning() {
			return true
		}
	}
	return false
}
