package watch

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/bryanchriswhite/RenderWatch/internal/logger"
	"github.com/fsnotify/fsnotify"
)

// Notifier wakes the loop when something touches the artifact. It never
// decides change itself; the next tick's probe does.
type Notifier struct {
	watcher *fsnotify.Watcher
	name    string
	wake    chan struct{}
}

// NewNotifier watches the directory containing artifactPath
func NewNotifier(artifactPath string) (*Notifier, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	dir := filepath.Dir(artifactPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &Notifier{
		watcher: watcher,
		name:    filepath.Base(artifactPath),
		wake:    make(chan struct{}, 1),
	}, nil
}

// Wake returns the channel to pass as Options.Wake
func (n *Notifier) Wake() <-chan struct{} {
	return n.wake
}

// Run forwards events until ctx is cancelled or the watcher is closed
func (n *Notifier) Run(ctx context.Context) {
	log := logger.WithComponent("notify")

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-n.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != n.name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			log.Debug().Str("event", event.Op.String()).Msg("Artifact touched")

			select {
			case n.wake <- struct{}{}:
			default:
				// A wake-up is already pending
			}

		case err, ok := <-n.watcher.Errors:
			if !ok {
				return
			}
			log.Debug().Err(err).Msg("File watcher error")
		}
	}
}

// Close stops watching
func (n *Notifier) Close() error {
	return n.watcher.Close()
}
