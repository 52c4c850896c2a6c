package watch

import (
	"context"
	"sync"
	"time"

	"github.com/bryanchriswhite/RenderWatch/internal/artifact"
	"github.com/bryanchriswhite/RenderWatch/internal/config"
	"github.com/bryanchriswhite/RenderWatch/internal/logger"
)

// Prober reports the current change signal of a path
type Prober interface {
	Current(path string) artifact.Signal
}

// Runner invokes the artifact once, blocking until it returns
type Runner interface {
	Invoke(ctx context.Context, path string) artifact.Outcome
}

// Presenter shows the image produced by a successful invocation
type Presenter interface {
	Present(out artifact.Outcome) bool
}

// ResetInput is asked once per tick whether the user requested a re-run
type ResetInput interface {
	ResetRequested() bool
}

// Options wires an Orchestrator
type Options struct {
	ArtifactPath string
	Probe        Prober
	Invoker      Runner
	Presenter    Presenter  // may be nil
	Reset        ResetInput // may be nil
	Policy       config.InvalidPolicy
	Interval     time.Duration

	// Wake triggers an early tick; Done ends Run (e.g. the window was closed).
	// Both may be nil.
	Wake <-chan struct{}
	Done <-chan struct{}
}

// Orchestrator is the watch loop: probe, invoke on change, render on success
type Orchestrator struct {
	opts Options
	now  func() time.Time

	// missing is set while the artifact is absent; touched only by Tick
	missing bool

	mu        sync.RWMutex
	last      *Report
	listeners []chan Report
}

// New creates an orchestrator
func New(opts Options) *Orchestrator {
	if opts.Interval <= 0 {
		opts.Interval = 250 * time.Millisecond
	}
	if opts.Policy == "" {
		opts.Policy = config.InvalidAdvance
	}
	return &Orchestrator{
		opts:      opts,
		now:       time.Now,
		listeners: make([]chan Report, 0),
	}
}

// Tick performs one iteration of the loop and returns the next state
func (o *Orchestrator) Tick(ctx context.Context, state ControlState) (ControlState, Report) {
	log := logger.WithComponent("watch")

	sig := o.opts.Probe.Current(o.opts.ArtifactPath)
	rep := Report{Time: o.now(), Signal: sig}

	if sig.IsAbsent() {
		if !o.missing {
			log.Info().
				Str("artifact", o.opts.ArtifactPath).
				Msg("Artifact not found, waiting for it to appear")
		}
		o.missing = true
	} else {
		o.missing = false
	}

	if !sig.IsAbsent() && sig != state.LastSeen {
		rep.Changed = true
		log.Info().
			Str("artifact", o.opts.ArtifactPath).
			Stringer("signal", sig).
			Msg("Artifact modified, re-running")

		out := o.opts.Invoker.Invoke(ctx, o.opts.ArtifactPath)
		rep.Outcome = &out
		o.logOutcome(out)

		if o.advances(out.Kind) {
			state.LastSeen = sig
		}
		if out.Kind == artifact.Success && o.opts.Presenter != nil {
			rep.Rendered = o.opts.Presenter.Present(out)
		}
	}

	if o.opts.Reset != nil && o.opts.Reset.ResetRequested() {
		log.Info().Msg("Reset by user")
		state.LastSeen = artifact.Absent
		rep.Reset = true
	}

	o.publish(rep)
	return state, rep
}

// advances reports whether an outcome marks the current version as seen
func (o *Orchestrator) advances(kind artifact.Kind) bool {
	switch kind {
	case artifact.Success, artifact.RuntimeFailure:
		return true
	case artifact.InvalidArtifact:
		return o.opts.Policy == config.InvalidAdvance
	default:
		return false
	}
}

func (o *Orchestrator) logOutcome(out artifact.Outcome) {
	log := logger.WithComponent("watch")
	switch out.Kind {
	case artifact.Success:
		log.Info().Dur("elapsed", out.Elapsed).Msgf("Runtime: %.1fms", float64(out.Elapsed.Microseconds())/1000)
	case artifact.RuntimeFailure:
		log.Warn().Err(out.Err).Int("exit_code", out.ExitCode).Dur("elapsed", out.Elapsed).Msg("Artifact reported failure")
	case artifact.InvalidArtifact:
		log.Warn().Err(out.Err).Str("policy", string(o.opts.Policy)).Msg("Artifact invalid")
	case artifact.LockContention:
		log.Info().Err(out.Err).Msg("Artifact locked, retrying")
	}
}

// Run ticks until ctx is cancelled or Done is closed. The first tick runs
// immediately.
func (o *Orchestrator) Run(ctx context.Context) error {
	ticker := time.NewTicker(o.opts.Interval)
	defer ticker.Stop()

	logger.WithComponent("watch").Info().
		Str("artifact", o.opts.ArtifactPath).
		Dur("interval", o.opts.Interval).
		Msg("Watch loop started")

	state := Initial()
	for {
		if ctx.Err() != nil {
			return nil
		}
		state, _ = o.Tick(ctx, state)

		select {
		case <-ctx.Done():
			return nil
		case <-o.opts.Done:
			logger.WithComponent("watch").Info().Msg("Watch loop stopped")
			return nil
		case <-ticker.C:
		case <-o.opts.Wake:
		}
	}
}

// Last returns the most recent report, or nil before the first tick
func (o *Orchestrator) Last() *Report {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.last
}

// Subscribe returns a channel that receives every report
func (o *Orchestrator) Subscribe() chan Report {
	ch := make(chan Report, 16)
	o.mu.Lock()
	o.listeners = append(o.listeners, ch)
	o.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener and closes its channel
func (o *Orchestrator) Unsubscribe(ch chan Report) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i, listener := range o.listeners {
		if listener == ch {
			o.listeners = append(o.listeners[:i], o.listeners[i+1:]...)
			close(ch)
			break
		}
	}
}

// publish records rep and hands it to every listener without blocking the loop
func (o *Orchestrator) publish(rep Report) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.last = &rep
	for _, listener := range o.listeners {
		select {
		case listener <- rep:
		default:
			// Listener is slow, drop the report
		}
	}
}
