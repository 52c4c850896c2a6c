package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/bryanchriswhite/RenderWatch/internal/api"
	"github.com/bryanchriswhite/RenderWatch/internal/artifact"
	"github.com/bryanchriswhite/RenderWatch/internal/config"
	"github.com/bryanchriswhite/RenderWatch/internal/display"
	"github.com/bryanchriswhite/RenderWatch/internal/logger"
	"github.com/bryanchriswhite/RenderWatch/internal/output"
	"github.com/bryanchriswhite/RenderWatch/internal/overlay"
	"github.com/bryanchriswhite/RenderWatch/internal/render"
	"github.com/bryanchriswhite/RenderWatch/internal/watch"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the artifact and show its output",
	Long: `Poll the artifact for changes, run a private copy of every new version and
show the image it produced in the watch window.

Press the reset key (space by default) in the window to run the current
version again. Close the window or press Ctrl+C to stop.`,
	Example: `  # Watch rt.dll in the current directory
  renderwatch watch

  # Watch an executable that writes a PNG
  renderwatch watch --artifact ./build/raytracer --mode process --image build/out.png

  # Show the output at a fixed size with a status caption
  renderwatch watch --width 800 --height 600 --overlay

  # Mirror the window to a browser
  renderwatch watch --addr :8080`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addWatchFlags(watchCmd)
}

func addWatchFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Int("factor", 0, "integer downscale factor (default is 2)")
	flags.Int("width", 0, "display width, overrides factor")
	flags.Int("height", 0, "display height, overrides factor")
	flags.Duration("interval", 0, "poll interval (default is 250ms)")
	flags.Bool("notify", false, "wake up early on file system events")
	flags.String("addr", "", "status server address, e.g. :8080 (default disabled)")
	flags.Bool("overlay", false, "caption frames with the run time")
	flags.Bool("no-window", false, "do not open the X11 window")
}

// bindWatchFlags binds the flags of the command actually running; root and
// watch define the same set
func bindWatchFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	viper.BindPFlag("image.factor", flags.Lookup("factor"))
	viper.BindPFlag("image.width", flags.Lookup("width"))
	viper.BindPFlag("image.height", flags.Lookup("height"))
	viper.BindPFlag("watch.poll_interval", flags.Lookup("interval"))
	viper.BindPFlag("watch.notify", flags.Lookup("notify"))
	viper.BindPFlag("server.addr", flags.Lookup("addr"))
	viper.BindPFlag("overlay.enabled", flags.Lookup("overlay"))
	if noWindow, _ := flags.GetBool("no-window"); noWindow {
		viper.Set("window.enabled", false)
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	bindWatchFlags(cmd)
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.WithComponent("main")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	invoker, err := newInvoker(cfg)
	if err != nil {
		return err
	}

	var (
		outputs output.Multi
		resets  = watch.AnyInput{}
		queue   = watch.NewResetQueue()
		done    <-chan struct{}
		stream  *output.MJPEGOutput
	)
	resets = append(resets, queue)

	if cfg.Window.Enabled {
		log.Info().Msg("Connecting to X11 server...")
		win, err := display.NewX11Surface(cfg.Window)
		if err != nil {
			return err
		}
		outputs = append(outputs, win)
		resets = append(resets, watch.NewKeyInput(win, []rune(cfg.Window.ResetKey)[0]))
		done = win.Done()
	}
	if cfg.Server.Addr != "" {
		stream = output.NewMJPEGOutput(output.Config{Quality: cfg.Server.Quality})
		outputs = append(outputs, stream)
	}

	if err := outputs.Start(); err != nil {
		return fmt.Errorf("failed to start display: %w", err)
	}
	defer outputs.Stop()

	var presenter watch.Presenter
	if len(outputs) > 0 {
		presenter = newPresenter(cfg, outputs)
	} else {
		log.Warn().Msg("No window and no status server, outcomes are only logged")
	}

	opts := watch.Options{
		ArtifactPath: cfg.Artifact.Path,
		Probe:        artifact.NewProbe(nil),
		Invoker:      invoker,
		Presenter:    presenter,
		Reset:        resets,
		Policy:       cfg.Watch.InvalidPolicy,
		Interval:     cfg.Watch.PollInterval,
		Done:         done,
	}

	if cfg.Watch.Notify {
		notifier, err := watch.NewNotifier(cfg.Artifact.Path)
		if err != nil {
			log.Warn().Err(err).Msg("File notifications unavailable, polling only")
		} else {
			defer notifier.Close()
			go notifier.Run(ctx)
			opts.Wake = notifier.Wake()
		}
	}

	orch := watch.New(opts)

	if cfg.Server.Addr != "" {
		server := api.NewServer(cfg, orch, queue, stream)
		go func() {
			if err := server.Start(ctx, cfg.Server.Addr); err != nil {
				log.Error().Err(err).Msg("Status server stopped")
			}
		}()
	}

	log.Info().
		Str("artifact", cfg.Artifact.Path).
		Str("mode", string(cfg.Artifact.Mode)).
		Str("image", cfg.Image.Path).
		Msg("RenderWatch is running, press Ctrl+C to stop")

	if err := orch.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Msg("Shutting down gracefully...")
	return nil
}

// newInvoker builds the safe invoker for the configured mode. Process mode
// runs in the artifact's directory so relative output paths resolve there.
func newInvoker(cfg *config.Config) (*artifact.Invoker, error) {
	absPath, err := filepath.Abs(cfg.Artifact.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve artifact path: %w", err)
	}

	loader, err := artifact.NewLoader(cfg.Artifact, filepath.Dir(absPath))
	if err != nil {
		return nil, err
	}

	return artifact.NewInvoker(artifact.InvokerConfig{
		Loader:  loader,
		TempDir: cfg.Artifact.TempDir,
	}), nil
}

func newPresenter(cfg *config.Config, surface render.Surface) *watch.FramePresenter {
	p := &watch.FramePresenter{
		Surface:   surface,
		ImagePath: cfg.Image.Path,
		Target: render.Target{
			Factor: cfg.Image.Factor,
			Width:  cfg.Image.Width,
			Height: cfg.Image.Height,
		},
	}

	if cfg.Overlay.Enabled {
		overlays := overlay.NewManager()
		p.Status = overlay.NewStatusWidget(cfg.Overlay.Opacity)
		overlays.AddWidget(p.Status)
		p.Renderer = render.NewRenderer(overlays)
	} else {
		p.Renderer = render.NewRenderer(nil)
	}
	return p
}
