package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bryanchriswhite/RenderWatch/internal/artifact"
	"github.com/bryanchriswhite/RenderWatch/internal/render"
	"github.com/spf13/cobra"
)

var runOutFile string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the artifact once",
	Long: `Copy, load and run the artifact exactly once, the same way the watch loop
does, and report the outcome. Exits with status 1 unless the run succeeded.`,
	Example: `  # Run rt.dll once
  renderwatch run

  # Run once and save the resized output as PNG
  renderwatch run --out preview.png`,
	RunE: runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runOutFile, "out", "o", "", "write the resized output image to this PNG file")
}

func runOnce(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sig := artifact.NewProbe(nil).Current(cfg.Artifact.Path)
	if sig.IsAbsent() {
		return fmt.Errorf("artifact not found: %s", cfg.Artifact.Path)
	}

	invoker, err := newInvoker(cfg)
	if err != nil {
		return err
	}

	out := invoker.Invoke(ctx, cfg.Artifact.Path)
	fmt.Printf("%s: %s\n", cfg.Artifact.Path, out)
	if out.Kind != artifact.Success {
		return fmt.Errorf("run failed: %s", out.Kind)
	}

	if runOutFile != "" {
		target := render.Target{Factor: cfg.Image.Factor, Width: cfg.Image.Width, Height: cfg.Image.Height}
		frame, err := render.NewRenderer(nil).Frame(cfg.Image.Path, target)
		if err != nil {
			return err
		}
		if err := render.SavePNG(runOutFile, frame); err != nil {
			return err
		}
		fmt.Printf("Output written to %s\n", runOutFile)
	}
	return nil
}
