package commands

import (
	"fmt"
	"os"

	"github.com/bryanchriswhite/RenderWatch/internal/config"
	"github.com/bryanchriswhite/RenderWatch/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "renderwatch",
		Short: "RenderWatch - re-run a rebuilt artifact and show its output",
		Long: `RenderWatch watches a build artifact (a shared library or an executable)
that an external toolchain keeps rebuilding. Whenever the artifact changes it
runs a private copy of it and shows the image the artifact wrote in an
always-on-top window.

Features:
  • Change detection by modification time and size
  • Runs a uniquely named temp copy so the build can overwrite the original
  • Library (dlopen) and process invocation modes
  • Press space in the window to re-run the unchanged artifact
  • Optional status server with an MJPEG mirror of the window`,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Running without a subcommand watches
		RunE: runWatch,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/renderwatch/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringP("artifact", "a", "", "artifact to watch (default is rt.dll)")
	rootCmd.PersistentFlags().StringP("image", "i", "", "image the artifact writes (default is Render/output.ppm)")
	rootCmd.PersistentFlags().StringP("mode", "m", "", "invocation mode (library or process)")

	// Bind flags to viper
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("artifact.path", rootCmd.PersistentFlags().Lookup("artifact"))
	viper.BindPFlag("image.path", rootCmd.PersistentFlags().Lookup("image"))
	viper.BindPFlag("artifact.mode", rootCmd.PersistentFlags().Lookup("mode"))

	addWatchFlags(rootCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// loadConfig resolves the configuration and initializes logging from it
func loadConfig() (*config.Manager, *config.Config, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize config manager: %w", err)
	}

	cfg, err := configMgr.Load()
	if err != nil {
		return nil, nil, err
	}

	logger.Init(cfg.Log.Level, cfg.Log.Pretty)
	return configMgr, cfg, nil
}
