package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/bryanchriswhite/RenderWatch/internal/artifact"
	"github.com/spf13/cobra"
)

var probeJSON bool

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Print the artifact's change signal",
	Long: `Print the signal the watch loop compares between ticks. Two different
signals mean the artifact will be run again.`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().BoolVar(&probeJSON, "json", false, "print as JSON")
}

func runProbe(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sig := artifact.NewProbe(nil).Current(cfg.Artifact.Path)

	if probeJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(map[string]interface{}{
			"path":     cfg.Artifact.Path,
			"present":  !sig.IsAbsent(),
			"mod_time": sig.ModTime,
			"size":     sig.Size,
			"signal":   sig.String(),
		})
	}

	if sig.IsAbsent() {
		fmt.Printf("%s: absent\n", cfg.Artifact.Path)
		return nil
	}
	fmt.Printf("%s: %s (modified %s, %d bytes)\n",
		cfg.Artifact.Path, sig, time.Unix(0, sig.ModTime).Format(time.RFC3339), max(sig.Size, 0))
	return nil
}
