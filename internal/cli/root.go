package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/tessellate-ml/augment/internal/augment"
)

var (
	version string
	commit  string
	date    string
)

// SetVersion sets the build information shown by --version. Called by the
// main package with values injected via ldflags.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the augment CLI.
func Execute(ctx context.Context) error {
	var verbose bool

	root := &cobra.Command{
		Use:          "augment",
		Short:        "augment drives multi-modality augmentation pipelines",
		Long:         `augment builds augmentation pipelines from TOML definitions and runs them over image, mask, box, and keypoint batches: validate a definition, preview what it does to geometry, report the parameters it draws, bench its throughput, and replay recorded passes bit for bit.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			streams := augment.LogWriters{Ops: os.Stderr}
			if verbose {
				level = charmlog.DebugLevel
				streams.Diag = os.Stderr
				streams.Trace = os.Stderr
			}
			augment.SetLogWriters(streams)
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("augment %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newValidateCmd())
	root.AddCommand(newPreviewCmd())
	root.AddCommand(newParamsCmd())
	root.AddCommand(newBenchCmd())
	root.AddCommand(newReplayCmd())
	root.AddCommand(newRunsCmd())

	return root.ExecuteContext(ctx)
}
