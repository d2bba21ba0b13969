package status

import (
	"os"

	"github.com/caarlos0/log"
	"github.com/spf13/cobra"

	"github.com/kochelmonster/runas"
)

type options struct {
	verbose bool
}

// NewCommand creates the status command, reporting the privilege state of
// the current process.
func NewCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "report whether this process is, or could become, elevated",
		Long: `Report the privilege state of the current process.

Exit codes:
  0 - already elevated
  1 - not elevated`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")

	return cmd
}

func run(opts *options) error {
	logger := log.New(os.Stdout)
	if opts.verbose {
		logger.Level = log.DebugLevel
	}

	hasRoot := runas.HasRoot()
	logger.WithField("elevated", hasRoot).Info("current process")
	logger.WithField("plausible", runas.CanGetRoot()).Info("elevation")

	if !hasRoot {
		os.Exit(1)
	}
	return nil
}
