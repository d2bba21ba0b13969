package main

import (
	"os"

	goversion "github.com/caarlos0/go-version"
	"github.com/caarlos0/log"
	"github.com/spf13/cobra"

	"github.com/kochelmonster/runas"
	"github.com/kochelmonster/runas/cmd/runas/demo"
	"github.com/kochelmonster/runas/cmd/runas/status"
	versionCmd "github.com/kochelmonster/runas/cmd/runas/version"
)

const website = "https://github.com/kochelmonster/runas"

var (
	version = ""
	builtBy = ""
)

func main() {
	// Targets must exist before RunHelper: the elevated helper is this
	// same binary and serves the same registrations.
	demo.RegisterTarget()
	runas.RunHelper()

	rootCmd := &cobra.Command{
		Use:           "runas",
		Short:         "run methods through a privileged helper process",
		SilenceErrors: true,
	}

	rootCmd.AddCommand(status.NewCommand())
	rootCmd.AddCommand(demo.NewCommand())
	rootCmd.AddCommand(versionCmd.NewCommand(buildVersion(version, builtBy)))

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func buildVersion(version, builtBy string) goversion.Info {
	return goversion.GetVersionInfo(
		goversion.WithAppDetails("runas", "Proxy method calls into a privileged helper process.", website),
		func(i *goversion.Info) {
			if version != "" {
				i.GitVersion = version
			}
			if builtBy != "" {
				i.BuiltBy = builtBy
			}
		},
	)
}
