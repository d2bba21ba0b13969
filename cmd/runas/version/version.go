package version

import (
	"fmt"

	goversion "github.com/caarlos0/go-version"
	"github.com/spf13/cobra"
)

// NewCommand creates the version command.
func NewCommand(info goversion.Info) *cobra.Command {
	return &cobra.Command{
		Use:          "version",
		Short:        "print version and build information",
		Long:         `Print the version of this binary together with the git revision, build date and builder it was produced from.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(info.String())
		},
	}
}
