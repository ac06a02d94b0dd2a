package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/consultora/internal/paths"
)

const modulePath = "github.com/mesh-intelligence/consultora"

// Version is the release version, overridden at build time with
// -ldflags "-X github.com/mesh-intelligence/consultora/internal/cli.Version=...".
var Version = "0.1.0"

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the consultora version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.flags.jsonMode {
				return a.printJSON(map[string]string{"version": Version, "module": modulePath})
			}
			fmt.Fprintf(a.stdout, "%s v%s\nmodule: %s\n", paths.AppName, Version, modulePath)
			return nil
		},
	}
}
