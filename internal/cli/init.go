package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/consultora/internal/paths"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize consultora storage",
		Long: "Create the configuration directory with a default config.yaml, then create\n" +
			"the database and seed the default credentials and option lists.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit()
		},
	}
}

func (a *app) runInit() error {
	if err := os.MkdirAll(a.configDir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	configPath := paths.ConfigFile(a.configDir)
	wrote, err := writeConfigIfMissing(configPath, a.dataDir)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	// Attach creates the schema and seeds defaults; close detaches.
	if _, err := a.openStore(); err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}

	if wrote {
		fmt.Fprintf(a.stdout, "Wrote %s\n", configPath)
	}
	fmt.Fprintf(a.stdout, "consultora initialized at %s\n", a.dataDir)
	return nil
}
