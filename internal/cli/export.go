package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/consultora/internal/export"
	"github.com/mesh-intelligence/consultora/pkg/query"
)

const defaultExportName = "clientes.xlsx"

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export records to other formats",
	}
	cmd.AddCommand(newExportClientsCmd(a))
	return cmd
}

func newExportClientsCmd(a *app) *cobra.Command {
	var (
		output string
		filter query.ClientFilter
		tag    string
	)
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "Export clients to an .xlsx spreadsheet",
		Long: `Export clients, sorted by legal name, to a spreadsheet with one row per
client. Contact numbers are formatted for the configured phone_region.
Passwords are not exported.

Example:
  consultora export clients
  consultora export clients --tag Urgente -o urgentes.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			if tag != "" {
				t, err := resolveTag(store, tag)
				if err != nil {
					return err
				}
				filter.TagID = t.ID
			}
			clients, err := store.Clients().List()
			if err != nil {
				return fmt.Errorf("list clients: %w", err)
			}
			tags, err := store.Tags().List()
			if err != nil {
				return fmt.Errorf("list tags: %w", err)
			}
			clients = query.FilterClients(clients, filter)

			var buf bytes.Buffer
			if err := export.ClientsXLSX(&buf, clients, tags, a.cfg.GetString(cfgKeyPhoneRegion)); err != nil {
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			if a.flags.jsonMode {
				return a.printJSON(map[string]any{"path": output, "clients": len(clients)})
			}
			fmt.Fprintf(a.stdout, "Wrote %s (%d client(s))\n", output, len(clients))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", defaultExportName, "spreadsheet path")
	cmd.Flags().StringVar(&filter.Search, "search", "", "substring of tax ID, legal name or email")
	cmd.Flags().StringVar(&filter.Manager, "manager", "", "person in charge")
	cmd.Flags().StringVar(&tag, "tag", "", "tag ID or name")
	return cmd
}
