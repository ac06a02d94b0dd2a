package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/consultora/internal/docs"
	"github.com/mesh-intelligence/consultora/pkg/query"
	"github.com/mesh-intelligence/consultora/pkg/types"
)

func newZipCmd(a *app) *cobra.Command {
	var (
		clientIDs []string
		search    string
		output    string
		p         periodFlags
	)
	cmd := &cobra.Command{
		Use:   "zip --year <year> [--month <1-12>]",
		Short: "Package client files of a period into a ZIP archive",
		Long: `Package the files of a fiscal month, or of a whole fiscal year when
--month is omitted, into a ZIP with one folder per client. Whole-year
archives add a folder per month inside each client folder.

The archive is named after the configured user and the period unless
--output is given.

Example:
  consultora zip --year 2024 --month 3
  consultora zip --year 2024 --client 0192f3c4-... -o gestion.zip
  consultora zip --year 2024 --search acme`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("year") {
				return usageErrorf("--year is required")
			}
			period, err := p.period(cmd)
			if err != nil {
				return err
			}
			return a.runZip(period, clientIDs, search, output)
		},
	}
	cmd.Flags().StringSliceVar(&clientIDs, "client", nil, "only this client (repeatable)")
	cmd.Flags().StringVar(&search, "search", "", "only clients whose legal name or tax ID contains this text")
	cmd.Flags().StringVarP(&output, "output", "o", "", "archive path")
	p.bind(cmd, "fiscal year (required)")
	return cmd
}

func (a *app) runZip(period types.Period, clientIDs []string, search, output string) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	clients, err := store.Clients().List()
	if err != nil {
		return fmt.Errorf("list clients: %w", err)
	}
	if len(clientIDs) > 0 {
		selected := make([]*types.Client, 0, len(clientIDs))
		for _, id := range clientIDs {
			c, err := store.Clients().Get(id)
			if err != nil {
				return fmt.Errorf("client %s: %w", id, err)
			}
			selected = append(selected, c)
		}
		query.SortClients(selected)
		clients = selected
	}
	clients = query.SearchByNameOrTaxID(clients, search)

	files, err := store.Files().List()
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}

	var buf bytes.Buffer
	n, err := docs.BuildZIP(&buf, clients, files, period)
	if err != nil {
		return err
	}
	if output == "" {
		creds, err := store.Settings().Credentials()
		if err != nil {
			return fmt.Errorf("read credentials: %w", err)
		}
		output = docs.ZIPName(creds.Username, period)
	}
	if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	a.logger.WithFields(logrus.Fields{
		"module": "cli",
		"op":     "zip",
		"period": period.String(),
		"files":  n,
	}).Info("archive written")

	if a.flags.jsonMode {
		return a.printJSON(map[string]any{"path": output, "files": n, "period": period.String()})
	}
	fmt.Fprintf(a.stdout, "Wrote %s (%d file(s), %s)\n", output, n, period)
	return nil
}
