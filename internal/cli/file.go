package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/consultora/internal/docs"
	"github.com/mesh-intelligence/consultora/pkg/query"
	"github.com/mesh-intelligence/consultora/pkg/types"
)

// fileSummary is a File without its payload.
type fileSummary struct {
	ID         string    `json:"id"`
	ClientID   string    `json:"clienteId"`
	Name       string    `json:"nombre"`
	Year       int       `json:"año"`
	Month      int       `json:"mes"`
	UploadedAt time.Time `json:"fechaSubida"`
}

func summarizeFiles(files []*types.File) []fileSummary {
	out := make([]fileSummary, len(files))
	for i, f := range files {
		out[i] = fileSummary{
			ID:         f.ID,
			ClientID:   f.ClientID,
			Name:       f.Name,
			Year:       f.Year,
			Month:      f.Month,
			UploadedAt: f.UploadedAt,
		}
	}
	return out
}

// periodFlags reads --year and a 1-based --month into a filter.
type periodFlags struct {
	year  int
	month int
}

func (p *periodFlags) bind(cmd *cobra.Command, yearUsage string) {
	cmd.Flags().IntVar(&p.year, "year", 0, yearUsage)
	cmd.Flags().IntVar(&p.month, "month", 0, "month 1-12")
}

// period returns the selected period. Without --month the whole year is
// selected.
func (p *periodFlags) period(cmd *cobra.Command) (types.Period, error) {
	if !cmd.Flags().Changed("month") {
		return types.YearPeriod(p.year), nil
	}
	if p.month < 1 || p.month > 12 {
		return types.Period{}, usageErrorf("--month must be between 1 and 12, got %d", p.month)
	}
	return types.MonthPeriod(p.year, p.month-1), nil
}

// filter narrows files by --year and --month, each optional on its own.
func (p *periodFlags) filter(cmd *cobra.Command) (query.FileFilter, error) {
	var f query.FileFilter
	if cmd.Flags().Changed("year") {
		year := p.year
		f.Year = &year
	}
	if cmd.Flags().Changed("month") {
		if p.month < 1 || p.month > 12 {
			return query.FileFilter{}, usageErrorf("--month must be between 1 and 12, got %d", p.month)
		}
		month := p.month - 1
		f.Month = &month
	}
	return f, nil
}

func newFileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file",
		Short: "Manage client PDF files",
	}
	cmd.AddCommand(
		newFileListCmd(a),
		newFileAddCmd(a),
		newFileGetCmd(a),
		&cobra.Command{
			Use:   "delete <file-id>",
			Short: "Delete a file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := a.openStore()
				if err != nil {
					return err
				}
				if err := store.Files().Delete(args[0]); err != nil {
					return fmt.Errorf("delete file %s: %w", args[0], err)
				}
				fmt.Fprintf(a.stdout, "Deleted file %s\n", args[0])
				return nil
			},
		},
	)
	return cmd
}

func newFileListCmd(a *app) *cobra.Command {
	var (
		clientIDs []string
		p         periodFlags
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List files, most recent period first",
		Long: `List files, optionally narrowed to clients and a period.

Example:
  consultora file list
  consultora file list --client 0192f3c4-... --year 2024
  consultora file list --year 2024 --month 3
  consultora file list --month 12`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := p.filter(cmd)
			if err != nil {
				return err
			}
			filter.ClientIDs = clientIDs
			return a.runFileList(filter)
		},
	}
	cmd.Flags().StringSliceVar(&clientIDs, "client", nil, "client ID (repeatable)")
	p.bind(cmd, "fiscal year")
	return cmd
}

func (a *app) runFileList(filter query.FileFilter) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	files, err := store.Files().List()
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}
	files = query.FilterFiles(files, filter)
	if a.flags.jsonMode {
		return a.printJSON(summarizeFiles(files))
	}
	if len(files) == 0 {
		fmt.Fprintln(a.stdout, "No files found.")
		return nil
	}
	owners, err := clientNames(store)
	if err != nil {
		return err
	}
	rows := make([][]string, len(files))
	for i, f := range files {
		rows[i] = []string{f.ID, truncate(owners[f.ClientID], 30), truncate(f.Name, 40), f.Period().String(), formatTime(f.UploadedAt)}
	}
	printTable(a.stdout, []string{"ID", "CLIENT", "NAME", "PERIOD", "UPLOADED"}, rows)
	fmt.Fprintf(a.stdout, "Total: %d file(s)\n", len(files))
	return nil
}

func newFileAddCmd(a *app) *cobra.Command {
	var (
		name string
		p    periodFlags
	)
	cmd := &cobra.Command{
		Use:   "add <client-id> <path.pdf>",
		Short: "Attach a PDF to a client",
		Long: `Attach a PDF to a client for a fiscal month. Year and month default to
the current ones; the name defaults to the file's base name.

Example:
  consultora file add 0192f3c4-... ./declaracion.pdf --year 2024 --month 3`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := a.now()
			year, month := now.Year(), int(now.Month())
			if cmd.Flags().Changed("year") {
				year = p.year
			}
			if cmd.Flags().Changed("month") {
				month = p.month
			}
			if month < 1 || month > 12 {
				return usageErrorf("--month must be between 1 and 12, got %d", month)
			}
			period := types.MonthPeriod(year, month-1)
			return a.runFileAdd(args[0], args[1], name, period)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (default: base name of the path)")
	p.bind(cmd, "fiscal year (default: current year)")
	return cmd
}

func (a *app) runFileAdd(clientID, path, name string, period types.Period) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	if _, err := store.Clients().Get(clientID); err != nil {
		return fmt.Errorf("client %s: %w", clientID, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return usageErrorf("read %s: %v", path, err)
	}
	payload := docs.Encode(data)
	pages, err := docs.PageCount(payload)
	if err != nil {
		return fmt.Errorf("%w: %s is not a readable PDF", types.ErrInvalidData, path)
	}
	if name == "" {
		name = filepath.Base(path)
	}
	f := &types.File{
		ClientID: clientID,
		Name:     docs.PDFName(name),
		Year:     period.Year,
		Month:    *period.Month,
		Data:     payload,
	}
	id, err := store.Files().Save(f)
	if err != nil {
		return fmt.Errorf("add file: %w", err)
	}
	if a.flags.jsonMode {
		return a.printJSON(summarizeFiles([]*types.File{f})[0])
	}
	fmt.Fprintf(a.stdout, "Added file %s (%s, %d page(s), %s)\n", id, f.Name, pages, f.Period())
	return nil
}

func newFileGetCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "get <file-id>",
		Short: "Write a file's PDF to disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			f, err := store.Files().Get(args[0])
			if err != nil {
				return fmt.Errorf("file %s: %w", args[0], err)
			}
			return a.writePayload(f.Data, output, f.Name)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination path (default: the file's name)")
	return cmd
}

// writePayload decodes a stored payload into output, or into name in the
// working directory when output is empty.
func (a *app) writePayload(payload, output, name string) error {
	data, err := docs.Decode(payload)
	if err != nil {
		return err
	}
	if output == "" {
		output = filepath.Base(name)
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	fmt.Fprintf(a.stdout, "Wrote %s (%d bytes)\n", output, len(data))
	return nil
}

func clientNames(store types.Store) (map[string]string, error) {
	clients, err := store.Clients().List()
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	names := make(map[string]string, len(clients))
	for _, c := range clients {
		names[c.ID] = c.LegalName
	}
	return names, nil
}
