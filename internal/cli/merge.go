package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/consultora/internal/docs"
	"github.com/mesh-intelligence/consultora/pkg/query"
	"github.com/mesh-intelligence/consultora/pkg/types"
)

// mergedSummary is a MergedDocument without its payload.
type mergedSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"nombre"`
	CreatedAt time.Time `json:"fechaCreacion"`
	ClientIDs []string  `json:"clientesIds"`
}

func summarizeMerged(m *types.MergedDocument) mergedSummary {
	return mergedSummary{ID: m.ID, Name: m.Name, CreatedAt: m.CreatedAt, ClientIDs: m.ClientIDs}
}

func newMergeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge client PDFs into one document",
	}
	cmd.AddCommand(
		newMergeCreateCmd(a),
		&cobra.Command{
			Use:   "list",
			Short: "List merged documents, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runMergeList()
			},
		},
		newMergeGetCmd(a),
		&cobra.Command{
			Use:   "delete <document-id>",
			Short: "Delete a merged document",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := a.openStore()
				if err != nil {
					return err
				}
				if err := store.MergedDocuments().Delete(args[0]); err != nil {
					return fmt.Errorf("delete merged document %s: %w", args[0], err)
				}
				fmt.Fprintf(a.stdout, "Deleted merged document %s\n", args[0])
				return nil
			},
		},
	)
	return cmd
}

func newMergeCreateCmd(a *app) *cobra.Command {
	var (
		name      string
		clientIDs []string
		p         periodFlags
	)
	cmd := &cobra.Command{
		Use:   "create --name <name> [file-id]...",
		Short: "Merge files into a new document",
		Long: `Merge the pages of at least two files, in order, into a new document.

Files are given by ID, or selected by client and period when no ID is given.
Files whose payload is not a readable PDF are skipped.

Example:
  consultora merge create --name "Declaraciones marzo" 0192f3c4-... 0192f3c5-...
  consultora merge create --name "Gestion 2024" --client 0192f3c4-... --year 2024`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter *query.FileFilter
			if len(args) == 0 {
				if len(clientIDs) == 0 && !cmd.Flags().Changed("year") {
					return usageErrorf("give file IDs or select files with --client and --year")
				}
				f := query.FileFilter{ClientIDs: clientIDs}
				if cmd.Flags().Changed("year") {
					period, err := p.period(cmd)
					if err != nil {
						return err
					}
					f = query.ForPeriod(period)
					f.ClientIDs = clientIDs
				}
				filter = &f
			}
			return a.runMergeCreate(name, args, filter)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "document name (required)")
	cmd.Flags().StringSliceVar(&clientIDs, "client", nil, "select files of this client (repeatable)")
	p.bind(cmd, "select files of this fiscal year")
	return cmd
}

func (a *app) runMergeCreate(name string, fileIDs []string, filter *query.FileFilter) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}

	var files []*types.File
	if filter != nil {
		all, err := store.Files().List()
		if err != nil {
			return fmt.Errorf("list files: %w", err)
		}
		files = query.FilterFiles(all, *filter)
	} else {
		for _, id := range fileIDs {
			f, err := store.Files().Get(id)
			if err != nil {
				return fmt.Errorf("file %s: %w", id, err)
			}
			files = append(files, f)
		}
	}

	owners := make([]string, 0, len(files))
	for _, f := range files {
		owners = append(owners, f.ClientID)
	}
	doc, err := docs.NewMergedDocument(name, files, owners, docs.WithLogger(a.logger))
	if err != nil {
		return err
	}
	id, err := store.MergedDocuments().Save(doc)
	if err != nil {
		return fmt.Errorf("save merged document: %w", err)
	}
	if a.flags.jsonMode {
		return a.printJSON(summarizeMerged(doc))
	}
	pages, err := docs.PageCount(doc.Data)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Created merged document %s (%s, %d page(s) from %d file(s))\n", id, doc.Name, pages, len(files))
	return nil
}

func (a *app) runMergeList() error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	merged, err := store.MergedDocuments().List()
	if err != nil {
		return fmt.Errorf("list merged documents: %w", err)
	}
	if a.flags.jsonMode {
		out := make([]mergedSummary, len(merged))
		for i, m := range merged {
			out[i] = summarizeMerged(m)
		}
		return a.printJSON(out)
	}
	if len(merged) == 0 {
		fmt.Fprintln(a.stdout, "No merged documents found.")
		return nil
	}
	names, err := clientNames(store)
	if err != nil {
		return err
	}
	rows := make([][]string, len(merged))
	for i, m := range merged {
		owners := make([]string, 0, len(m.ClientIDs))
		for _, id := range m.ClientIDs {
			if n, ok := names[id]; ok {
				owners = append(owners, n)
			}
		}
		rows[i] = []string{m.ID, truncate(m.Name, 40), orDash(truncate(joinNames(owners), 40)), formatTime(m.CreatedAt)}
	}
	printTable(a.stdout, []string{"ID", "NAME", "CLIENTS", "CREATED"}, rows)
	fmt.Fprintf(a.stdout, "Total: %d document(s)\n", len(merged))
	return nil
}

func newMergeGetCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "get <document-id>",
		Short: "Write a merged document's PDF to disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			m, err := store.MergedDocuments().Get(args[0])
			if err != nil {
				return fmt.Errorf("merged document %s: %w", args[0], err)
			}
			return a.writePayload(m.Data, output, m.Name)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination path (default: the document's name)")
	return cmd
}
