package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/consultora/pkg/types"
)

func newNoteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Manage client notes",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list <client-id>",
			Short: "List the notes of a client, newest first",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runNoteList(args[0])
			},
		},
		&cobra.Command{
			Use:   "add <client-id> <text>...",
			Short: "Add a note to a client",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runNoteAdd(args[0], strings.Join(args[1:], " "))
			},
		},
		&cobra.Command{
			Use:   "edit <note-id> <text>...",
			Short: "Replace the text of a note",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runNoteEdit(args[0], strings.Join(args[1:], " "))
			},
		},
		&cobra.Command{
			Use:   "delete <note-id>",
			Short: "Delete a note",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := a.openStore()
				if err != nil {
					return err
				}
				if err := store.Notes().Delete(args[0]); err != nil {
					return fmt.Errorf("delete note %s: %w", args[0], err)
				}
				fmt.Fprintf(a.stdout, "Deleted note %s\n", args[0])
				return nil
			},
		},
	)
	return cmd
}

func (a *app) runNoteList(clientID string) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	if _, err := store.Clients().Get(clientID); err != nil {
		return fmt.Errorf("client %s: %w", clientID, err)
	}
	notes, err := store.Notes().ListByClient(clientID)
	if err != nil {
		return fmt.Errorf("list notes: %w", err)
	}
	if a.flags.jsonMode {
		return a.printJSON(notes)
	}
	if len(notes) == 0 {
		fmt.Fprintln(a.stdout, "No notes found.")
		return nil
	}
	rows := make([][]string, len(notes))
	for i, n := range notes {
		rows[i] = []string{n.ID, formatTime(n.CreatedAt), truncate(n.Content, 60)}
	}
	printTable(a.stdout, []string{"ID", "DATE", "CONTENT"}, rows)
	fmt.Fprintf(a.stdout, "Total: %d note(s)\n", len(notes))
	return nil
}

func (a *app) runNoteAdd(clientID, content string) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	if _, err := store.Clients().Get(clientID); err != nil {
		return fmt.Errorf("client %s: %w", clientID, err)
	}
	n := &types.Note{ClientID: clientID, Content: strings.TrimSpace(content)}
	id, err := store.Notes().Save(n)
	if err != nil {
		return fmt.Errorf("add note: %w", err)
	}
	if a.flags.jsonMode {
		return a.printJSON(n)
	}
	fmt.Fprintf(a.stdout, "Added note %s\n", id)
	return nil
}

func (a *app) runNoteEdit(id, content string) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	n, err := store.Notes().Get(id)
	if err != nil {
		return fmt.Errorf("note %s: %w", id, err)
	}
	n.Content = strings.TrimSpace(content)
	if _, err := store.Notes().Save(n); err != nil {
		return fmt.Errorf("edit note: %w", err)
	}
	if a.flags.jsonMode {
		return a.printJSON(n)
	}
	fmt.Fprintf(a.stdout, "Updated note %s\n", id)
	return nil
}
