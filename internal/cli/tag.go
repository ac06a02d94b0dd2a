package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/consultora/pkg/types"
)

func newTagCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage client tags",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List tags by name",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runTagList()
			},
		},
		newTagAddCmd(a),
		newTagDeleteCmd(a),
	)
	return cmd
}

func (a *app) runTagList() error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	tags, err := store.Tags().List()
	if err != nil {
		return fmt.Errorf("list tags: %w", err)
	}
	if a.flags.jsonMode {
		return a.printJSON(tags)
	}
	if len(tags) == 0 {
		fmt.Fprintln(a.stdout, "No tags found.")
		return nil
	}
	clients, err := store.Clients().List()
	if err != nil {
		return fmt.Errorf("list clients: %w", err)
	}
	counts := make(map[string]int)
	for _, c := range clients {
		for _, id := range c.Tags {
			counts[id]++
		}
	}
	rows := make([][]string, len(tags))
	for i, t := range tags {
		rows[i] = []string{t.ID, t.Name, orDash(t.Color), fmt.Sprint(counts[t.ID])}
	}
	printTable(a.stdout, []string{"ID", "NAME", "COLOR", "CLIENTS"}, rows)
	return nil
}

func newTagAddCmd(a *app) *cobra.Command {
	var color string
	cmd := &cobra.Command{
		Use:   "add <name>...",
		Short: "Create a tag",
		Long: `Create a tag. The colour is a hex value such as #ff8800.

Example:
  consultora tag add Urgente --color "#e53935"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			tag := &types.Tag{Name: strings.TrimSpace(strings.Join(args, " ")), Color: strings.TrimSpace(color)}
			id, err := store.Tags().Save(tag)
			if err != nil {
				return fmt.Errorf("add tag: %w", err)
			}
			if a.flags.jsonMode {
				return a.printJSON(tag)
			}
			fmt.Fprintf(a.stdout, "Added tag %s (%s)\n", id, tag.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&color, "color", "", "hex colour")
	return cmd
}

func newTagDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <tag>",
		Short: "Delete a tag and remove it from every client",
		Long:  "Delete a tag, given by ID or name, and remove it from every client carrying it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireYes(yes, "delete a tag"); err != nil {
				return err
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			tag, err := resolveTag(store, args[0])
			if err != nil {
				return err
			}
			if err := store.Tags().Delete(tag.ID); err != nil {
				return fmt.Errorf("delete tag %s: %w", tag.ID, err)
			}
			fmt.Fprintf(a.stdout, "Deleted tag %s (%s)\n", tag.ID, tag.Name)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the deletion")
	return cmd
}
