package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/consultora/pkg/types"
)

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage credentials and option lists",
	}
	cmd.AddCommand(newCredentialsCmd(a), newOptionsCmd(a))
	return cmd
}

func newCredentialsCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Show or change the application credentials",
		Long: `Show the application credentials, or change them with --username and
--password. Credentials are stored in clear text.

Example:
  consultora settings credentials
  consultora settings credentials --username Nestor --password nueva`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			creds, err := store.Settings().Credentials()
			if err != nil {
				return fmt.Errorf("read credentials: %w", err)
			}
			changed := false
			if cmd.Flags().Changed("username") {
				creds.Username, changed = strings.TrimSpace(username), true
			}
			if cmd.Flags().Changed("password") {
				creds.Password, changed = password, true
			}
			if changed {
				if err := store.Settings().SetCredentials(creds); err != nil {
					return fmt.Errorf("update credentials: %w", err)
				}
			}
			if a.flags.jsonMode {
				return a.printJSON(creds)
			}
			if changed {
				fmt.Fprintln(a.stdout, "Updated credentials")
			}
			printFields(a.stdout, [][2]string{
				{"Username", creds.Username},
				{"Password", creds.Password},
			})
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "new username")
	cmd.Flags().StringVar(&password, "password", "", "new password")
	return cmd
}

func newOptionsCmd(a *app) *cobra.Command {
	fields := make([]string, len(types.OptionFields))
	for i, f := range types.OptionFields {
		fields[i] = string(f)
	}
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Manage the values offered for categorical client fields",
		Long:  "Manage the option lists. Fields: " + strings.Join(fields, ", ") + ".",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list [field]",
			Short: "List option values, numbered from 1",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runOptionsList(args)
			},
		},
		&cobra.Command{
			Use:   "add <field> <value>...",
			Short: "Append a value to an option list",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				value := strings.Join(args[1:], " ")
				return a.editOptions(args[0], func(o *types.OptionLists, f types.OptionField) error {
					return o.Add(f, value)
				})
			},
		},
		&cobra.Command{
			Use:   "rename <field> <number> <value>...",
			Short: "Replace the value at a position",
			Args:  cobra.MinimumNArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				index, err := optionIndex(args[1])
				if err != nil {
					return err
				}
				value := strings.Join(args[2:], " ")
				return a.editOptions(args[0], func(o *types.OptionLists, f types.OptionField) error {
					return o.Rename(f, index, value)
				})
			},
		},
		&cobra.Command{
			Use:   "remove <field> <number>",
			Short: "Remove the value at a position",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				index, err := optionIndex(args[1])
				if err != nil {
					return err
				}
				return a.editOptions(args[0], func(o *types.OptionLists, f types.OptionField) error {
					return o.Remove(f, index)
				})
			},
		},
	)
	return cmd
}

// optionIndex converts a 1-based position from the command line.
func optionIndex(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, usageErrorf("position must be a number from 1, got %q", arg)
	}
	return n - 1, nil
}

func (a *app) runOptionsList(args []string) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	lists, err := store.Settings().OptionLists()
	if err != nil {
		return fmt.Errorf("read option lists: %w", err)
	}
	fields := types.OptionFields
	if len(args) == 1 {
		f, err := types.ParseOptionField(args[0])
		if err != nil {
			return err
		}
		fields = []types.OptionField{f}
	}

	if a.flags.jsonMode {
		if len(args) == 1 {
			values, _ := lists.Values(fields[0])
			return a.printJSON(values)
		}
		return a.printJSON(lists)
	}
	var rows [][]string
	for _, f := range fields {
		values, err := lists.Values(f)
		if err != nil {
			return err
		}
		for i, v := range values {
			rows = append(rows, []string{string(f), strconv.Itoa(i + 1), v})
		}
	}
	printTable(a.stdout, []string{"FIELD", "#", "VALUE"}, rows)
	return nil
}

// editOptions applies edit to the stored option lists and saves the result.
func (a *app) editOptions(field string, edit func(*types.OptionLists, types.OptionField) error) error {
	f, err := types.ParseOptionField(field)
	if err != nil {
		return err
	}
	store, err := a.openStore()
	if err != nil {
		return err
	}
	lists, err := store.Settings().OptionLists()
	if err != nil {
		return fmt.Errorf("read option lists: %w", err)
	}
	if err := edit(&lists, f); err != nil {
		return err
	}
	if err := store.Settings().SetOptionLists(lists); err != nil {
		return fmt.Errorf("save option lists: %w", err)
	}
	values, _ := lists.Values(f)
	if a.flags.jsonMode {
		return a.printJSON(values)
	}
	fmt.Fprintf(a.stdout, "%s: %s\n", f, strings.Join(values, ", "))
	return nil
}
