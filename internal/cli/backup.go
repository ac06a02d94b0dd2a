package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/consultora/internal/backup"
	"github.com/mesh-intelligence/consultora/pkg/types"
)

func newBackupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up and restore all records",
		Long: `Back up every record to a JSON document and restore from one.

Backups go to the configured destination (backup.driver: fs or s3) under
backups/, or to a local file with --output.`,
	}
	cmd.AddCommand(newBackupCreateCmd(a), newBackupListCmd(a), newBackupRestoreCmd(a))
	return cmd
}

func newBackupCreateCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Write a backup of all records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			if output != "" {
				data, err := backup.CreateJSON(store)
				if err != nil {
					return fmt.Errorf("create backup: %w", err)
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
				fmt.Fprintf(a.stdout, "Wrote %s (%d bytes)\n", output, len(data))
				return nil
			}

			blobs, err := a.openBlobs(cmd.Context())
			if err != nil {
				return err
			}
			orch := backup.NewOrchestrator(store, blobs, a.logger, backup.WithClock(a.now))
			info, err := orch.Save(cmd.Context())
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return a.printJSON(info)
			}
			fmt.Fprintf(a.stdout, "Stored backup %s (%d bytes, %s)\n", info.Key, info.Size, blobs.Driver())
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the backup to this local file instead")
	return cmd
}

func newBackupListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			blobs, err := a.openBlobs(cmd.Context())
			if err != nil {
				return err
			}
			infos, err := backup.NewOrchestrator(store, blobs, a.logger).List(cmd.Context())
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return a.printJSON(infos)
			}
			if len(infos) == 0 {
				fmt.Fprintln(a.stdout, "No backups found.")
				return nil
			}
			rows := make([][]string, len(infos))
			for i, info := range infos {
				rows[i] = []string{info.Key, fmt.Sprint(info.Size), formatTime(info.LastModified)}
			}
			printTable(a.stdout, []string{"KEY", "BYTES", "MODIFIED"}, rows)
			return nil
		},
	}
}

func newBackupRestoreCmd(a *app) *cobra.Command {
	var (
		yes  bool
		file bool
	)
	cmd := &cobra.Command{
		Use:   "restore <key>",
		Short: "Replace all records with a backup",
		Long: `Replace every client, note, file, merged document, the credentials and
the option lists with the content of a backup. Tags are replaced only when
the backup carries them. The backup is validated in full before anything
changes.

Example:
  consultora backup restore backups/backup_consultora_2024-03-01_101500.000.json --yes
  consultora backup restore --file ./copia.json --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireYes(yes, "replace all records"); err != nil {
				return err
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			if file {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("%w: %w", types.ErrRestore, err)
				}
				if err := backup.Restore(store, data); err != nil {
					return err
				}
			} else {
				blobs, err := a.openBlobs(cmd.Context())
				if err != nil {
					return err
				}
				if err := backup.NewOrchestrator(store, blobs, a.logger).RestoreKey(cmd.Context(), args[0]); err != nil {
					return err
				}
			}
			fmt.Fprintf(a.stdout, "Restored %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm replacing all records")
	cmd.Flags().BoolVar(&file, "file", false, "treat the argument as a local file path")
	return cmd
}
