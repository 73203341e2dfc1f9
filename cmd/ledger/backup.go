package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/household-ledger/internal/cli"
	"github.com/Veraticus/household-ledger/internal/common"
)

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage database backups",
		Long: `Create, list and restore copies of the ledger database. A backup is
taken automatically before 'ledger reset'.`,
		Example: `  ledger backup create --tag before-cleanup
  ledger backup list
  ledger backup restore before-cleanup`,
	}

	cmd.AddCommand(createBackupCmd())
	cmd.AddCommand(listBackupsCmd())
	cmd.AddCommand(restoreBackupCmd())

	return cmd
}

func createBackupCmd() *cobra.Command {
	var (
		tag    string
		reason string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a backup of the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, cleanup, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			manager, err := store.NewBackupManager()
			if err != nil {
				return err
			}
			info, err := manager.Create(ctx, tag, reason)
			if err != nil {
				return fmt.Errorf("failed to create backup: %w", err)
			}

			writeLine(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created backup %s (%s)", info.ID, formatFileSize(info.FileSize))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "backup name (generated from the time if empty)")
	cmd.Flags().StringVarP(&reason, "reason", "r", "manual", "note stored with the backup")
	return cmd
}

func listBackupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, cleanup, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			manager, err := store.NewBackupManager()
			if err != nil {
				return err
			}
			backups, err := manager.List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(backups) == 0 {
				writeLine(out, cli.FormatInfo("No backups found."))
				return nil
			}

			table := cli.Table{
				Headers: []string{"Name", "Created", "Size", "Transactions", "Snapshots", "Reason"},
				Align:   []cli.Align{cli.AlignLeft, cli.AlignLeft, cli.AlignRight, cli.AlignRight, cli.AlignRight, cli.AlignLeft},
			}
			for _, b := range backups {
				table.Rows = append(table.Rows, []string{
					b.ID,
					formatRelativeTime(b.CreatedAt, time.Now()),
					formatFileSize(b.FileSize),
					fmt.Sprint(b.RowCounts["transactions"]),
					fmt.Sprint(b.RowCounts["asset_snapshots"]),
					b.Reason,
				})
			}
			writeLine(out, table.Render())
			return nil
		},
	}
}

func restoreBackupCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "restore <backup>",
		Short: "Replace the database with a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if !yes {
				ok, err := cli.NewNonBlockingReader(cmd.InOrStdin()).Confirm(ctx, cmd.OutOrStdout(),
					fmt.Sprintf("Replace the current database with backup %s?", args[0]))
				if err != nil {
					return err
				}
				if !ok {
					writeLine(cmd.OutOrStdout(), cli.FormatInfo("Restore canceled."))
					return nil
				}
			}

			store, cleanup, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			manager, err := store.NewBackupManager()
			cleanup()
			if err != nil {
				return err
			}

			if err := manager.Restore(args[0]); err != nil {
				return common.NewUserError(fmt.Sprintf("could not restore %s", args[0]), err)
			}

			writeLine(cmd.OutOrStdout(), cli.FormatSuccess("Restored backup "+args[0]))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func formatRelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour") + " ago"
	case d < 48*time.Hour:
		return "yesterday"
	case d < 7*24*time.Hour:
		return plural(int(d.Hours()/24), "day") + " ago"
	default:
		return t.Format("2006-01-02 15:04")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
