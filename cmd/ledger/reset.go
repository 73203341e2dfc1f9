package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/household-ledger/internal/cli"
)

func resetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all imported data",
		Long: `Reset deletes every stored transaction, asset statement and processed
file marker so exports can be imported from scratch. Budgets are kept.
A backup is written first; restore it with 'ledger backup restore'.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if !yes {
				ok, err := cli.NewNonBlockingReader(cmd.InOrStdin()).Confirm(ctx, out,
					"This deletes all transactions and asset statements. Continue?")
				if err != nil {
					return err
				}
				if !ok {
					writeLine(out, cli.FormatInfo("Reset canceled."))
					return nil
				}
			}

			store, cleanup, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			manager, err := store.NewBackupManager()
			if err != nil {
				return err
			}
			info, err := manager.Create(ctx, "", "before reset")
			if err != nil {
				return fmt.Errorf("failed to back up before reset: %w", err)
			}

			if err := store.ClearAllData(ctx); err != nil {
				return err
			}

			writeLine(out, cli.FormatSuccess(fmt.Sprintf("Ledger data cleared. Backup saved as %s.", info.ID)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
