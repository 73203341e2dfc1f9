package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/household-ledger/internal/cli"
	"github.com/Veraticus/household-ledger/internal/common"
)

var (
	cfgFile    string
	version    = "dev"
	interrupts = cli.NewInterruptHandler(os.Stderr)
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Household finance ledger",
		Long: `ledger ingests the encrypted spreadsheet exports of a household's
finance app, keeps one reconciled history per member, and reports
budgets, spending and net worth.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initConfig,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/ledger/config.yaml)")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "console", "log format (console, json)")

	_ = viper.BindPFlag("logging.level", cmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", cmd.PersistentFlags().Lookup("log-format"))

	cmd.AddCommand(importCmd())
	cmd.AddCommand(scanCmd())
	cmd.AddCommand(budgetsCmd())
	cmd.AddCommand(assetsCmd())
	cmd.AddCommand(transactionsCmd())
	cmd.AddCommand(queryCmd())
	cmd.AddCommand(askCmd())
	cmd.AddCommand(exportCmd())
	cmd.AddCommand(backupCmd())
	cmd.AddCommand(resetCmd())
	cmd.AddCommand(migrateCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

func main() {
	ctx := interrupts.HandleInterrupts(context.Background(), false)

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		var userErr *common.UserError
		if errors.As(err, &userErr) {
			fmt.Fprintln(os.Stderr, cli.FormatError(userErr.Error()))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		viper.AddConfigPath(fmt.Sprintf("%s/.config/ledger", home))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("LEDGER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := common.SetupLogger(viper.GetString("logging.level"), viper.GetString("logging.format")); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	slog.Debug("Loaded configuration", "file", viper.ConfigFileUsed())

	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ledger %s\n", version)
		},
	}
}
