package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Veraticus/household-ledger/internal/cli"
	"github.com/Veraticus/household-ledger/internal/model"
	"github.com/Veraticus/household-ledger/internal/report"
	"github.com/Veraticus/household-ledger/internal/storage"
)

func assetsCmd() *cobra.Command {
	var (
		history bool
		owner   string
	)

	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Show the latest balance sheet of each owner",
		Long: `Show every owner's most recent asset statement, or with --history the
net worth at each imported snapshot date.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			owner, err = ownerFlag(cfg, owner)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, cleanup, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			if history {
				points, err := store.GetAssetHistory(ctx, owner)
				if err != nil {
					return err
				}
				if len(points) == 0 {
					writeLine(out, cli.FormatInfo("No asset statements imported yet."))
					return nil
				}
				writeLine(out, cli.FormatTitle("Net worth history"))
				writeLine(out, renderHistory(points))
				return nil
			}

			return showLatestAssets(cmd, out, store, owner)
		},
	}

	cmd.Flags().BoolVar(&history, "history", false, "show net worth per snapshot date")
	cmd.Flags().StringVarP(&owner, "owner", "o", "", "only this owner")
	return cmd
}

func showLatestAssets(cmd *cobra.Command, out io.Writer, store *storage.SQLiteStorage, owner string) error {
	rows, err := store.GetLatestAssets(cmd.Context())
	if err != nil {
		return err
	}

	byOwner := make(map[string][]model.AssetSnapshot)
	for _, r := range rows {
		if owner != "" && r.Owner != owner {
			continue
		}
		byOwner[r.Owner] = append(byOwner[r.Owner], r)
	}
	if len(byOwner) == 0 {
		writeLine(out, cli.FormatInfo("No asset statements imported yet."))
		return nil
	}

	owners := make([]string, 0, len(byOwner))
	for o := range byOwner {
		owners = append(owners, o)
	}
	sort.Strings(owners)

	var household model.BalanceSummary
	for _, o := range owners {
		snapshot := byOwner[o]
		summary := model.Summarize(snapshot)
		household.TotalAssets += summary.TotalAssets
		household.TotalLiabilities += summary.TotalLiabilities
		household.NetWorth += summary.NetWorth

		writeLine(out, cli.FormatTitle(fmt.Sprintf("%s (%s)", o, snapshot[0].SnapshotDate.Format(model.DateLayout))))
		writeLine(out, renderSnapshot(snapshot))
		writeLine(out, fmt.Sprintf("Net worth: %s\n", cli.StyleAmount(summary.NetWorth)))
	}

	if len(owners) > 1 {
		writeLine(out, cli.RenderBox("Household", fmt.Sprintf("Assets       %s\nLiabilities  %s\nNet worth    %s",
			cli.FormatWon(household.TotalAssets),
			cli.FormatWon(household.TotalLiabilities),
			cli.StyleAmount(household.NetWorth))))
	}
	return nil
}

func renderSnapshot(rows []model.AssetSnapshot) string {
	table := cli.Table{
		Headers: []string{"Type", "Asset", "Account", "Balance"},
		Align:   []cli.Align{cli.AlignLeft, cli.AlignLeft, cli.AlignLeft, cli.AlignRight},
	}
	for _, r := range rows {
		table.Rows = append(table.Rows, []string{string(r.BalanceType), r.AssetType, r.AccountName, cli.StyleAmount(r.Signed())})
	}
	return table.Render()
}

func renderHistory(points []model.NetWorthPoint) string {
	table := cli.Table{
		Headers: []string{"Date", "Owner", "Assets", "Liabilities", "Net worth"},
		Align:   []cli.Align{cli.AlignLeft, cli.AlignLeft, cli.AlignRight, cli.AlignRight, cli.AlignRight},
	}
	for _, p := range points {
		table.Rows = append(table.Rows, []string{
			p.SnapshotDate.Format(model.DateLayout),
			p.Owner,
			cli.FormatWon(p.TotalAssets),
			cli.FormatWon(p.TotalLiabilities),
			cli.StyleAmount(p.NetWorth),
		})
	}

	latest := report.LatestPerOwner(points)
	if len(latest) > 1 {
		var total int64
		for _, p := range latest {
			total += p.NetWorth
		}
		table.Rows = append(table.Rows, []string{"", "", "", "", ""}, []string{"Latest", "household", "", "", cli.StyleAmount(total)})
	}
	return table.Render()
}
