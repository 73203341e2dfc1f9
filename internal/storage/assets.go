package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/household-ledger/internal/common"
	"github.com/Veraticus/household-ledger/internal/model"
)

// ReplaceAssetSnapshot makes rows the complete statement for (owner, date).
// Whatever was stored for that pair before is removed first, in the same
// SQL transaction. Every row is stamped with owner and date. An empty set
// is a no-op so that a sheet without a statement never erases one.
func (s *SQLiteStorage) ReplaceAssetSnapshot(ctx context.Context, owner string, date time.Time, rows []model.AssetSnapshot) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(owner, "owner"); err != nil {
		return 0, err
	}
	if date.IsZero() {
		return 0, fmt.Errorf("%w: missing snapshot date", ErrInvalidSnapshot)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	for i := range rows {
		if err := validateSnapshot(&rows[i]); err != nil {
			return 0, fmt.Errorf("snapshot row %d: %w", i, err)
		}
	}

	day := model.TruncateDate(date).Format(model.DateLayout)

	err := s.withTx(ctx, "replace asset snapshot", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM asset_snapshots WHERE owner = ? AND snapshot_date = ?`, owner, day); err != nil {
			return fmt.Errorf("failed to delete existing snapshot: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO asset_snapshots (snapshot_date, balance_type, asset_type, account_name, amount, owner)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx,
				day, string(row.BalanceType), row.AssetType, row.AccountName, row.Amount, owner,
			); err != nil {
				return fmt.Errorf("failed to insert snapshot row %s: %w", row.AccountName, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.Info("Replaced asset snapshot", "owner", owner, "snapshot_date", day, "rows", len(rows))
	return len(rows), nil
}

// GetLatestAssets returns every owner's most recent statement.
func (s *SQLiteStorage) GetLatestAssets(ctx context.Context) ([]model.AssetSnapshot, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT a.snapshot_date, a.balance_type, a.asset_type, a.account_name, a.amount, a.owner
		FROM asset_snapshots a
		JOIN (
			SELECT owner, MAX(snapshot_date) AS latest
			FROM asset_snapshots
			GROUP BY owner
		) l ON a.owner = l.owner AND a.snapshot_date = l.latest
		ORDER BY a.owner, a.balance_type, a.id
	`)
	if err != nil {
		return nil, common.NewStorageError("get latest assets", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.AssetSnapshot
	for rows.Next() {
		var (
			snap    model.AssetSnapshot
			date    string
			balance string
		)
		if err := rows.Scan(&date, &balance, &snap.AssetType, &snap.AccountName, &snap.Amount, &snap.Owner); err != nil {
			return nil, common.NewStorageError("get latest assets", fmt.Errorf("failed to scan row: %w", err))
		}
		if snap.SnapshotDate, err = model.ParseDate(date); err != nil {
			return nil, common.NewStorageError("get latest assets", fmt.Errorf("bad stored date %q: %w", date, err))
		}
		snap.BalanceType = model.BalanceType(balance)
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewStorageError("get latest assets", err)
	}
	return out, nil
}

// GetAssetHistory returns net worth per snapshot date, oldest first.
// An empty owner returns the history of every owner.
func (s *SQLiteStorage) GetAssetHistory(ctx context.Context, owner string) ([]model.NetWorthPoint, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT snapshot_date, owner,
			COALESCE(SUM(CASE WHEN balance_type = 'asset' THEN amount END), 0),
			COALESCE(SUM(CASE WHEN balance_type = 'liability' THEN amount END), 0)
		FROM asset_snapshots
		WHERE ? = '' OR owner = ?
		GROUP BY snapshot_date, owner
		ORDER BY snapshot_date, owner
	`, owner, owner)
	if err != nil {
		return nil, common.NewStorageError("get asset history", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.NetWorthPoint
	for rows.Next() {
		var (
			point model.NetWorthPoint
			date  string
		)
		if err := rows.Scan(&date, &point.Owner, &point.TotalAssets, &point.TotalLiabilities); err != nil {
			return nil, common.NewStorageError("get asset history", fmt.Errorf("failed to scan row: %w", err))
		}
		if point.SnapshotDate, err = model.ParseDate(date); err != nil {
			return nil, common.NewStorageError("get asset history", fmt.Errorf("bad stored date %q: %w", date, err))
		}
		point.NetWorth = point.TotalAssets - point.TotalLiabilities
		out = append(out, point)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewStorageError("get asset history", err)
	}
	return out, nil
}
