package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/household-ledger/internal/common"
	"github.com/Veraticus/household-ledger/internal/model"
)

// SyncCategories adds a zero budget for every expense category the
// reference owner has used that has no budget yet. Existing budgets are
// never touched. New rows are appended after the current last sort order.
// An empty referenceOwner considers every owner's transactions.
func (s *SQLiteStorage) SyncCategories(ctx context.Context, referenceOwner string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	added := 0
	err := s.withTx(ctx, "sync categories", func(tx *sql.Tx) error {
		var maxOrder int
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(sort_order), 0) FROM budgets`).Scan(&maxOrder); err != nil {
			return fmt.Errorf("failed to read sort order: %w", err)
		}

		categories, err := distinctExpenseCategories(ctx, tx, referenceOwner)
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO budgets (category, monthly_amount, is_fixed_cost, sort_order)
			VALUES (?, 0, 0, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, category := range categories {
			res, err := stmt.ExecContext(ctx, category, maxOrder+1)
			if err != nil {
				return fmt.Errorf("failed to insert budget %s: %w", category, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				added++
				maxOrder++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if added > 0 {
		slog.Info("Synced budget categories", "reference_owner", referenceOwner, "added", added)
	}
	return added, nil
}

func distinctExpenseCategories(ctx context.Context, tx *sql.Tx, owner string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT DISTINCT category_1
		FROM transactions
		WHERE tx_type = ? AND category_1 != '' AND (? = '' OR owner = ?)
		ORDER BY category_1
	`, string(model.TypeExpense), owner, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// GetBudgets returns all budgets in display order.
func (s *SQLiteStorage) GetBudgets(ctx context.Context) ([]model.Budget, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, monthly_amount, is_fixed_cost, sort_order
		FROM budgets
		ORDER BY sort_order, category
	`)
	if err != nil {
		return nil, common.NewStorageError("get budgets", err)
	}
	defer func() { _ = rows.Close() }()

	var budgets []model.Budget
	for rows.Next() {
		var b model.Budget
		if err := rows.Scan(&b.Category, &b.MonthlyAmount, &b.IsFixedCost, &b.SortOrder); err != nil {
			return nil, common.NewStorageError("get budgets", fmt.Errorf("failed to scan row: %w", err))
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewStorageError("get budgets", err)
	}
	return budgets, nil
}

// SaveBudgets stores user edits. The slice order becomes the display order.
func (s *SQLiteStorage) SaveBudgets(ctx context.Context, budgets []model.Budget) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	for i := range budgets {
		if err := validateBudget(&budgets[i]); err != nil {
			return err
		}
	}

	return s.withTx(ctx, "save budgets", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO budgets (category, monthly_amount, is_fixed_cost, sort_order, updated_at)
			VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(category) DO UPDATE SET
				monthly_amount = excluded.monthly_amount,
				is_fixed_cost = excluded.is_fixed_cost,
				sort_order = excluded.sort_order,
				updated_at = CURRENT_TIMESTAMP
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i, b := range budgets {
			if _, err := stmt.ExecContext(ctx, b.Category, b.MonthlyAmount, b.IsFixedCost, i+1); err != nil {
				return fmt.Errorf("failed to save budget %s: %w", b.Category, err)
			}
		}
		return nil
	})
}

// UpdateBudget edits one existing budget in place, keeping its sort order.
func (s *SQLiteStorage) UpdateBudget(ctx context.Context, b model.Budget) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBudget(&b); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE budgets
		SET monthly_amount = ?, is_fixed_cost = ?, updated_at = CURRENT_TIMESTAMP
		WHERE category = ?
	`, b.MonthlyAmount, b.IsFixedCost, b.Category)
	if err != nil {
		return common.NewStorageError("update budget", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("budget %q: %w", b.Category, common.ErrNotFound)
	}
	return nil
}

// GetCategoryAverages returns the average monthly expense per category over
// the months before now, as a positive magnitude. Months with no spending
// still count toward the average.
func (s *SQLiteStorage) GetCategoryAverages(ctx context.Context, referenceOwner string, months int, now time.Time) ([]model.CategoryAverage, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if months <= 0 {
		return nil, errors.New("months must be positive")
	}

	end := model.TruncateDate(now)
	start := end.AddDate(0, -months, 0)

	rows, err := s.db.QueryContext(ctx, `
		SELECT category_1, SUM(amount), COUNT(*)
		FROM transactions
		WHERE tx_type = ? AND category_1 != '' AND date > ? AND date <= ?
			AND (? = '' OR owner = ?)
		GROUP BY category_1
		ORDER BY category_1
	`, string(model.TypeExpense), start.Format(model.DateLayout), end.Format(model.DateLayout),
		referenceOwner, referenceOwner)
	if err != nil {
		return nil, common.NewStorageError("get category averages", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.CategoryAverage
	for rows.Next() {
		var (
			avg   model.CategoryAverage
			total int64
		)
		if err := rows.Scan(&avg.Category, &total, &avg.Transactions); err != nil {
			return nil, common.NewStorageError("get category averages", fmt.Errorf("failed to scan row: %w", err))
		}
		if total < 0 {
			total = -total
		}
		avg.AvgMonthly = total / int64(months)
		out = append(out, avg)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewStorageError("get category averages", err)
	}
	return out, nil
}
