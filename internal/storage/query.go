package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Veraticus/household-ledger/internal/common"
	"github.com/Veraticus/household-ledger/internal/model"
)

// QueryReadOnly runs statement and renders up to limit rows as text.
// The statement runs inside a transaction that is always rolled back, so
// nothing it does can persist. Callers are expected to screen statements
// before they get here.
func (s *SQLiteStorage) QueryReadOnly(ctx context.Context, statement string, limit int) (model.QueryResult, error) {
	var result model.QueryResult
	if err := validateContext(ctx); err != nil {
		return result, err
	}
	if err := validateString(statement, "statement"); err != nil {
		return result, err
	}
	if limit <= 0 {
		return result, ErrInvalidLimit
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, common.NewStorageError("read-only query", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, statement)
	if err != nil {
		return result, common.NewStorageError("read-only query", err)
	}
	defer func() { _ = rows.Close() }()

	if result.Columns, err = rows.Columns(); err != nil {
		return result, common.NewStorageError("read-only query", err)
	}

	values := make([]any, len(result.Columns))
	ptrs := make([]any, len(values))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if len(result.Rows) == limit {
			result.Truncated = true
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return result, common.NewStorageError("read-only query", fmt.Errorf("failed to scan row: %w", err))
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return result, common.NewStorageError("read-only query", err)
	}
	return result, nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(time.DateTime)
	default:
		return fmt.Sprint(val)
	}
}
