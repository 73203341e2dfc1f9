package model

import "time"

// TransactionType classifies the direction of a ledger entry.
type TransactionType string

const (
	// TypeIncome is money received.
	TypeIncome TransactionType = "income"
	// TypeExpense is money spent.
	TypeExpense TransactionType = "expense"
	// TypeTransfer moves money between the household's own accounts.
	TypeTransfer TransactionType = "transfer"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeTransfer:
		return true
	}
	return false
}

// DefaultTime is stored when the export has no clock time for a row.
const DefaultTime = "00:00"

// Transaction represents a single financial movement from a ledger export.
type Transaction struct {
	Date          time.Time
	Time          string // HH:MM
	Type          TransactionType
	Category1     string // major category
	Category2     string // minor category
	Description   string
	Currency      string
	PaymentSource string
	Memo          string
	Owner         string
	SourceFile    string
	ID            int64 // surrogate row id, zero until stored
	Amount        int64 // whole currency units, signed
}
