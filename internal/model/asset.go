package model

import "time"

// BalanceType separates the two halves of a balance sheet.
type BalanceType string

const (
	// BalanceAsset marks something the household owns.
	BalanceAsset BalanceType = "asset"
	// BalanceLiability marks something the household owes.
	BalanceLiability BalanceType = "liability"
)

// AssetSnapshot is one balance line of a point-in-time statement.
// Amount is always a non-negative magnitude; liabilities are negated by
// consumers that need a signed figure (see Signed).
type AssetSnapshot struct {
	SnapshotDate time.Time
	BalanceType  BalanceType
	AssetType    string
	AccountName  string
	Owner        string
	Amount       int64
}

// Signed returns the amount with liabilities negated.
func (a AssetSnapshot) Signed() int64 {
	if a.BalanceType == BalanceLiability {
		return -a.Amount
	}
	return a.Amount
}

// BalanceSummary aggregates a set of snapshot rows.
type BalanceSummary struct {
	TotalAssets      int64
	TotalLiabilities int64
	NetWorth         int64
}

// Summarize totals assets and liabilities of rows.
func Summarize(rows []AssetSnapshot) BalanceSummary {
	var s BalanceSummary
	for _, r := range rows {
		switch r.BalanceType {
		case BalanceAsset:
			s.TotalAssets += r.Amount
		case BalanceLiability:
			s.TotalLiabilities += r.Amount
		}
		s.NetWorth += r.Signed()
	}
	return s
}

// NetWorthPoint is the net worth of one owner at one snapshot date.
type NetWorthPoint struct {
	SnapshotDate time.Time
	Owner        string
	BalanceSummary
}
