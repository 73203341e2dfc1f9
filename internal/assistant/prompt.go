package assistant

import (
	"fmt"
	"strings"
)

const schema = `Tables (SQLite):

transactions
  date TEXT            YYYY-MM-DD
  time TEXT            HH:MM
  tx_type TEXT         income | expense | transfer
  category_1 TEXT      major category
  category_2 TEXT      minor category
  description TEXT     merchant or memo line
  amount INTEGER       whole won; expenses are negative
  currency TEXT
  payment_source TEXT
  memo TEXT
  owner TEXT
  source_file TEXT

asset_snapshots
  snapshot_date TEXT   YYYY-MM-DD
  balance_type TEXT    asset | liability
  asset_type TEXT
  account_name TEXT
  amount INTEGER       non-negative; subtract liabilities for net worth
  owner TEXT

budgets
  category TEXT        matches transactions.category_1
  monthly_amount INTEGER
  is_fixed_cost INTEGER  1 for fixed costs
  sort_order INTEGER`

func (a *Assistant) systemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a careful household budget analyst.\n")
	if len(a.owners) > 0 {
		fmt.Fprintf(&b, "Household members: %s.\n", strings.Join(a.owners, ", "))
	}
	fmt.Fprintf(&b, "Today is %s.\n\n", a.clock().Format("2006-01-02"))
	b.WriteString(schema)
	b.WriteString(`

Rules:
- Always look the data up with query_database before answering.
- Keep queries narrow; select only what the question needs.
- Exclude transfers (tx_type = 'transfer') from spending figures.
- Without an explicit period, use the current month.
- Amounts are whole won.
- Answer in the language of the question.`)
	return b.String()
}
