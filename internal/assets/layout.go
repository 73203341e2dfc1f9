package assets

// Layout holds the labels that locate the balance statement on the asset sheet.
type Layout struct {
	Marker           string
	ItemLabel        string
	ProductLabel     string
	TotalMarker      string
	AccountLabels    []string
	AmountLabels     []string
	MarkerColumn     int
	HeaderSearchRows int
	FallbackSplit    int
}

// DefaultLayout matches the aggregator's asset sheet.
func DefaultLayout() Layout {
	return Layout{
		Marker:           "재무현황",
		MarkerColumn:     1,
		HeaderSearchRows: 10,
		ItemLabel:        "항목",
		ProductLabel:     "상품명",
		AccountLabels:    []string{"상품명", "계좌"},
		AmountLabels:     []string{"금액", "잔액"},
		TotalMarker:      "총자산",
		FallbackSplit:    4,
	}
}

func (l Layout) withDefaults() Layout {
	def := DefaultLayout()
	if l.Marker == "" {
		l.Marker = def.Marker
		l.MarkerColumn = def.MarkerColumn
	}
	if l.MarkerColumn < 0 {
		l.MarkerColumn = def.MarkerColumn
	}
	if l.HeaderSearchRows <= 0 {
		l.HeaderSearchRows = def.HeaderSearchRows
	}
	if l.ItemLabel == "" {
		l.ItemLabel = def.ItemLabel
	}
	if l.ProductLabel == "" {
		l.ProductLabel = def.ProductLabel
	}
	if len(l.AccountLabels) == 0 {
		l.AccountLabels = def.AccountLabels
	}
	if len(l.AmountLabels) == 0 {
		l.AmountLabels = def.AmountLabels
	}
	if l.TotalMarker == "" {
		l.TotalMarker = def.TotalMarker
	}
	if l.FallbackSplit <= 0 {
		l.FallbackSplit = def.FallbackSplit
	}
	return l
}
