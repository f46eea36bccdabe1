package binance

// Position is one entry of the USDT-M futures positionRisk response. Numeric
// fields stay as the venue's decimal strings; parsing is owned by the strategy
// layer, which rejects malformed values instead of coercing them.
type Position struct {
	Symbol           string `json:"symbol"`
	PositionSide     string `json:"positionSide"`
	PositionAmt      string `json:"positionAmt"`
	EntryPrice       string `json:"entryPrice"`
	BreakEvenPrice   string `json:"breakEvenPrice"`
	MarkPrice        string `json:"markPrice"`
	UnrealizedProfit string `json:"unRealizedProfit"`
	LiquidationPrice string `json:"liquidationPrice"`
	Notional         string `json:"notional"`
	MarginAsset      string `json:"marginAsset"`
	InitialMargin    string `json:"initialMargin"`
	MaintMargin      string `json:"maintMargin"`
	ADL              int    `json:"adl"`
	UpdateTime       int64  `json:"updateTime"`
}

// OrderResult is the acknowledgement for a newly placed futures order.
type OrderResult struct {
	OrderID       int64  `json:"orderId"`
	Symbol        string `json:"symbol"`
	Status        string `json:"status"`
	ClientOrderID string `json:"clientOrderId"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	OrigQty       string `json:"origQty"`
	ReduceOnly    bool   `json:"reduceOnly"`
	UpdateTime    int64  `json:"updateTime"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}
