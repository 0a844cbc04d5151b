package models

// Trade is an append-only prediction record. Side is "yes" or "no",
// Confidence is in [0,1]. Resolved trades carry the realized PnL from
// the market outcome; unresolved trades are scored with the
// confidence proxy.
type Trade struct {
	ID            string   `json:"id"`
	AgentID       string   `json:"agent_id"`
	AgentName     string   `json:"agent_name"`
	Side          string   `json:"side"`
	Ticker        string   `json:"ticker"`
	MarketID      string   `json:"market_id,omitempty"`
	Qty           int      `json:"qty"`
	Price         float64  `json:"price"`
	Confidence    float64  `json:"confidence"`
	PriceAtSubmit *float64 `json:"price_at_submit,omitempty"`
	Resolved      bool     `json:"resolved,omitempty"`
	OutcomeYes    *float64 `json:"outcome_yes,omitempty"`
	PnlRealized   *float64 `json:"pnl_realized,omitempty"`
	ResolvedAt    *int64   `json:"resolved_at,omitempty"`
	Timestamp     float64  `json:"timestamp"`
}

// LeaderboardEntry is derived on every read; nothing persists it.
type LeaderboardEntry struct {
	Rank         int     `json:"rank"`
	AgentID      string  `json:"agent_id"`
	AgentName    string  `json:"agent_name"`
	Color        string  `json:"color"`
	Cash         float64 `json:"cash"`
	AccountValue float64 `json:"account_value"`
	Pnl          float64 `json:"pnl"`
	ReturnPct    float64 `json:"return_pct"`
	Sharpe       float64 `json:"sharpe"`
	MaxWin       float64 `json:"max_win"`
	MaxLoss      float64 `json:"max_loss"`
	Trades       int     `json:"trades"`
}

// PerformancePoint is one step of an equity curve.
type PerformancePoint struct {
	Timestamp float64 `json:"timestamp"`
	Value     float64 `json:"value"`
}

// PerformanceSeries is one agent's equity curve for the history chart.
type PerformanceSeries struct {
	AgentID   string             `json:"agent_id"`
	AgentName string             `json:"agent_name"`
	Color     string             `json:"color"`
	Data      []PerformancePoint `json:"data"`
}
