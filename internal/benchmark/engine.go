// Package benchmark scores agent prediction performance: paper-PnL
// per trade, the leaderboard, and per-agent equity curves. Nothing
// here is persisted; every read derives from the trade log.
package benchmark

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/syanhg/moltmarket/internal/kv"
	"github.com/syanhg/moltmarket/internal/logger"
	"github.com/syanhg/moltmarket/internal/models"
)

// startingCash is the paper bankroll every agent begins with.
const startingCash = 10000.0

var (
	ErrInvalidTrade = errors.New("trade needs either price (1-99) with qty (1-10000), or confidence (0.01-1.0)")
	ErrRateLimited  = errors.New("trade rate limit exceeded")
)

// MarketSource supplies the market data the engine enriches trades
// with. Both calls are best-effort from the engine's point of view:
// failures degrade the data, never the operation.
type MarketSource interface {
	// Quote returns the market's title and current yes-price.
	Quote(ctx context.Context, marketID string) (title string, yesPrice *float64, err error)
	// Resolution reports whether the market has closed and, if so,
	// whether the yes outcome won (1) or lost (0).
	Resolution(ctx context.Context, marketID string) (closed bool, outcomeYes float64, err error)
}

// Engine computes metrics over the trade log in the store. markets
// may be nil, which disables quote enrichment and lazy resolution.
type Engine struct {
	store   kv.Store
	markets MarketSource
	now     func() time.Time
	log     zerolog.Logger
}

func NewEngine(store kv.Store, markets MarketSource) *Engine {
	return &Engine{
		store:   store,
		markets: markets,
		now:     time.Now,
		log:     logger.GetForComponent("benchmark"),
	}
}

// SetClock overrides the time source. Tests only.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

func (e *Engine) nowUnix() float64 {
	return float64(e.now().UnixMilli()) / 1000
}

func tradeKey(id string) string       { return "trade:" + id }
func agentTradesKey(id string) string { return "trades:agent:" + id }

const allTradesKey = "trades:all"

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// tradePnl scores one trade. Resolved trades carry their realized
// PnL; open trades are scored by how far conviction sits from a coin
// flip, signed by side. Missing fields fall back to neutral defaults
// so one malformed record cannot poison an aggregate.
func tradePnl(t models.Trade) float64 {
	if t.Resolved && t.PnlRealized != nil {
		return *t.PnlRealized
	}
	conf := t.Confidence
	if conf <= 0 || conf > 1 {
		conf = 0.5
	}
	qty := t.Qty
	if qty <= 0 {
		qty = 1
	}
	direction := 1.0
	if strings.ToLower(t.Side) == "no" {
		direction = -1
	}
	spread := (conf - 0.5) * 2
	return spread * float64(qty) * direction
}

// sharpe is mean over population standard deviation of per-trade
// returns. Fewer than two trades, or zero variance, yields 0.
func sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))

	stddev := math.Sqrt(variance)
	if stddev == 0 {
		return 0
	}
	return mean / stddev
}

// TradesFor returns one agent's full trade log, newest first.
func (e *Engine) TradesFor(ctx context.Context, agentID string) ([]models.Trade, error) {
	return e.agentTrades(ctx, agentID)
}

func (e *Engine) agentTrades(ctx context.Context, agentID string) ([]models.Trade, error) {
	ids, err := e.store.ListRange(ctx, agentTradesKey(agentID), 0, -1)
	if err != nil {
		return nil, err
	}
	trades := make([]models.Trade, 0, len(ids))
	for _, id := range ids {
		var trade models.Trade
		ok, err := e.store.Get(ctx, tradeKey(id), &trade)
		if err != nil {
			return nil, err
		}
		if ok {
			trades = append(trades, trade)
		}
	}
	return trades, nil
}

func (e *Engine) listAgents(ctx context.Context) ([]models.Agent, error) {
	keys, err := e.store.Keys(ctx, "agent:*")
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	agents := make([]models.Agent, 0, len(keys))
	for _, k := range keys {
		if !strings.HasPrefix(k, "agent:") {
			continue
		}
		var agent models.Agent
		ok, err := e.store.Get(ctx, k, &agent)
		if err != nil {
			return nil, err
		}
		if ok {
			agents = append(agents, agent)
		}
	}
	return agents, nil
}
