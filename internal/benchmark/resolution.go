package benchmark

import (
	"context"

	"github.com/syanhg/moltmarket/internal/models"
)

// realizedPnl settles a trade against the market outcome. Entry price
// is the yes-price captured at submission when we have it, otherwise
// the stated confidence.
func realizedPnl(t models.Trade, outcomeYes float64) float64 {
	entry := t.Confidence
	if t.PriceAtSubmit != nil {
		entry = *t.PriceAtSubmit
	}
	qty := float64(t.Qty)
	if t.Side == "no" {
		return round2((entry - outcomeYes) * qty)
	}
	return round2((outcomeYes - entry) * qty)
}

// settleClosed resolves any open trades whose market has since
// closed, persisting the realized PnL so the sweep is idempotent.
// Market failures leave the trade open on its proxy score; a broken
// resolution feed must not take the leaderboard down with it.
func (e *Engine) settleClosed(ctx context.Context, trades []models.Trade) []models.Trade {
	if e.markets == nil {
		return trades
	}

	type outcome struct {
		closed bool
		yes    float64
	}
	cache := make(map[string]outcome)

	for i, t := range trades {
		if t.Resolved || t.MarketID == "" {
			continue
		}
		res, seen := cache[t.MarketID]
		if !seen {
			closed, yes, err := e.markets.Resolution(ctx, t.MarketID)
			if err != nil {
				e.log.Warn().Err(err).Str("market_id", t.MarketID).Msg("resolution lookup failed, keeping proxy pnl")
				cache[t.MarketID] = outcome{}
				continue
			}
			res = outcome{closed: closed, yes: yes}
			cache[t.MarketID] = res
		}
		if !res.closed {
			continue
		}

		pnl := realizedPnl(t, res.yes)
		resolvedAt := e.now().Unix()
		outcomeYes := res.yes

		t.Resolved = true
		t.OutcomeYes = &outcomeYes
		t.PnlRealized = &pnl
		t.ResolvedAt = &resolvedAt
		if err := e.store.Set(ctx, tradeKey(t.ID), t, 0); err != nil {
			e.log.Warn().Err(err).Str("trade_id", t.ID).Msg("failed to persist settled trade")
			continue
		}
		trades[i] = t
	}
	return trades
}
