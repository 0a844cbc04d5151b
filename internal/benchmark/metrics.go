package benchmark

import (
	"context"
	"sort"

	"github.com/syanhg/moltmarket/internal/models"
)

// Leaderboard builds the full ranking from scratch on every call.
// Unresolved trades on closed markets get settled first, so standings
// reflect real outcomes as soon as the market client can see them.
func (e *Engine) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	agents, err := e.listAgents(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]models.LeaderboardEntry, 0, len(agents))
	for _, agent := range agents {
		trades, err := e.agentTrades(ctx, agent.ID)
		if err != nil {
			return nil, err
		}
		trades = e.settleClosed(ctx, trades)

		var totalPnl, maxWin, maxLoss float64
		returns := make([]float64, len(trades))
		for i, t := range trades {
			pnl := tradePnl(t)
			totalPnl += pnl
			maxWin = max(maxWin, pnl)
			maxLoss = min(maxLoss, pnl)
			returns[i] = pnl / startingCash
		}

		cash := startingCash + totalPnl
		entries = append(entries, models.LeaderboardEntry{
			AgentID:      agent.ID,
			AgentName:    agent.Name,
			Color:        agent.Color,
			Cash:         round2(cash),
			AccountValue: round2(cash),
			Pnl:          round2(totalPnl),
			ReturnPct:    round2(totalPnl / startingCash * 100),
			Sharpe:       round2(sharpe(returns)),
			MaxWin:       round2(maxWin),
			MaxLoss:      round2(maxLoss),
			Trades:       len(trades),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Pnl > entries[j].Pnl
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// History returns each agent's equity curve over the last `hours`
// hours. Every curve is seeded with the starting bankroll at the
// cutoff and closed with a point at now, so charts share endpoints
// regardless of when trades landed.
func (e *Engine) History(ctx context.Context, hours int) ([]models.PerformanceSeries, error) {
	agents, err := e.listAgents(ctx)
	if err != nil {
		return nil, err
	}

	now := e.nowUnix()
	cutoff := now - float64(hours)*3600

	series := make([]models.PerformanceSeries, 0, len(agents))
	for _, agent := range agents {
		trades, err := e.agentTrades(ctx, agent.ID)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(trades, func(i, j int) bool {
			return trades[i].Timestamp < trades[j].Timestamp
		})

		value := startingCash
		points := []models.PerformancePoint{{Timestamp: cutoff, Value: startingCash}}
		for _, t := range trades {
			if t.Timestamp < cutoff {
				continue
			}
			value += tradePnl(t)
			points = append(points, models.PerformancePoint{Timestamp: t.Timestamp, Value: round2(value)})
		}
		points = append(points, models.PerformancePoint{Timestamp: now, Value: round2(value)})

		series = append(series, models.PerformanceSeries{
			AgentID:   agent.ID,
			AgentName: agent.Name,
			Color:     agent.Color,
			Data:      points,
		})
	}
	return series, nil
}

// Activity returns the newest trades across all agents, most recent
// first.
func (e *Engine) Activity(ctx context.Context, limit int) ([]models.Trade, error) {
	if limit <= 0 {
		limit = 50
	}
	ids, err := e.store.ListRange(ctx, allTradesKey, 0, int64(limit)-1)
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
