package benchmark

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/syanhg/moltmarket/internal/kv"
	"github.com/syanhg/moltmarket/internal/models"
)

func almostEqual(got, want float64) bool {
	return math.Abs(got-want) <= 1e-9
}

func seedAgent(t *testing.T, store kv.Store, id, name string) models.Agent {
	t.Helper()
	agent := models.Agent{ID: id, Name: name, Color: "#3b82f6", Status: "active"}
	if err := store.Set(context.Background(), "agent:"+id, agent, 0); err != nil {
		t.Fatalf("seed agent: %v", err)
	}
	return agent
}

func seedTrade(t *testing.T, store kv.Store, trade models.Trade) {
	t.Helper()
	ctx := context.Background()
	if err := store.Set(ctx, tradeKey(trade.ID), trade, 0); err != nil {
		t.Fatalf("seed trade: %v", err)
	}
	if err := store.ListPush(ctx, allTradesKey, trade.ID); err != nil {
		t.Fatalf("seed trade list: %v", err)
	}
	if err := store.ListPush(ctx, agentTradesKey(trade.AgentID), trade.ID); err != nil {
		t.Fatalf("seed agent trade list: %v", err)
	}
}

func TestTradePnl(t *testing.T) {
	cases := []struct {
		name  string
		trade models.Trade
		want  float64
	}{
		{"confident yes", models.Trade{Side: "yes", Confidence: 0.9, Qty: 10}, 8},
		{"doubtful no", models.Trade{Side: "no", Confidence: 0.1, Qty: 5}, 4},
		{"coin flip", models.Trade{Side: "yes", Confidence: 0.5, Qty: 100}, 0},
		{"defaults applied", models.Trade{}, 0},
		{"bad confidence falls back", models.Trade{Side: "yes", Confidence: 7, Qty: 10}, 0},
		{"bad qty falls back", models.Trade{Side: "yes", Confidence: 1, Qty: -3}, 1},
	}
	for _, tc := range cases {
		if got := tradePnl(tc.trade); !almostEqual(got, tc.want) {
			t.Errorf("%s: tradePnl = %v, want %v", tc.name, got, tc.want)
		}
	}

	realized := -3.25
	resolved := models.Trade{Side: "yes", Confidence: 0.9, Qty: 10, Resolved: true, PnlRealized: &realized}
	if got := tradePnl(resolved); !almostEqual(got, realized) {
		t.Errorf("resolved trade: tradePnl = %v, want %v", got, realized)
	}
}

func TestSharpe(t *testing.T) {
	if got := sharpe(nil); got != 0 {
		t.Errorf("no trades: %v", got)
	}
	if got := sharpe([]float64{0.01}); got != 0 {
		t.Errorf("one trade: %v", got)
	}
	if got := sharpe([]float64{0.02, 0.02, 0.02}); got != 0 {
		t.Errorf("zero variance: %v", got)
	}
	// mean 0.01, population stddev 0.01 -> 1.0
	if got := sharpe([]float64{0, 0.02}); !almostEqual(got, 1) {
		t.Errorf("sharpe = %v, want 1", got)
	}
}

func TestLeaderboard(t *testing.T) {
	store := kv.NewMemoryStore()
	e := NewEngine(store, nil)
	ctx := context.Background()

	seedAgent(t, store, "a1", "alice")
	seedAgent(t, store, "a2", "bob")
	seedAgent(t, store, "a3", "carol")

	seedTrade(t, store, models.Trade{ID: "t1", AgentID: "a1", Side: "yes", Confidence: 0.9, Qty: 10, Timestamp: 100})
	seedTrade(t, store, models.Trade{ID: "t2", AgentID: "a1", Side: "no", Confidence: 0.1, Qty: 5, Timestamp: 200})
	seedTrade(t, store, models.Trade{ID: "t3", AgentID: "a2", Side: "yes", Confidence: 0.3, Qty: 10, Timestamp: 300})

	entries, err := e.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	top := entries[0]
	if top.AgentName != "alice" || top.Rank != 1 {
		t.Fatalf("top = %s rank %d", top.AgentName, top.Rank)
	}
	if !almostEqual(top.Pnl, 12) {
		t.Errorf("pnl = %v, want 12", top.Pnl)
	}
	if !almostEqual(top.Cash, 10012) || !almostEqual(top.AccountValue, 10012) {
		t.Errorf("cash = %v, account = %v, want 10012", top.Cash, top.AccountValue)
	}
	if !almostEqual(top.ReturnPct, 0.12) {
		t.Errorf("return_pct = %v, want 0.12", top.ReturnPct)
	}
	if !almostEqual(top.MaxWin, 8) || !almostEqual(top.MaxLoss, 0) {
		t.Errorf("max_win = %v, max_loss = %v", top.MaxWin, top.MaxLoss)
	}
	if top.Trades != 2 {
		t.Errorf("trades = %d, want 2", top.Trades)
	}

	// bob lost 4, carol has no trades: ranks 2 and 3 stay dense.
	if entries[1].AgentName != "carol" || entries[1].Rank != 2 {
		t.Errorf("second = %s rank %d", entries[1].AgentName, entries[1].Rank)
	}
	if entries[2].AgentName != "bob" || entries[2].Rank != 3 {
		t.Errorf("third = %s rank %d", entries[2].AgentName, entries[2].Rank)
	}
}

func TestLeaderboardRanksArePositional(t *testing.T) {
	store := kv.NewMemoryStore()
	e := NewEngine(store, nil)

	seedAgent(t, store, "a1", "alice")
	seedAgent(t, store, "a2", "bob")
	seedAgent(t, store, "a3", "carol")
	seedTrade(t, store, models.Trade{ID: "t1", AgentID: "a1", Side: "yes", Confidence: 0.8, Qty: 10})
	seedTrade(t, store, models.Trade{ID: "t2", AgentID: "a2", Side: "yes", Confidence: 0.8, Qty: 10})

	entries, err := e.Leaderboard(context.Background())
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	for i, entry := range entries {
		if entry.Rank != i+1 {
			t.Errorf("position %d has rank %d", i, entry.Rank)
		}
	}
	if entries[2].AgentName != "carol" {
		t.Errorf("last = %s, want carol", entries[2].AgentName)
	}
}

func TestHistory(t *testing.T) {
	store := kv.NewMemoryStore()
	e := NewEngine(store, nil)
	now := time.Unix(1_700_000_000, 0)
	e.SetClock(func() time.Time { return now })

	nowUnix := float64(now.Unix())
	cutoff := nowUnix - 48*3600

	seedAgent(t, store, "a1", "alice")
	// One trade before the window, two inside it.
	seedTrade(t, store, models.Trade{ID: "t0", AgentID: "a1", Side: "yes", Confidence: 0.9, Qty: 100, Timestamp: cutoff - 100})
	seedTrade(t, store, models.Trade{ID: "t1", AgentID: "a1", Side: "yes", Confidence: 0.9, Qty: 10, Timestamp: cutoff + 1000})
	seedTrade(t, store, models.Trade{ID: "t2", AgentID: "a1", Side: "no", Confidence: 0.9, Qty: 5, Timestamp: cutoff + 2000})

	series, err := e.History(context.Background(), 48)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(series) != 1 {
		t.Fatalf("got %d series, want 1", len(series))
	}
	data := series[0].Data
	// seed + 2 windowed trades + terminal point
	if len(data) != 4 {
		t.Fatalf("got %d points, want 4", len(data))
	}
	if data[0].Timestamp != cutoff || !almostEqual(data[0].Value, 10000) {
		t.Errorf("seed point = %+v", data[0])
	}
	if !almostEqual(data[1].Value, 10008) {
		t.Errorf("after first trade = %v, want 10008", data[1].Value)
	}
	if !almostEqual(data[2].Value, 10004) {
		t.Errorf("after second trade = %v, want 10004", data[2].Value)
	}
	if data[3].Timestamp != nowUnix || !almostEqual(data[3].Value, 10004) {
		t.Errorf("terminal point = %+v", data[3])
	}
}

func TestActivity(t *testing.T) {
	store := kv.NewMemoryStore()
	e := NewEngine(store, nil)
	ctx := context.Background()

	seedTrade(t, store, models.Trade{ID: "t1", AgentID: "a1", Timestamp: 1})
	seedTrade(t, store, models.Trade{ID: "t2", AgentID: "a1", Timestamp: 2})
	seedTrade(t, store, models.Trade{ID: "t3", AgentID: "a1", Timestamp: 3})

	trades, err := e.Activity(ctx, 2)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(trades))
	}
	// List pushes front, so newest first.
	if trades[0].ID != "t3" || trades[1].ID != "t2" {
		t.Errorf("order: %s, %s", trades[0].ID, trades[1].ID)
	}
}
