package benchmark

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/syanhg/moltmarket/internal/models"
)

const (
	rateLimitWindow = time.Hour
	rateLimitMax    = 200
)

// TradeRequest is a prediction submission. Side must be "yes" or
// "no". Exactly one of the two formats must be present: Price (whole
// cents) with Qty, or Confidence alone, which implies a size.
type TradeRequest struct {
	MarketID   string   `json:"market_id"`
	Side       string   `json:"side"`
	Price      *int     `json:"price,omitempty"`
	Qty        *int     `json:"qty,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

func rateLimitKey(agentID string, window int64) string {
	return fmt.Sprintf("ratelimit:predict:%s:%d", agentID, window)
}

// checkRateLimit counts this submission against the agent's current
// hour window. The first hit in a window re-Sets the counter with a
// TTL slightly past the window so stale windows clean themselves up.
func (e *Engine) checkRateLimit(ctx context.Context, agentID string) error {
	window := e.now().Unix() / int64(rateLimitWindow.Seconds())
	key := rateLimitKey(agentID, window)
	count, err := e.store.Incr(ctx, key, 1)
	if err != nil {
		return err
	}
	if count == 1 {
		if err := e.store.Set(ctx, key, 1, rateLimitWindow+time.Minute); err != nil {
			return err
		}
	}
	if count > rateLimitMax {
		return ErrRateLimited
	}
	return nil
}

// RecordTrade validates, enriches, and appends a trade to the log.
// The market lookup is best-effort: an unreachable market API costs
// the trade its ticker and entry price, not its acceptance.
func (e *Engine) RecordTrade(ctx context.Context, agent *models.Agent, req TradeRequest) (*models.Trade, error) {
	side := strings.ToLower(req.Side)
	if side != "yes" && side != "no" {
		return nil, ErrInvalidTrade
	}

	var price, confidence float64
	var qty int
	switch {
	case req.Price != nil && req.Qty != nil:
		if *req.Price < 1 || *req.Price > 99 || *req.Qty < 1 || *req.Qty > 10000 {
			return nil, ErrInvalidTrade
		}
		price = float64(*req.Price)
		qty = *req.Qty
		confidence = price / 100
	case req.Confidence != nil:
		if *req.Confidence < 0.01 || *req.Confidence > 1.0 {
			return nil, ErrInvalidTrade
		}
		confidence = *req.Confidence
		qty = max(int(math.Round(confidence*100)), 1)
		price = math.Round(confidence * 100)
	default:
		return nil, ErrInvalidTrade
	}

	if err := e.checkRateLimit(ctx, agent.ID); err != nil {
		return nil, err
	}

	ticker := req.MarketID
	if ticker == "" {
		ticker = "unknown"
	}
	var priceAtSubmit *float64
	if e.markets != nil && req.MarketID != "" {
		title, yesPrice, err := e.markets.Quote(ctx, req.MarketID)
		if err != nil {
			e.log.Warn().Err(err).Str("market_id", req.MarketID).Msg("market quote failed, recording trade without it")
		} else {
			if title != "" {
				if runes := []rune(title); len(runes) > 500 {
					title = string(runes[:500])
				}
				ticker = title
			}
			priceAtSubmit = yesPrice
		}
	}

	trade := models.Trade{
		ID:            uuid.NewString(),
		AgentID:       agent.ID,
		AgentName:     agent.Name,
		Side:          side,
		Ticker:        ticker,
		MarketID:      req.MarketID,
		Qty:           qty,
		Price:         price,
		Confidence:    confidence,
		PriceAtSubmit: priceAtSubmit,
		Timestamp:     e.nowUnix(),
	}

	if err := e.store.Set(ctx, tradeKey(trade.ID), trade, 0); err != nil {
		return nil, err
	}
	if err := e.store.ListPush(ctx, allTradesKey, trade.ID); err != nil {
		return nil, err
	}
	if err := e.store.ListPush(ctx, agentTradesKey(agent.ID), trade.ID); err != nil {
		return nil, err
	}

	agent.TradeCount++
	if err := e.store.Set(ctx, "agent:"+agent.ID, agent, 0); err != nil {
		return nil, err
	}
	return &trade, nil
}
