package market

import (
	"encoding/json"
	"strconv"
	"strings"
)

// marketDoc is the slice of a CLOB market response this service
// actually reads. The upstream schema is loose: numbers arrive as
// strings or floats, and outcome prices as either a CSV string or an
// array.
type marketDoc struct {
	Question      string          `json:"question"`
	Active        *bool           `json:"active"`
	Tokens        []marketToken   `json:"tokens"`
	OutcomePrices json.RawMessage `json:"outcomePrices"`
	BestBid       json.RawMessage `json:"bestBid"`
	BestAsk       json.RawMessage `json:"bestAsk"`
}

type marketToken struct {
	Outcome string   `json:"outcome"`
	Price   *float64 `json:"price"`
}

// yesPrice extracts the YES price in [0,1], trying the token list,
// then outcome prices, then the bid/ask midpoint.
func (d marketDoc) yesPrice() *float64 {
	for _, tok := range d.Tokens {
		if strings.EqualFold(tok.Outcome, "yes") && tok.Price != nil {
			p := clamp01(*tok.Price)
			return &p
		}
	}

	if first, ok := firstOutcomePrice(d.OutcomePrices); ok {
		p := clamp01(first)
		return &p
	}

	bid, bidOK := looseNumber(d.BestBid)
	ask, askOK := looseNumber(d.BestAsk)
	switch {
	case bidOK && askOK:
		p := clamp01((bid + ask) / 2)
		return &p
	case bidOK:
		p := clamp01(bid)
		return &p
	case askOK:
		p := clamp01(ask)
		return &p
	}
	return nil
}

// firstOutcomePrice reads the first value from an outcomePrices field
// shaped as ["0.65","0.35"], [0.65,0.35], or "0.65,0.35".
func firstOutcomePrice(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		if len(arr) == 0 {
			return 0, false
		}
		return looseNumber(arr[0])
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		first := strings.SplitN(s, ",", 2)[0]
		v, err := strconv.ParseFloat(strings.TrimSpace(first), 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

// looseNumber accepts a JSON number or a numeric string.
func looseNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
