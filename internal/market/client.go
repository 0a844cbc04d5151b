// Package market proxies the Polymarket public APIs: CLOB for markets
// and prices, Gamma for events. Responses pass through as raw JSON;
// the few fields the engine needs (question, yes-price, resolution)
// are extracted here.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/syanhg/moltmarket/internal/logger"
)

const (
	fetchTimeout = 10 * time.Second
	maxRetries   = 2
	retryBase    = 500 * time.Millisecond
)

// APIError is a non-2xx response from an upstream market API.
type APIError struct {
	Status int
	URL    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("market api %d: %s", e.Status, e.URL)
}

// Client talks to the CLOB and Gamma APIs. Base URLs are injectable
// so tests can point it at a local server.
type Client struct {
	clobBase  string
	gammaBase string
	http      *http.Client
	log       zerolog.Logger
}

func NewClient(clobBase, gammaBase string) *Client {
	return &Client{
		clobBase:  strings.TrimRight(clobBase, "/"),
		gammaBase: strings.TrimRight(gammaBase, "/"),
		http:      &http.Client{Timeout: fetchTimeout},
		log:       logger.GetForComponent("market"),
	}
}

// fetchJSON issues a GET with retry. Server errors and transport
// failures retry with exponential backoff; client errors never do.
func (c *Client) fetchJSON(ctx context.Context, rawURL string) (json.RawMessage, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := retryBase * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body, err := c.fetchOnce(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		var apiErr *APIError
		if isAPIError(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
			return nil, err
		}
		lastErr = err
		c.log.Debug().Err(err).Int("attempt", attempt).Str("url", rawURL).Msg("market fetch failed")
	}
	return nil, lastErr
}

func isAPIError(err error, target **APIError) bool {
	if e, ok := err.(*APIError); ok {
		*target = e
		return true
	}
	return false
}

func (c *Client) fetchOnce(ctx context.Context, rawURL string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, &APIError{Status: resp.StatusCode, URL: rawURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

func pageParams(limit, offset int) url.Values {
	return url.Values{
		"limit":  {strconv.Itoa(min(max(limit, 1), 100))},
		"offset": {strconv.Itoa(max(offset, 0))},
		"active": {"true"},
	}
}

// unwrapList accepts either a bare JSON array or an envelope with a
// data/markets/events field, which is how the upstream APIs vary.
func unwrapList(body json.RawMessage) ([]json.RawMessage, error) {
	var list []json.RawMessage
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("market list response: %w", err)
	}
	for _, field := range []string{"data", "markets", "events"} {
		if raw, ok := envelope[field]; ok {
			if err := json.Unmarshal(raw, &list); err == nil {
				return list, nil
			}
		}
	}
	return []json.RawMessage{}, nil
}

func (c *Client) ListMarkets(ctx context.Context, limit, offset int) ([]json.RawMessage, error) {
	body, err := c.fetchJSON(ctx, c.clobBase+"/markets?"+pageParams(limit, offset).Encode())
	if err != nil {
		return nil, err
	}
	return unwrapList(body)
}

func (c *Client) GetMarket(ctx context.Context, conditionID string) (json.RawMessage, error) {
	return c.fetchJSON(ctx, c.clobBase+"/markets/"+url.PathEscape(conditionID))
}

func (c *Client) ListEvents(ctx context.Context, limit, offset int) ([]json.RawMessage, error) {
	body, err := c.fetchJSON(ctx, c.gammaBase+"/events?"+pageParams(limit, offset).Encode())
	if err != nil {
		return nil, err
	}
	return unwrapList(body)
}

func (c *Client) GetEvent(ctx context.Context, eventID string) (json.RawMessage, error) {
	return c.fetchJSON(ctx, c.gammaBase+"/events/"+url.PathEscape(eventID))
}

func (c *Client) Prices(ctx context.Context, tokenIDs []string) (json.RawMessage, error) {
	if len(tokenIDs) == 0 {
		return json.RawMessage("{}"), nil
	}
	params := url.Values{"token_ids": {strings.Join(tokenIDs, ",")}}
	return c.fetchJSON(ctx, c.clobBase+"/prices?"+params.Encode())
}

// Quote returns the market's question and current yes-price for trade
// enrichment.
func (c *Client) Quote(ctx context.Context, marketID string) (string, *float64, error) {
	body, err := c.GetMarket(ctx, marketID)
	if err != nil {
		return "", nil, err
	}
	var doc marketDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", nil, fmt.Errorf("market %s: %w", marketID, err)
	}
	return doc.Question, doc.yesPrice(), nil
}

// Resolution reports whether a binary market has closed and which way.
// A closed market's outcome prices collapse to 1,0 (yes won) or 0,1;
// anything ambiguous reads as still open.
func (c *Client) Resolution(ctx context.Context, marketID string) (bool, float64, error) {
	body, err := c.GetMarket(ctx, marketID)
	if err != nil {
		return false, 0, err
	}
	var doc marketDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return false, 0, fmt.Errorf("market %s: %w", marketID, err)
	}
	if doc.Active == nil || *doc.Active {
		return false, 0, nil
	}
	first, ok := firstOutcomePrice(doc.OutcomePrices)
	if !ok || first == 0.5 {
		return false, 0, nil
	}
	if first > 0.5 {
		return true, 1, nil
	}
	return true, 0, nil
}
