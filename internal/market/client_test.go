package market

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func almostEqual(got, want float64) bool {
	return math.Abs(got-want) <= 1e-9
}

func TestListMarketsUnwrapsEnvelopes(t *testing.T) {
	bodies := []string{
		`[{"question":"a"},{"question":"b"}]`,
		`{"data":[{"question":"a"},{"question":"b"}]}`,
		`{"markets":[{"question":"a"},{"question":"b"}]}`,
	}
	for _, body := range bodies {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/markets" {
				t.Errorf("path = %s", r.URL.Path)
			}
			if r.URL.Query().Get("active") != "true" {
				t.Error("active param missing")
			}
			w.Write([]byte(body))
		}))
		c := NewClient(srv.URL, srv.URL)
		markets, err := c.ListMarkets(context.Background(), 20, 0)
		srv.Close()
		if err != nil {
			t.Fatalf("list (%s): %v", body, err)
		}
		if len(markets) != 2 {
			t.Errorf("body %s: got %d markets, want 2", body, len(markets))
		}
	}
}

func TestListMarketsClampsPaging(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "100" {
			t.Errorf("limit = %s, want 100", got)
		}
		if got := r.URL.Query().Get("offset"); got != "0" {
			t.Errorf("offset = %s, want 0", got)
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL)
	if _, err := c.ListMarkets(context.Background(), 500, -3); err != nil {
		t.Fatalf("list: %v", err)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"question":"recovered"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL)
	body, err := c.GetMarket(context.Background(), "cond-1")
	if err != nil {
		t.Fatalf("get after retries: %v", err)
	}
	var doc marketDoc
	if err := json.Unmarshal(body, &doc); err != nil || doc.Question != "recovered" {
		t.Errorf("body = %s", body)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL)
	_, err := c.GetMarket(context.Background(), "cond-1")
	var apiErr *APIError
	if !isAPIError(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Fatalf("err = %v, want 404 APIError", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"question": "Will X happen?",
			"tokens": [
				{"outcome": "No", "price": 0.35},
				{"outcome": "Yes", "price": 0.65}
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL)
	title, price, err := c.Quote(context.Background(), "cond-1")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if title != "Will X happen?" {
		t.Errorf("title = %q", title)
	}
	if price == nil || !almostEqual(*price, 0.65) {
		t.Errorf("price = %v, want 0.65", price)
	}
}

func TestYesPriceFallbacks(t *testing.T) {
	cases := []struct {
		name string
		body string
		want float64
	}{
		{"outcome prices array", `{"outcomePrices": ["0.7","0.3"]}`, 0.7},
		{"outcome prices csv", `{"outcomePrices": "0.42,0.58"}`, 0.42},
		{"bid ask midpoint", `{"bestBid": 0.6, "bestAsk": "0.7"}`, 0.65},
		{"bid only", `{"bestBid": "0.55"}`, 0.55},
		{"clamped", `{"outcomePrices": ["1.4"]}`, 1},
	}
	for _, tc := range cases {
		var doc marketDoc
		if err := json.Unmarshal([]byte(tc.body), &doc); err != nil {
			t.Fatalf("%s: unmarshal: %v", tc.name, err)
		}
		got := doc.yesPrice()
		if got == nil || !almostEqual(*got, tc.want) {
			t.Errorf("%s: yesPrice = %v, want %v", tc.name, got, tc.want)
		}
	}

	var empty marketDoc
	if empty.yesPrice() != nil {
		t.Error("empty doc produced a price")
	}
}

func TestResolution(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		wantClosed bool
		wantYes    float64
	}{
		{"still active", `{"active": true, "outcomePrices": "1,0"}`, false, 0},
		{"yes won", `{"active": false, "outcomePrices": "1,0"}`, true, 1},
		{"no won", `{"active": false, "outcomePrices": ["0","1"]}`, true, 0},
		{"ambiguous", `{"active": false, "outcomePrices": "0.5,0.5"}`, false, 0},
		{"no prices", `{"active": false}`, false, 0},
		{"no active field", `{"outcomePrices": "1,0"}`, false, 0},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(tc.body))
		}))
		c := NewClient(srv.URL, srv.URL)
		closed, yes, err := c.Resolution(context.Background(), "cond-1")
		srv.Close()
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if closed != tc.wantClosed || (closed && !almostEqual(yes, tc.wantYes)) {
			t.Errorf("%s: closed=%v yes=%v, want closed=%v yes=%v", tc.name, closed, yes, tc.wantClosed, tc.wantYes)
		}
	}
}
