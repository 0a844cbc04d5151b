package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/syanhg/moltmarket/internal/benchmark"
	"github.com/syanhg/moltmarket/internal/kv"
	"github.com/syanhg/moltmarket/internal/social"
)

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := kv.NewMemoryStore()
	socialSvc := social.NewService(store)
	engine := benchmark.NewEngine(store, nil)
	srv := NewServer(store, socialSvc, engine, nil, "test")
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func doReq(t *testing.T, baseURL, apiKey, method, path string, body any) *http.Response {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal req: %v", err)
		}
	}
	req, err := http.NewRequest(method, baseURL+path, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode json: %v", err)
	}
}

func registerAgent(t *testing.T, baseURL, name string) (id, apiKey string) {
	t.Helper()
	resp := doReq(t, baseURL, "", http.MethodPost, "/api/v1/agents/register", map[string]any{
		"name":    name,
		"mcp_url": "https://example.com/mcp",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s status = %d", name, resp.StatusCode)
	}
	var out struct {
		Agent struct {
			ID string `json:"id"`
		} `json:"agent"`
		APIKey string `json:"api_key"`
	}
	decodeJSON(t, resp, &out)
	return out.Agent.ID, out.APIKey
}

func TestStatusEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	resp := doReq(t, ts.URL, "", http.MethodGet, "/api/v1/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out map[string]any
	decodeJSON(t, resp, &out)
	if out["status"] != "ok" || out["version"] != "test" {
		t.Errorf("body = %v", out)
	}
}

func TestRegisterAndAuthFlow(t *testing.T) {
	ts := setupTestServer(t)
	_, apiKey := registerAgent(t, ts.URL, "flow-agent")

	noAuth := doReq(t, ts.URL, "", http.MethodGet, "/api/v1/agents/me", nil)
	if noAuth.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no auth: %d", noAuth.StatusCode)
	}
	_ = noAuth.Body.Close()

	badKey := doReq(t, ts.URL, "moltmarket_deadbeef", http.MethodGet, "/api/v1/agents/me", nil)
	if badKey.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad key: %d", badKey.StatusCode)
	}
	_ = badKey.Body.Close()

	me := doReq(t, ts.URL, apiKey, http.MethodGet, "/api/v1/agents/me", nil)
	if me.StatusCode != http.StatusOK {
		t.Fatalf("me: %d", me.StatusCode)
	}
	var agent map[string]any
	decodeJSON(t, me, &agent)
	if agent["name"] != "flow-agent" {
		t.Errorf("name = %v", agent["name"])
	}
	if _, leaked := agent["api_key_hash"]; leaked {
		t.Error("api_key_hash leaked in response")
	}

	dup := doReq(t, ts.URL, "", http.MethodPost, "/api/v1/agents/register", map[string]any{
		"name":    "flow-agent",
		"mcp_url": "https://example.com/mcp",
	})
	if dup.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register: %d", dup.StatusCode)
	}
	_ = dup.Body.Close()
}

func TestPostAndVoteFlow(t *testing.T) {
	ts := setupTestServer(t)
	_, authorKey := registerAgent(t, ts.URL, "author")
	_, voterKey := registerAgent(t, ts.URL, "voter")

	create := doReq(t, ts.URL, authorKey, http.MethodPost, "/api/v1/posts", map[string]any{
		"title":   "Prediction thread",
		"content": "what happens next?",
		"submolt": "predictionmarkets",
	})
	if create.StatusCode != http.StatusCreated {
		t.Fatalf("create post: %d", create.StatusCode)
	}
	var post struct {
		ID      string `json:"id"`
		Submolt string `json:"submolt"`
	}
	decodeJSON(t, create, &post)
	if post.Submolt != "predictionmarkets" {
		t.Errorf("submolt = %s", post.Submolt)
	}

	noTitle := doReq(t, ts.URL, authorKey, http.MethodPost, "/api/v1/posts", map[string]any{"content": "x"})
	if noTitle.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing title: %d", noTitle.StatusCode)
	}
	_ = noTitle.Body.Close()

	vote := doReq(t, ts.URL, voterKey, http.MethodPost, "/api/v1/posts/"+post.ID+"/vote", map[string]any{"value": 1})
	if vote.StatusCode != http.StatusOK {
		t.Fatalf("vote: %d", vote.StatusCode)
	}
	var voted struct {
		Score    int `json:"score"`
		UserVote int `json:"user_vote"`
	}
	decodeJSON(t, vote, &voted)
	if voted.Score != 1 || voted.UserVote != 1 {
		t.Errorf("score=%d user_vote=%d", voted.Score, voted.UserVote)
	}

	badVote := doReq(t, ts.URL, voterKey, http.MethodPost, "/api/v1/posts/"+post.ID+"/vote", map[string]any{"value": 5})
	if badVote.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad vote value: %d", badVote.StatusCode)
	}
	_ = badVote.Body.Close()

	missing := doReq(t, ts.URL, voterKey, http.MethodPost, "/api/v1/posts/nope/vote", map[string]any{"value": 1})
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("vote on missing post: %d", missing.StatusCode)
	}
	_ = missing.Body.Close()

	feed := doReq(t, ts.URL, "", http.MethodGet, "/api/v1/posts?sort=top", nil)
	if feed.StatusCode != http.StatusOK {
		t.Fatalf("feed: %d", feed.StatusCode)
	}
	var feedOut struct {
		Posts []struct {
			ID string `json:"id"`
		} `json:"posts"`
		Total int `json:"total"`
	}
	decodeJSON(t, feed, &feedOut)
	if feedOut.Total != 1 || feedOut.Posts[0].ID != post.ID {
		t.Errorf("feed = %+v", feedOut)
	}
}

func TestVoteToggleOffReportsZeroUserVote(t *testing.T) {
	ts := setupTestServer(t)
	_, authorKey := registerAgent(t, ts.URL, "author")
	_, voterKey := registerAgent(t, ts.URL, "voter")

	create := doReq(t, ts.URL, authorKey, http.MethodPost, "/api/v1/posts", map[string]any{"title": "toggle"})
	var post struct {
		ID string `json:"id"`
	}
	decodeJSON(t, create, &post)

	first := doReq(t, ts.URL, voterKey, http.MethodPost, "/api/v1/posts/"+post.ID+"/vote", map[string]any{"value": 1})
	if first.StatusCode != http.StatusOK {
		t.Fatalf("first vote: %d", first.StatusCode)
	}
	_ = first.Body.Close()

	second := doReq(t, ts.URL, voterKey, http.MethodPost, "/api/v1/posts/"+post.ID+"/vote", map[string]any{"value": 1})
	if second.StatusCode != http.StatusOK {
		t.Fatalf("second vote: %d", second.StatusCode)
	}
	raw, err := io.ReadAll(second.Body)
	_ = second.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	// The cleared vote must be reported explicitly, not omitted.
	if !strings.Contains(string(raw), `"user_vote":0`) {
		t.Fatalf("toggle-off response missing user_vote=0: %s", raw)
	}
	var out struct {
		Score int `json:"score"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Score != 0 {
		t.Errorf("score = %d after toggle-off", out.Score)
	}
}

func TestCommentFlow(t *testing.T) {
	ts := setupTestServer(t)
	_, key := registerAgent(t, ts.URL, "commenter")

	create := doReq(t, ts.URL, key, http.MethodPost, "/api/v1/posts", map[string]any{"title": "t"})
	var post struct {
		ID string `json:"id"`
	}
	decodeJSON(t, create, &post)

	root := doReq(t, ts.URL, key, http.MethodPost, "/api/v1/comments", map[string]any{
		"post_id": post.ID,
		"content": "first",
	})
	if root.StatusCode != http.StatusCreated {
		t.Fatalf("comment: %d", root.StatusCode)
	}
	var rootOut struct {
		ID    string `json:"id"`
		Depth int    `json:"depth"`
	}
	decodeJSON(t, root, &rootOut)

	reply := doReq(t, ts.URL, key, http.MethodPost, "/api/v1/comments", map[string]any{
		"post_id":   post.ID,
		"content":   "second",
		"parent_id": rootOut.ID,
	})
	var replyOut struct {
		ID    string `json:"id"`
		Depth int    `json:"depth"`
	}
	decodeJSON(t, reply, &replyOut)
	if replyOut.Depth != rootOut.Depth+1 {
		t.Errorf("reply depth = %d, parent = %d", replyOut.Depth, rootOut.Depth)
	}

	list := doReq(t, ts.URL, "", http.MethodGet, "/api/v1/comments?post_id="+post.ID, nil)
	var tree struct {
		Comments []struct {
			ID       string `json:"id"`
			Children []struct {
				ID string `json:"id"`
			} `json:"children"`
		} `json:"comments"`
	}
	decodeJSON(t, list, &tree)
	if len(tree.Comments) != 1 || len(tree.Comments[0].Children) != 1 {
		t.Fatalf("tree = %+v", tree)
	}
	if tree.Comments[0].Children[0].ID != replyOut.ID {
		t.Errorf("child id = %s", tree.Comments[0].Children[0].ID)
	}

	empty := doReq(t, ts.URL, key, http.MethodPost, "/api/v1/comments", map[string]any{"post_id": post.ID})
	if empty.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty comment: %d", empty.StatusCode)
	}
	_ = empty.Body.Close()
}

func TestTradeAndLeaderboardFlow(t *testing.T) {
	ts := setupTestServer(t)
	agentID, key := registerAgent(t, ts.URL, "trader")

	trade := doReq(t, ts.URL, key, http.MethodPost, "/api/v1/trades", map[string]any{
		"market_id":  "mkt-1",
		"side":       "yes",
		"confidence": 0.9,
	})
	if trade.StatusCode != http.StatusCreated {
		t.Fatalf("trade: %d", trade.StatusCode)
	}
	var tradeOut struct {
		Qty  int    `json:"qty"`
		Side string `json:"side"`
	}
	decodeJSON(t, trade, &tradeOut)
	if tradeOut.Qty != 90 || tradeOut.Side != "yes" {
		t.Errorf("trade = %+v", tradeOut)
	}

	bad := doReq(t, ts.URL, key, http.MethodPost, "/api/v1/trades", map[string]any{"side": "yes"})
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad trade: %d", bad.StatusCode)
	}
	_ = bad.Body.Close()

	mine := doReq(t, ts.URL, key, http.MethodGet, "/api/v1/trades/me", nil)
	var mineOut struct {
		Total int `json:"total"`
	}
	decodeJSON(t, mine, &mineOut)
	if mineOut.Total != 1 {
		t.Errorf("my trades total = %d", mineOut.Total)
	}

	lb := doReq(t, ts.URL, "", http.MethodGet, "/api/v1/leaderboard", nil)
	if lb.StatusCode != http.StatusOK {
		t.Fatalf("leaderboard: %d", lb.StatusCode)
	}
	var lbOut struct {
		Leaderboard []struct {
			AgentID string  `json:"agent_id"`
			Rank    int     `json:"rank"`
			Pnl     float64 `json:"pnl"`
		} `json:"leaderboard"`
	}
	decodeJSON(t, lb, &lbOut)
	if len(lbOut.Leaderboard) != 1 {
		t.Fatalf("leaderboard = %+v", lbOut)
	}
	if lbOut.Leaderboard[0].AgentID != agentID || lbOut.Leaderboard[0].Rank != 1 {
		t.Errorf("entry = %+v", lbOut.Leaderboard[0])
	}
	// confidence 0.9 implies qty 90: (0.9-0.5)*2*90 = 72
	if lbOut.Leaderboard[0].Pnl != 72 {
		t.Errorf("pnl = %v, want 72", lbOut.Leaderboard[0].Pnl)
	}

	hist := doReq(t, ts.URL, "", http.MethodGet, "/api/v1/history?hours=24", nil)
	var histOut struct {
		Hours   int `json:"hours"`
		History []struct {
			AgentID string `json:"agent_id"`
			Data    []struct {
				Value float64 `json:"value"`
			} `json:"data"`
		} `json:"history"`
	}
	decodeJSON(t, hist, &histOut)
	if histOut.Hours != 24 || len(histOut.History) != 1 {
		t.Fatalf("history = %+v", histOut)
	}
	data := histOut.History[0].Data
	if len(data) < 2 || data[len(data)-1].Value != 10072 {
		t.Errorf("curve end = %+v", data)
	}

	activity := doReq(t, ts.URL, "", http.MethodGet, "/api/v1/activity", nil)
	var actOut struct {
		Activity []struct {
			AgentName string `json:"agent_name"`
		} `json:"activity"`
	}
	decodeJSON(t, activity, &actOut)
	if len(actOut.Activity) != 1 || actOut.Activity[0].AgentName != "trader" {
		t.Errorf("activity = %+v", actOut)
	}
}

func TestFollowEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	_, aliceKey := registerAgent(t, ts.URL, "alice")
	bobID, _ := registerAgent(t, ts.URL, "bob")

	follow := doReq(t, ts.URL, aliceKey, http.MethodPost, "/api/v1/agents/follow", map[string]any{
		"target_id": bobID,
	})
	if follow.StatusCode != http.StatusOK {
		t.Fatalf("follow: %d", follow.StatusCode)
	}
	var out struct {
		FollowerCount int `json:"follower_count"`
	}
	decodeJSON(t, follow, &out)
	if out.FollowerCount != 1 {
		t.Errorf("follower_count = %d", out.FollowerCount)
	}

	again := doReq(t, ts.URL, aliceKey, http.MethodPost, "/api/v1/agents/follow", map[string]any{
		"target_id": bobID,
	})
	if again.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate follow: %d", again.StatusCode)
	}
	_ = again.Body.Close()

	unfollow := doReq(t, ts.URL, aliceKey, http.MethodPost, "/api/v1/agents/follow", map[string]any{
		"target_id": bobID,
		"action":    "unfollow",
	})
	if unfollow.StatusCode != http.StatusOK {
		t.Fatalf("unfollow: %d", unfollow.StatusCode)
	}
	_ = unfollow.Body.Close()
}

func TestCORSPreflight(t *testing.T) {
	ts := setupTestServer(t)
	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/posts", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	defer resp.Body.Close()
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestMarketsUnconfigured(t *testing.T) {
	ts := setupTestServer(t)
	resp := doReq(t, ts.URL, "", http.MethodGet, "/api/v1/markets", nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("markets without client: %d", resp.StatusCode)
	}
	_ = resp.Body.Close()
}
