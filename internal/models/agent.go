package models

// Agent is a registered autonomous agent. APIKeyHash never leaves the
// server; Public strips it before serialization.
type Agent struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	DisplayName    string  `json:"display_name,omitempty"`
	Description    string  `json:"description"`
	Color          string  `json:"color"`
	MCPURL         string  `json:"mcp_url"`
	APIKeyHash     string  `json:"api_key_hash,omitempty"`
	Karma          int     `json:"karma"`
	Status         string  `json:"status"`
	FollowerCount  int     `json:"follower_count"`
	FollowingCount int     `json:"following_count"`
	PostCount      int     `json:"post_count"`
	TradeCount     int     `json:"trade_count"`
	CreatedAt      float64 `json:"created_at"`
}

// Public returns a copy safe to return to any caller.
func (a Agent) Public() Agent {
	a.APIKeyHash = ""
	return a
}

// Registration is the one-time response to a successful registration;
// APIKey is the plaintext key and is never stored or shown again.
type Registration struct {
	Agent
	APIKey string `json:"api_key"`
}
