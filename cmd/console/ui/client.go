package ui

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client talks to the gateway's admin endpoints.
type Client struct {
	BaseURL string
	Token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// DeviceStats mirrors the per-device entry of /admin/queue/stats.
type DeviceStats struct {
	Pending int64 `json:"pending"`
	Sent    int64 `json:"sent"`
	Acked   int64 `json:"acked"`
	Failed  int64 `json:"failed"`
	Queued  int   `json:"queued"`
	Online  bool  `json:"online"`
}

// QueueStats mirrors /admin/queue/stats.
type QueueStats struct {
	TotalPending int64                  `json:"total_pending"`
	TotalSent    int64                  `json:"total_sent"`
	TotalQueued  int                    `json:"total_queued"`
	PerDevice    map[string]DeviceStats `json:"per_device"`
}

// ConnInfo mirrors one row of /admin/connections.
type ConnInfo struct {
	DeviceID      string    `json:"device_id"`
	ConnectedAt   time.Time `json:"connected_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	Alive         bool      `json:"alive"`
}

func (c *Client) get(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) FetchQueueStats() (*QueueStats, error) {
	var stats QueueStats
	if err := c.get("/admin/queue/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) FetchConnections() ([]ConnInfo, error) {
	var conns []ConnInfo
	if err := c.get("/admin/connections", &conns); err != nil {
		return nil, err
	}
	return conns, nil
}
