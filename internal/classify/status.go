package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// PollHealth probes the classifier health endpoint every interval and
// reports a short state string ("ok", "error", "http_503", or whatever
// state the endpoint returns).
func PollHealth(ctx context.Context, endpoint string, interval time.Duration, update func(string)) {
	if endpoint == "" || update == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	endpoint = strings.TrimRight(endpoint, "/")
	client := &http.Client{
		Timeout: 900 * time.Millisecond,
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		update(fetchStatus(ctx, client, endpoint))

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func fetchStatus(ctx context.Context, client *http.Client, endpoint string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "error"
	}
	resp, err := client.Do(req)
	if err != nil {
		return "error"
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("http_%d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "error"
	}
	return healthState(body)
}

// health is the subset of a classifier health document we understand.
// Model servers disagree on the key, so any of them may carry the state.
type health struct {
	Status string  `json:"status"`
	State  string  `json:"state"`
	Ready  *bool   `json:"ready"`
	Model  *health `json:"model"`
}

func (h health) state() string {
	switch {
	case h.Status != "":
		return h.Status
	case h.State != "":
		return h.State
	case h.Ready != nil && *h.Ready:
		return "ready"
	case h.Ready != nil:
		return "loading"
	case h.Model != nil:
		return h.Model.state()
	}
	return ""
}

// healthState reduces a 200 response body to a lower-case state. A body
// that is empty or carries no recognizable state still counts as "ok".
func healthState(body []byte) string {
	var h health
	if len(body) == 0 || json.Unmarshal(body, &h) != nil {
		return "ok"
	}
	if state := h.state(); state != "" {
		return strings.ToLower(state)
	}
	return "ok"
}
