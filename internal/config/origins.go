package config

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Origins is the backend origin pair returned by the remote configuration
// endpoint at startup.
type Origins struct {
	Primary   string `json:"backend1"`
	Secondary string `json:"backend2"`
}

// FetchOrigins retrieves the origin pair from the remote configuration
// endpoint. Callers fall back to static configuration when this fails; an
// empty pair is an error so the fallback path always runs.
func FetchOrigins(ctx context.Context, url string) (Origins, error) {
	if url == "" {
		return Origins{}, fmt.Errorf("config endpoint url required")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Origins{}, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return Origins{}, fmt.Errorf("config fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return Origins{}, fmt.Errorf("config endpoint error %s: %s", resp.Status, string(body))
	}

	var out Origins
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Origins{}, fmt.Errorf("failed to decode config response: %w", err)
	}
	if out.Primary == "" || out.Secondary == "" {
		return Origins{}, fmt.Errorf("config endpoint returned incomplete origin pair")
	}
	return out, nil
}
