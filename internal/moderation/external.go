package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// ExternalClient calls an OpenAI-style moderation endpoint. The call is best
// effort: every failure degrades to local scoring and must never reach the
// sender.
type ExternalClient struct {
	url    string
	apiKey string
	client *http.Client
}

// NewExternalClient builds a client for the given endpoint. Returns nil when
// no API key is configured so callers can skip the check entirely.
func NewExternalClient(url, apiKey string, timeout time.Duration) *ExternalClient {
	if apiKey == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ExternalClient{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

type moderationRequest struct {
	Input string `json:"input"`
}

type moderationResponse struct {
	Results []struct {
		Flagged    bool            `json:"flagged"`
		Categories map[string]bool `json:"categories"`
	} `json:"results"`
}

// Check submits text for review. It returns whether the text was flagged and
// a human-readable reason built from the flagged category names.
func (c *ExternalClient) Check(ctx context.Context, text string) (bool, string, error) {
	body, err := json.Marshal(moderationRequest{Input: text})
	if err != nil {
		return false, "", fmt.Errorf("moderation: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return false, "", fmt.Errorf("moderation: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return false, "", fmt.Errorf("moderation: external call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, "", fmt.Errorf("moderation: external call status %d", resp.StatusCode)
	}

	var out moderationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, "", fmt.Errorf("moderation: decode response: %w", err)
	}
	if len(out.Results) == 0 || !out.Results[0].Flagged {
		return false, "", nil
	}

	var categories []string
	for name, hit := range out.Results[0].Categories {
		if hit {
			categories = append(categories, name)
		}
	}
	sort.Strings(categories)
	reason := "Flagged by moderation service"
	if len(categories) > 0 {
		reason = "Flagged for: " + strings.Join(categories, ", ")
	}
	return true, reason, nil
}
