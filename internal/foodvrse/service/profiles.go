package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/25x8/foodvrse/internal/foodvrse/models"
)

// ProfileClient reads the friend graph from a PostgREST-style profile API
type ProfileClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewProfileClient creates a new profile API client
func NewProfileClient(baseURL, apiKey string) *ProfileClient {
	return &ProfileClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Friends returns the profiles of a user's friends
func (c *ProfileClient) Friends(ctx context.Context, userID string) ([]models.Profile, error) {
	body, err := json.Marshal(map[string]string{"p_user_id": userID})
	if err != nil {
		return nil, err
	}

	var profiles []models.Profile
	if err := c.do(ctx, http.MethodPost, "/rest/v1/rpc/friend_profiles", bytes.NewReader(body), &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// Profile returns the profile of a single user, or nil if it does not exist
func (c *ProfileClient) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	q := url.Values{}
	q.Set("user_id", "eq."+userID)
	q.Set("select", "user_id,display_name,avatar_url")

	var profiles []models.Profile
	if err := c.do(ctx, http.MethodGet, "/rest/v1/profiles?"+q.Encode(), nil, &profiles); err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, nil
	}
	return &profiles[0], nil
}

func (c *ProfileClient) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Handle rate limiting
	if resp.StatusCode == http.StatusTooManyRequests {
		if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			return fmt.Errorf("profile api rate limited, retry after %d seconds", seconds)
		}
		return fmt.Errorf("profile api rate limited")
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("profile api returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
