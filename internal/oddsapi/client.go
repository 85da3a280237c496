// Package oddsapi is the client for The Odds API v4.
// API docs: https://the-odds-api.com/liveapi/guides/v4/
package oddsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the production API host.
	DefaultBaseURL = "https://api.the-odds-api.com"

	requestTimeout = 30 * time.Second
	maxRetries     = 3

	// timeFormat is what commenceTimeFrom/To accept: second precision,
	// no fractional part.
	timeFormat = "2006-01-02T15:04:05Z"
)

// APIError is a non-2xx response from the feed. Callers branch on
// StatusCode: a 404 on a props market means the market is not offered,
// not that the request failed.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("odds api: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("odds api: %s", e.Message)
}

// Client talks to The Odds API for one sport.
type Client struct {
	baseURL string
	apiKey  string
	sport   string
	regions string
	client  *http.Client
}

// NewClient builds a client. baseURL falls back to DefaultBaseURL when empty.
func NewClient(baseURL, apiKey, sport, regions string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		sport:   sport,
		regions: regions,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// get performs the request with retries. 401 and 422 fail immediately
// since retrying a bad key or bad parameters cannot help; everything
// else gets up to maxRetries attempts with exponential backoff.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	params.Set("apiKey", c.apiKey)
	reqURL := c.baseURL + endpoint + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<attempt) * 100 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = &APIError{Message: fmt.Sprintf("request error: %v", err)}
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = &APIError{Message: fmt.Sprintf("reading response: %v", err)}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusUnauthorized:
			return nil, &APIError{StatusCode: 401, Message: "invalid API key"}
		case resp.StatusCode == http.StatusUnprocessableEntity:
			return nil, &APIError{StatusCode: 422, Message: fmt.Sprintf("invalid parameters: %s", body)}
		case resp.StatusCode == http.StatusNotFound:
			lastErr = &APIError{StatusCode: 404, Message: "resource not found"}
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = &APIError{StatusCode: 429, Message: "rate limit exceeded"}
		default:
			lastErr = &APIError{StatusCode: resp.StatusCode, Message: string(body)}
		}
	}

	return nil, lastErr
}

// ListEvents fetches scheduled events with commence times inside
// [from, to]. Zero times skip the corresponding filter.
func (c *Client) ListEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	endpoint := fmt.Sprintf("/v4/sports/%s/events", c.sport)

	params := url.Values{}
	if !from.IsZero() {
		params.Set("commenceTimeFrom", from.UTC().Format(timeFormat))
	}
	if !to.IsZero() {
		params.Set("commenceTimeTo", to.UTC().Format(timeFormat))
	}

	body, err := c.get(ctx, endpoint, params)
	if err != nil {
		return nil, fmt.Errorf("fetching events: %w", err)
	}

	var events []Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("parsing events response: %w", err)
	}
	return events, nil
}

// GetEventOdds fetches American odds for one event and market. Player
// props are non-featured markets and only exist on the per-event
// endpoint, not the sport-wide odds endpoint. Passing bookmaker keys
// restricts the response to those books; none means every book in the
// configured regions.
func (c *Client) GetEventOdds(ctx context.Context, eventID, markets string, bookmakers ...string) (*EventOdds, error) {
	endpoint := fmt.Sprintf("/v4/sports/%s/events/%s/odds", c.sport, eventID)

	params := url.Values{}
	params.Set("regions", c.regions)
	params.Set("markets", markets)
	params.Set("oddsFormat", "american")
	if len(bookmakers) > 0 {
		params.Set("bookmakers", strings.Join(bookmakers, ","))
	}

	body, err := c.get(ctx, endpoint, params)
	if err != nil {
		return nil, fmt.Errorf("fetching event odds: %w", err)
	}

	var odds EventOdds
	if err := json.Unmarshal(body, &odds); err != nil {
		return nil, fmt.Errorf("parsing event odds response: %w", err)
	}
	return &odds, nil
}
