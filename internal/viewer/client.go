package viewer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pscheid92/menupulse/internal/domain"
)

const httpCallTimeout = 10 * time.Second

// APIError is a non-2xx answer from the dish API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dish api returned %d: %s", e.Status, e.Message)
}

// Unwrap lets callers match a 404 with errors.Is(err, domain.ErrDishNotFound).
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return domain.ErrDishNotFound
	}
	return nil
}

// Client talks to the dish API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client for the server at baseURL. A nil httpClient gets a default with a call timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: httpCallTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// WebSocketURL returns the live-channel endpoint of the server.
func (c *Client) WebSocketURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse server URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server URL scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

func (c *Client) ListDishes(ctx context.Context) ([]domain.Dish, error) {
	var dishes []domain.Dish
	if err := c.do(ctx, http.MethodGet, "/api/dishes", nil, &dishes); err != nil {
		return nil, fmt.Errorf("failed to list dishes: %w", err)
	}
	return dishes, nil
}

func (c *Client) Toggle(ctx context.Context, id int64) (domain.Dish, error) {
	var dish domain.Dish
	path := "/api/dishes/" + strconv.FormatInt(id, 10) + "/toggle"
	if err := c.do(ctx, http.MethodPost, path, nil, &dish); err != nil {
		return domain.Dish{}, fmt.Errorf("failed to toggle dish %d: %w", id, err)
	}
	return dish, nil
}

func (c *Client) BulkUpdate(ctx context.Context, updates []domain.PublishUpdate) ([]domain.Dish, error) {
	if updates == nil {
		updates = []domain.PublishUpdate{}
	}
	request := map[string]any{"updates": updates}

	var response struct {
		UpdatedDishes []domain.Dish `json:"updatedDishes"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/dishes/bulk-update", request, &response); err != nil {
		return nil, fmt.Errorf("failed to bulk update dishes: %w", err)
	}
	return response.UpdatedDishes, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Error == "" {
			errBody.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: errBody.Error}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
