package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/creasty/defaults"
	"github.com/google/uuid"
)

const (
	accountsGetPath      = "/accounts/get"
	transactionsSyncPath = "/transactions/sync"
)

// Config contains settings for the HTTP provider client
type Config struct {
	BaseURL  string
	ClientID string
	Secret   string
	PageSize int           `default:"100"`
	Timeout  time.Duration `default:"3m"`
}

// HTTPClient is the REST implementation of Client
type HTTPClient struct {
	cfg        Config
	httpClient *http.Client
	tokens     TokenSource
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a provider client backed by the REST API
func NewHTTPClient(cfg Config, tokens TokenSource) (*HTTPClient, error) {
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply provider defaults: %w", err)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("provider base URL is required")
	}
	if cfg.ClientID == "" || cfg.Secret == "" {
		return nil, fmt.Errorf("provider credentials are required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("nil token source")
	}

	return &HTTPClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tokens:     tokens,
	}, nil
}

type accountsGetRequest struct {
	ClientID    string `json:"client_id"`
	Secret      string `json:"secret"`
	AccessToken string `json:"access_token"`
}

type accountsGetResponse struct {
	Accounts []Account `json:"accounts"`
}

type transactionsSyncRequest struct {
	ClientID    string  `json:"client_id"`
	Secret      string  `json:"secret"`
	AccessToken string  `json:"access_token"`
	Cursor      *string `json:"cursor,omitempty"`
	Count       int     `json:"count,omitempty"`
}

type transactionsSyncResponse struct {
	Added      []Transaction        `json:"added"`
	Modified   []Transaction        `json:"modified"`
	Removed    []RemovedTransaction `json:"removed"`
	NextCursor string               `json:"next_cursor"`
	HasMore    bool                 `json:"has_more"`
}

type errorResponse struct {
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// ListAccounts returns the current account snapshot for a linked item
func (c *HTTPClient) ListAccounts(ctx context.Context, userID uuid.UUID, itemID string) ([]Account, error) {
	token, err := c.tokens.AccessToken(ctx, userID, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve access token: %w", err)
	}

	var resp accountsGetResponse
	if err := c.post(ctx, accountsGetPath, &accountsGetRequest{
		ClientID:    c.cfg.ClientID,
		Secret:      c.cfg.Secret,
		AccessToken: token,
	}, &resp); err != nil {
		return nil, err
	}

	return resp.Accounts, nil
}

// FetchDeltaPage requests one page of transaction deltas
func (c *HTTPClient) FetchDeltaPage(ctx context.Context, userID uuid.UUID, itemID string, cursor *string) (*DeltaPage, error) {
	token, err := c.tokens.AccessToken(ctx, userID, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve access token: %w", err)
	}

	var resp transactionsSyncResponse
	if err := c.post(ctx, transactionsSyncPath, &transactionsSyncRequest{
		ClientID:    c.cfg.ClientID,
		Secret:      c.cfg.Secret,
		AccessToken: token,
		Cursor:      cursor,
		Count:       c.cfg.PageSize,
	}, &resp); err != nil {
		return nil, err
	}

	return &DeltaPage{
		Added:      resp.Added,
		Modified:   resp.Modified,
		Removed:    resp.Removed,
		NextCursor: resp.NextCursor,
		HasMore:    resp.HasMore,
	}, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.ErrorCode != "" {
			return &APIError{Code: apiErr.ErrorCode, Message: apiErr.ErrorMessage}
		}
		return &APIError{Message: fmt.Sprintf("%s returned status %d", path, resp.StatusCode)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}
