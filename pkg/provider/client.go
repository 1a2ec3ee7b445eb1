// Package provider contains the client for the external financial data
// provider's REST API: account snapshots and the cursor-based incremental
// transactions feed.
package provider

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Client defines the provider operations the sync engine depends on
type Client interface {
	// ListAccounts returns the current account snapshot for a linked item
	ListAccounts(ctx context.Context, userID uuid.UUID, itemID string) ([]Account, error)
	// FetchDeltaPage requests one page of transaction deltas. A nil cursor
	// means "from the beginning".
	FetchDeltaPage(ctx context.Context, userID uuid.UUID, itemID string, cursor *string) (*DeltaPage, error)
}

// TokenSource resolves the access token for a linked item. Token storage and
// decryption live outside this package.
type TokenSource interface {
	AccessToken(ctx context.Context, userID uuid.UUID, itemID string) (string, error)
}

// APIError is an error reported by the provider API
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider error %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("provider error: %s", e.Message)
}
