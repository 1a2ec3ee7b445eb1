// Package ledgerstore persists the canonical items, accounts, transactions
// and per-item sync state that the provider sync engine reconciles into.
package ledgerstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrAccountNotFound is returned when an account lookup finds no matching record.
var ErrAccountNotFound = errors.New("account not found")

// ErrItemNotFound is returned when a linked item lookup finds no matching record.
var ErrItemNotFound = errors.New("linked item not found")

// UnitOfWork defines the storage operations available inside one atomic
// unit of work. Implementations back it with a database transaction; the
// unit either commits as a whole or leaves no trace.
type UnitOfWork interface {
	// UpsertAccount inserts an account or overwrites its mutable fields,
	// keyed by (user, item, external account id).
	UpsertAccount(ctx context.Context, acct AccountUpsert) error

	// GetOrCreateSyncState returns the sync state for an item, creating a
	// row with a null cursor if none exists. Safe to call redundantly.
	GetOrCreateSyncState(ctx context.Context, itemID uuid.UUID) (*SyncState, error)

	// TouchAccountsSynced refreshes the item's accounts-last-synced timestamp.
	TouchAccountsSynced(ctx context.Context, itemID uuid.UUID) error

	// UpdateSyncCursor unconditionally overwrites the item's resume cursor.
	UpdateSyncCursor(ctx context.Context, itemID uuid.UUID, cursor string) error

	// ResolveAccountID maps a provider account id to the canonical account,
	// scoped to the owning user and item. Returns ErrAccountNotFound when
	// no such account exists.
	ResolveAccountID(ctx context.Context, userID, itemID uuid.UUID, externalAccountID string) (uuid.UUID, error)

	// UpsertTransaction inserts a transaction by external id, or revives and
	// overwrites an existing row (clearing any soft-delete marker).
	UpsertTransaction(ctx context.Context, txn NewTransaction) error

	// RelinkPendingToPosted rewrites the row stored under the pending external
	// id to carry the posted id and fields, clearing the pending flag.
	// Returns false when no live row exists under the pending id.
	RelinkPendingToPosted(ctx context.Context, pendingID, postedID string, posted NewTransaction) (bool, error)

	// ApplyTransactionPatch updates mutable fields on the live row matched by
	// external id. Returns the number of rows updated (zero is a no-op, not
	// an error).
	ApplyTransactionPatch(ctx context.Context, externalTxnID string, patch TransactionPatch) (int64, error)

	// SoftDeleteTransactions marks the given external ids deleted, scoped to
	// accounts owned by the user. Already-deleted rows are left unchanged.
	// Returns the number of rows newly marked.
	SoftDeleteTransactions(ctx context.Context, userID uuid.UUID, externalTxnIDs []string) (int64, error)
}

// Store is the full storage contract of the sync engine
type Store interface {
	UnitOfWork

	// ListActiveItems enumerates the user's active linked items in creation order.
	ListActiveItems(ctx context.Context, userID uuid.UUID) ([]*Item, error)

	// GetItemAccessToken returns the provider access token for the user's
	// linked item. Returns ErrItemNotFound when no active item matches.
	GetItemAccessToken(ctx context.Context, userID uuid.UUID, externalItemID string) (string, error)

	// InTx runs fn inside one database transaction. Any error rolls the
	// whole unit back.
	InTx(ctx context.Context, fn func(ctx context.Context, tx UnitOfWork) error) error
}
