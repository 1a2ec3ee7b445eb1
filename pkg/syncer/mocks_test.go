package syncer

// TODO: remove the mock impl and use mockery to generate mock

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gochippr/backend/pkg/ledgerstore"
	"github.com/gochippr/backend/pkg/provider"
)

// MockProviderClient is a mock implementation of provider.Client
type MockProviderClient struct {
	ListAccountsFunc   func(ctx context.Context, userID uuid.UUID, itemID string) ([]provider.Account, error)
	FetchDeltaPageFunc func(ctx context.Context, userID uuid.UUID, itemID string, cursor *string) (*provider.DeltaPage, error)
}

func (m *MockProviderClient) ListAccounts(ctx context.Context, userID uuid.UUID, itemID string) ([]provider.Account, error) {
	if m.ListAccountsFunc != nil {
		return m.ListAccountsFunc(ctx, userID, itemID)
	}
	return nil, nil
}

func (m *MockProviderClient) FetchDeltaPage(ctx context.Context, userID uuid.UUID, itemID string, cursor *string) (*provider.DeltaPage, error) {
	if m.FetchDeltaPageFunc != nil {
		return m.FetchDeltaPageFunc(ctx, userID, itemID, cursor)
	}
	return &provider.DeltaPage{}, nil
}

// memTxn is one transaction row held by memStore
type memTxn struct {
	rec     ledgerstore.NewTransaction
	deleted bool
}

// memStore is an in-memory ledgerstore.Store. InTx emulates transactional
// rollback by snapshotting state before fn and restoring it on error, so
// engine tests can observe exactly what a failed unit leaves behind.
type memStore struct {
	items        []*ledgerstore.Item
	accounts     map[string]uuid.UUID    // external account id -> canonical id
	accountOwner map[uuid.UUID]uuid.UUID // canonical account id -> owning user
	txns         map[string]*memTxn      // external txn id -> row
	states       map[uuid.UUID]*ledgerstore.SyncState

	listItemsErr     error
	upsertAccountErr error
	upsertTxnErr     func(txn ledgerstore.NewTransaction) error
	updateCursorErr  func(cursor string) error
}

func newMemStore(items ...*ledgerstore.Item) *memStore {
	return &memStore{
		items:        items,
		accounts:     make(map[string]uuid.UUID),
		accountOwner: make(map[uuid.UUID]uuid.UUID),
		txns:         make(map[string]*memTxn),
		states:       make(map[uuid.UUID]*ledgerstore.SyncState),
	}
}

type memSnapshot struct {
	accounts     map[string]uuid.UUID
	accountOwner map[uuid.UUID]uuid.UUID
	txns         map[string]*memTxn
	states       map[uuid.UUID]*ledgerstore.SyncState
}

func (m *memStore) snapshot() memSnapshot {
	snap := memSnapshot{
		accounts:     make(map[string]uuid.UUID, len(m.accounts)),
		accountOwner: make(map[uuid.UUID]uuid.UUID, len(m.accountOwner)),
		txns:         make(map[string]*memTxn, len(m.txns)),
		states:       make(map[uuid.UUID]*ledgerstore.SyncState, len(m.states)),
	}
	for k, v := range m.accounts {
		snap.accounts[k] = v
	}
	for k, v := range m.accountOwner {
		snap.accountOwner[k] = v
	}
	for k, v := range m.txns {
		row := *v
		snap.txns[k] = &row
	}
	for k, v := range m.states {
		state := *v
		snap.states[k] = &state
	}
	return snap
}

func (m *memStore) restore(snap memSnapshot) {
	m.accounts = snap.accounts
	m.accountOwner = snap.accountOwner
	m.txns = snap.txns
	m.states = snap.states
}

func (m *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx ledgerstore.UnitOfWork) error) error {
	snap := m.snapshot()
	if err := fn(ctx, m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memStore) ListActiveItems(ctx context.Context, userID uuid.UUID) ([]*ledgerstore.Item, error) {
	if m.listItemsErr != nil {
		return nil, m.listItemsErr
	}
	var out []*ledgerstore.Item
	for _, item := range m.items {
		if item.UserID == userID && item.IsActive {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memStore) GetItemAccessToken(ctx context.Context, userID uuid.UUID, externalItemID string) (string, error) {
	for _, item := range m.items {
		if item.UserID == userID && item.ExternalItemID == externalItemID && item.IsActive {
			return item.AccessToken, nil
		}
	}
	return "", ledgerstore.ErrItemNotFound
}

func (m *memStore) UpsertAccount(ctx context.Context, acct ledgerstore.AccountUpsert) error {
	if m.upsertAccountErr != nil {
		return m.upsertAccountErr
	}
	if _, ok := m.accounts[acct.ExternalAccountID]; !ok {
		id := uuid.New()
		m.accounts[acct.ExternalAccountID] = id
		m.accountOwner[id] = acct.UserID
	}
	return nil
}

func (m *memStore) GetOrCreateSyncState(ctx context.Context, itemID uuid.UUID) (*ledgerstore.SyncState, error) {
	if state, ok := m.states[itemID]; ok {
		return state, nil
	}
	state := &ledgerstore.SyncState{LinkedItemID: itemID}
	m.states[itemID] = state
	return state, nil
}

func (m *memStore) TouchAccountsSynced(ctx context.Context, itemID uuid.UUID) error {
	if state, ok := m.states[itemID]; ok {
		now := time.Now()
		state.AccountsLastSyncedAt = &now
	}
	return nil
}

func (m *memStore) UpdateSyncCursor(ctx context.Context, itemID uuid.UUID, cursor string) error {
	if m.updateCursorErr != nil {
		if err := m.updateCursorErr(cursor); err != nil {
			return err
		}
	}
	state, ok := m.states[itemID]
	if !ok {
		state = &ledgerstore.SyncState{LinkedItemID: itemID}
		m.states[itemID] = state
	}
	c := cursor
	state.TransactionsCursor = &c
	return nil
}

func (m *memStore) ResolveAccountID(ctx context.Context, userID, itemID uuid.UUID, externalAccountID string) (uuid.UUID, error) {
	id, ok := m.accounts[externalAccountID]
	if !ok || m.accountOwner[id] != userID {
		return uuid.Nil, ledgerstore.ErrAccountNotFound
	}
	return id, nil
}

func (m *memStore) UpsertTransaction(ctx context.Context, txn ledgerstore.NewTransaction) error {
	if m.upsertTxnErr != nil {
		if err := m.upsertTxnErr(txn); err != nil {
			return err
		}
	}
	if row, ok := m.txns[txn.ExternalTxnID]; ok {
		row.rec = txn
		row.deleted = false
		return nil
	}
	m.txns[txn.ExternalTxnID] = &memTxn{rec: txn}
	return nil
}

func (m *memStore) RelinkPendingToPosted(ctx context.Context, pendingID, postedID string, posted ledgerstore.NewTransaction) (bool, error) {
	row, ok := m.txns[pendingID]
	if !ok || row.deleted {
		return false, nil
	}
	delete(m.txns, pendingID)
	m.txns[postedID] = &memTxn{rec: posted}
	return true, nil
}

func (m *memStore) ApplyTransactionPatch(ctx context.Context, externalTxnID string, patch ledgerstore.TransactionPatch) (int64, error) {
	row, ok := m.txns[externalTxnID]
	if !ok || row.deleted {
		return 0, nil
	}
	if patch.Amount != nil {
		row.rec.Amount = *patch.Amount
	}
	if patch.Type != nil {
		row.rec.Type = *patch.Type
	}
	if patch.Currency != nil {
		row.rec.Currency = patch.Currency
	}
	if patch.MerchantName != nil {
		row.rec.MerchantName = patch.MerchantName
	}
	if patch.Description != nil {
		row.rec.Description = patch.Description
	}
	if patch.Category != nil {
		row.rec.Category = patch.Category
	}
	if patch.AuthorizedDate != nil {
		row.rec.AuthorizedDate = patch.AuthorizedDate
	}
	if patch.PostedDate != nil {
		row.rec.PostedDate = patch.PostedDate
	}
	if patch.Pending != nil {
		row.rec.Pending = *patch.Pending
	}
	return 1, nil
}

func (m *memStore) SoftDeleteTransactions(ctx context.Context, userID uuid.UUID, externalTxnIDs []string) (int64, error) {
	var count int64
	for _, id := range externalTxnIDs {
		row, ok := m.txns[id]
		if !ok || row.deleted {
			continue
		}
		if m.accountOwner[row.rec.AccountID] != userID {
			continue
		}
		row.deleted = true
		count++
	}
	return count, nil
}
