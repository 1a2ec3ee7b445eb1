package ledgerstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type pgStore struct {
	db bun.IDB
}

var _ Store = (*pgStore)(nil)

// NewStore creates a new postgres implementation of the ledger store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

func (s *pgStore) InTx(ctx context.Context, fn func(ctx context.Context, tx UnitOfWork) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &pgStore{db: tx})
	})
}

func (s *pgStore) ListActiveItems(ctx context.Context, userID uuid.UUID) ([]*Item, error) {
	var daos []ItemDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("user_id = ?", userID).
		Where("is_active").
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active items: %w", err)
	}

	items := make([]*Item, len(daos))
	for i := range daos {
		items[i] = toItem(&daos[i])
	}
	return items, nil
}

func (s *pgStore) GetItemAccessToken(ctx context.Context, userID uuid.UUID, externalItemID string) (string, error) {
	var token string
	err := s.db.NewSelect().
		Model((*ItemDao)(nil)).
		Column("access_token").
		Where("user_id = ?", userID).
		Where("external_item_id = ?", externalItemID).
		Where("is_active").
		Scan(ctx, &token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrItemNotFound
		}
		return "", fmt.Errorf("failed to load access token: %w", err)
	}
	return token, nil
}

// CreateItem persists a new linked item. Used by the credential-exchange
// flow, which lives outside the sync engine.
func (s *pgStore) CreateItem(ctx context.Context, item *Item) error {
	dao := &ItemDao{
		ID:             item.ID,
		UserID:         item.UserID,
		ExternalItemID: item.ExternalItemID,
		AccessToken:    item.AccessToken,
		IsActive:       item.IsActive,
	}
	if dao.ID == uuid.Nil {
		dao.ID = uuid.New()
	}
	if item.InstitutionName != "" {
		dao.InstitutionName = &item.InstitutionName
	}

	_, err := s.db.NewInsert().
		Model(dao).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	item.ID = dao.ID
	return nil
}

func (s *pgStore) UpsertAccount(ctx context.Context, acct AccountUpsert) error {
	dao := &AccountDao{
		ID:                uuid.New(),
		UserID:            acct.UserID,
		LinkedItemID:      acct.LinkedItemID,
		ExternalAccountID: acct.ExternalAccountID,
		Name:              acct.Name,
		OfficialName:      acct.OfficialName,
		Mask:              acct.Mask,
		Type:              acct.Type,
		Subtype:           acct.Subtype,
		Currency:          acct.Currency,
		CurrentBalance:    acct.CurrentBalance,
		AvailableBalance:  acct.AvailableBalance,
	}

	_, err := s.db.NewInsert().
		Model(dao).
		On("CONFLICT (user_id, linked_item_id, external_account_id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("official_name = EXCLUDED.official_name").
		Set("mask = EXCLUDED.mask").
		Set("type = EXCLUDED.type").
		Set("subtype = EXCLUDED.subtype").
		Set("currency = EXCLUDED.currency").
		Set("current_balance = EXCLUDED.current_balance").
		Set("available_balance = EXCLUDED.available_balance").
		Set("updated_at = NOW()").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert account %s: %w", acct.ExternalAccountID, err)
	}
	return nil
}

func (s *pgStore) GetOrCreateSyncState(ctx context.Context, itemID uuid.UUID) (*SyncState, error) {
	dao := &SyncStateDao{LinkedItemID: itemID}

	// The unique constraint on linked_item_id makes this race-free: a
	// redundant call updates the timestamp instead of inserting.
	_, err := s.db.NewInsert().
		Model(dao).
		On("CONFLICT (linked_item_id) DO UPDATE").
		Set("updated_at = NOW()").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create sync state: %w", err)
	}

	return toSyncState(dao), nil
}

func (s *pgStore) TouchAccountsSynced(ctx context.Context, itemID uuid.UUID) error {
	_, err := s.db.NewUpdate().
		Model((*SyncStateDao)(nil)).
		Set("accounts_last_synced_at = NOW()").
		Set("updated_at = NOW()").
		Where("linked_item_id = ?", itemID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to touch accounts synced: %w", err)
	}
	return nil
}

func (s *pgStore) UpdateSyncCursor(ctx context.Context, itemID uuid.UUID, cursor string) error {
	_, err := s.db.NewUpdate().
		Model((*SyncStateDao)(nil)).
		Set("transactions_cursor = ?", cursor).
		Set("updated_at = NOW()").
		Where("linked_item_id = ?", itemID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update sync cursor: %w", err)
	}
	return nil
}

func (s *pgStore) ResolveAccountID(ctx context.Context, userID, itemID uuid.UUID, externalAccountID string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.NewSelect().
		Model((*AccountDao)(nil)).
		Column("id").
		Where("user_id = ?", userID).
		Where("linked_item_id = ?", itemID).
		Where("external_account_id = ?", externalAccountID).
		Scan(ctx, &id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, ErrAccountNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to resolve account: %w", err)
	}
	return id, nil
}

func (s *pgStore) UpsertTransaction(ctx context.Context, txn NewTransaction) error {
	// Revive-and-overwrite first: re-adding a soft-deleted external id must
	// clear the deletion marker on the existing row, never insert a duplicate.
	res, err := s.db.NewUpdate().
		Model((*TransactionDao)(nil)).
		Set("account_id = ?", txn.AccountID).
		Set("amount = ?", txn.Amount).
		Set("currency = ?", txn.Currency).
		Set("type = ?", txn.Type).
		Set("merchant_name = ?", txn.MerchantName).
		Set("description = ?", txn.Description).
		Set("category = ?", txn.Category).
		Set("authorized_date = ?", txn.AuthorizedDate).
		Set("posted_date = ?", txn.PostedDate).
		Set("pending = ?", txn.Pending).
		Set("deleted_at = NULL").
		Set("updated_at = NOW()").
		Where("external_txn_id = ?", txn.ExternalTxnID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert transaction %s: %w", txn.ExternalTxnID, err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows > 0 {
		return nil
	}

	dao := &TransactionDao{
		ID:             uuid.New(),
		AccountID:      txn.AccountID,
		ExternalTxnID:  txn.ExternalTxnID,
		Amount:         txn.Amount,
		Currency:       txn.Currency,
		Type:           txn.Type,
		MerchantName:   txn.MerchantName,
		Description:    txn.Description,
		Category:       txn.Category,
		AuthorizedDate: txn.AuthorizedDate,
		PostedDate:     txn.PostedDate,
		Pending:        txn.Pending,
	}
	if _, err := s.db.NewInsert().Model(dao).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert transaction %s: %w", txn.ExternalTxnID, err)
	}
	return nil
}

func (s *pgStore) RelinkPendingToPosted(ctx context.Context, pendingID, postedID string, posted NewTransaction) (bool, error) {
	res, err := s.db.NewUpdate().
		Model((*TransactionDao)(nil)).
		Set("external_txn_id = ?", postedID).
		Set("amount = ?", posted.Amount).
		Set("currency = ?", posted.Currency).
		Set("type = ?", posted.Type).
		Set("merchant_name = ?", posted.MerchantName).
		Set("description = ?", posted.Description).
		Set("category = ?", posted.Category).
		Set("authorized_date = ?", posted.AuthorizedDate).
		Set("posted_date = ?", posted.PostedDate).
		Set("pending = FALSE").
		Set("updated_at = NOW()").
		Where("external_txn_id = ?", pendingID).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to relink %s to %s: %w", pendingID, postedID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read relink result: %w", err)
	}
	return rows > 0, nil
}

func (s *pgStore) ApplyTransactionPatch(ctx context.Context, externalTxnID string, patch TransactionPatch) (int64, error) {
	q := s.db.NewUpdate().
		Model((*TransactionDao)(nil)).
		Where("external_txn_id = ?", externalTxnID).
		Where("deleted_at IS NULL")

	if patch.Amount != nil {
		q = q.Set("amount = ?", *patch.Amount)
	}
	if patch.Currency != nil {
		q = q.Set("currency = ?", *patch.Currency)
	}
	if patch.Type != nil {
		q = q.Set("type = ?", *patch.Type)
	}
	if patch.MerchantName != nil {
		q = q.Set("merchant_name = ?", *patch.MerchantName)
	}
	if patch.Description != nil {
		q = q.Set("description = ?", *patch.Description)
	}
	if patch.Category != nil {
		q = q.Set("category = ?", *patch.Category)
	}
	if patch.AuthorizedDate != nil {
		q = q.Set("authorized_date = ?", *patch.AuthorizedDate)
	}
	if patch.PostedDate != nil {
		q = q.Set("posted_date = ?", *patch.PostedDate)
	}
	if patch.Pending != nil {
		q = q.Set("pending = ?", *patch.Pending)
	}
	q = q.Set("updated_at = NOW()")

	res, err := q.Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to patch transaction %s: %w", externalTxnID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read patch result: %w", err)
	}
	return rows, nil
}

func (s *pgStore) SoftDeleteTransactions(ctx context.Context, userID uuid.UUID, externalTxnIDs []string) (int64, error) {
	if len(externalTxnIDs) == 0 {
		return 0, nil
	}

	res, err := s.db.NewUpdate().
		Model((*TransactionDao)(nil)).
		Set("deleted_at = NOW()").
		Set("updated_at = NOW()").
		Where("external_txn_id IN (?)", bun.In(externalTxnIDs)).
		Where("deleted_at IS NULL").
		Where("account_id IN (SELECT id FROM accounts WHERE user_id = ?)", userID).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to soft delete transactions: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete result: %w", err)
	}
	return rows, nil
}
