package ledgerstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// TransactionType classifies a transaction as money out or money in.
// Amounts are stored as non-negative magnitudes; the type carries the sign.
type TransactionType string

const (
	TypeDebit  TransactionType = "debit"
	TypeCredit TransactionType = "credit"
)

// ItemDao is a data access object that maps directly to the 'linked_items' table in PostgreSQL.
type ItemDao struct {
	bun.BaseModel   `bun:"table:linked_items,alias:li"`
	ID              uuid.UUID `bun:"id,pk,type:uuid"`
	UserID          uuid.UUID `bun:"user_id,notnull,type:uuid"`
	ExternalItemID  string    `bun:"external_item_id,notnull,type:varchar(255)"`
	AccessToken     string    `bun:"access_token,notnull,type:varchar(255)"`
	InstitutionName *string   `bun:"institution_name,type:varchar(255)"`
	IsActive        bool      `bun:"is_active,notnull,default:true"`
	CreatedAt       time.Time `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt       time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
}

// SyncStateDao is a data access object that maps directly to the 'item_sync_state' table in PostgreSQL.
// Exactly one row exists per linked item, enforced by a unique constraint.
type SyncStateDao struct {
	bun.BaseModel        `bun:"table:item_sync_state,alias:ss"`
	ID                   int64      `bun:"id,pk,autoincrement"`
	LinkedItemID         uuid.UUID  `bun:"linked_item_id,notnull,unique,type:uuid"`
	TransactionsCursor   *string    `bun:"transactions_cursor,type:text"`
	AccountsLastSyncedAt *time.Time `bun:"accounts_last_synced_at"`
	UpdatedAt            time.Time  `bun:"updated_at,nullzero,default:current_timestamp"`
}

// AccountDao is a data access object that maps directly to the 'accounts' table in PostgreSQL.
type AccountDao struct {
	bun.BaseModel     `bun:"table:accounts,alias:a"`
	ID                uuid.UUID        `bun:"id,pk,type:uuid"`
	UserID            uuid.UUID        `bun:"user_id,notnull,type:uuid"`
	LinkedItemID      uuid.UUID        `bun:"linked_item_id,notnull,type:uuid"`
	ExternalAccountID string           `bun:"external_account_id,notnull,type:varchar(255)"`
	Name              *string          `bun:"name,type:varchar(255)"`
	OfficialName      *string          `bun:"official_name,type:varchar(255)"`
	Mask              *string          `bun:"mask,type:varchar(16)"`
	Type              *string          `bun:"type,type:varchar(32)"`
	Subtype           *string          `bun:"subtype,type:varchar(64)"`
	Currency          *string          `bun:"currency,type:varchar(8)"`
	CurrentBalance    *decimal.Decimal `bun:"current_balance,type:numeric(20,2)"`
	AvailableBalance  *decimal.Decimal `bun:"available_balance,type:numeric(20,2)"`
	CreatedAt         time.Time        `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt         time.Time        `bun:"updated_at,nullzero,default:current_timestamp"`
}

// TransactionDao is a data access object that maps directly to the 'transactions' table in PostgreSQL.
// A partial unique index guarantees at most one non-deleted row per external id.
type TransactionDao struct {
	bun.BaseModel  `bun:"table:transactions,alias:t"`
	ID             uuid.UUID       `bun:"id,pk,type:uuid"`
	AccountID      uuid.UUID       `bun:"account_id,notnull,type:uuid"`
	ExternalTxnID  string          `bun:"external_txn_id,notnull,type:varchar(255)"`
	Amount         decimal.Decimal `bun:"amount,notnull,type:numeric(20,2)"`
	Currency       *string         `bun:"currency,type:varchar(8)"`
	Type           TransactionType `bun:"type,notnull,type:varchar(10)"`
	MerchantName   *string         `bun:"merchant_name,type:varchar(255)"`
	Description    *string         `bun:"description,type:text"`
	Category       *string         `bun:"category,type:varchar(128)"`
	AuthorizedDate *time.Time      `bun:"authorized_date,type:date"`
	PostedDate     *time.Time      `bun:"posted_date,type:date"`
	Pending        bool            `bun:"pending,notnull,default:false"`
	DeletedAt      *time.Time      `bun:"deleted_at"`
	CreatedAt      time.Time       `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt      time.Time       `bun:"updated_at,nullzero,default:current_timestamp"`
}

// Item is a consent-based linkage between a user and an institution
type Item struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	ExternalItemID  string
	AccessToken     string
	InstitutionName string
	IsActive        bool
}

// SyncState carries the resumable sync position for a linked item
type SyncState struct {
	LinkedItemID         uuid.UUID
	TransactionsCursor   *string
	AccountsLastSyncedAt *time.Time
}

// toItem converts an ItemDao to Item.
func toItem(dao *ItemDao) *Item {
	item := &Item{
		ID:             dao.ID,
		UserID:         dao.UserID,
		ExternalItemID: dao.ExternalItemID,
		AccessToken:    dao.AccessToken,
		IsActive:       dao.IsActive,
	}
	if dao.InstitutionName != nil {
		item.InstitutionName = *dao.InstitutionName
	}
	return item
}

// toSyncState converts a SyncStateDao to SyncState.
func toSyncState(dao *SyncStateDao) *SyncState {
	return &SyncState{
		LinkedItemID:         dao.LinkedItemID,
		TransactionsCursor:   dao.TransactionsCursor,
		AccountsLastSyncedAt: dao.AccountsLastSyncedAt,
	}
}

// AccountUpsert carries the canonical fields for upserting an account
// by its natural key (user, item, external account id).
type AccountUpsert struct {
	UserID            uuid.UUID
	LinkedItemID      uuid.UUID
	ExternalAccountID string
	Name              *string
	OfficialName      *string
	Mask              *string
	Type              *string
	Subtype           *string
	Currency          *string
	CurrentBalance    *decimal.Decimal
	AvailableBalance  *decimal.Decimal
}

// NewTransaction carries the canonical fields for inserting (or reviving)
// a transaction row keyed by external id.
type NewTransaction struct {
	AccountID      uuid.UUID
	ExternalTxnID  string
	Amount         decimal.Decimal
	Currency       *string
	Type           TransactionType
	MerchantName   *string
	Description    *string
	Category       *string
	AuthorizedDate *time.Time
	PostedDate     *time.Time
	Pending        bool
}

// TransactionPatch is a partial update of a transaction's mutable fields.
// Nil members are left untouched.
type TransactionPatch struct {
	Amount         *decimal.Decimal
	Currency       *string
	Type           *TransactionType
	MerchantName   *string
	Description    *string
	Category       *string
	AuthorizedDate *time.Time
	PostedDate     *time.Time
	Pending        *bool
}
