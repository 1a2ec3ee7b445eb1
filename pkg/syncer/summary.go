package syncer

// Error codes attached to a SyncSummary when an item's sync stops early.
// They never propagate as Go errors past the item boundary.
const (
	ErrCodeAccountsGetFailed      = "accounts_get_failed"
	ErrCodeAccountsUpsertFailed   = "accounts_upsert_failed"
	ErrCodeTransactionsSyncFailed = "transactions_sync_failed"
	ErrCodePageProcessingFailed   = "page_processing_failed"
)

// SyncSummary is the per-item result of one sync invocation. It is
// returned to the trigger and never persisted.
type SyncSummary struct {
	ItemExternalID   string `json:"item_external_id"`
	AccountsUpserted int    `json:"accounts_upserted"`
	TxAdded          int    `json:"tx_added"`
	TxModified       int    `json:"tx_modified"`
	TxRemoved        int    `json:"tx_removed"`
	HasMore          bool   `json:"has_more"`
	ErrorCode        string `json:"error_code,omitempty"`
	ErrorMessage     string `json:"error_message,omitempty"`
}

// Failed reports whether the item's sync stopped with an error code
func (s SyncSummary) Failed() bool {
	return s.ErrorCode != ""
}
