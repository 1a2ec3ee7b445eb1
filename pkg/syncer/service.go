// Package syncer reconciles provider account and transaction state into
// canonical storage using cursor-based incremental sync.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gochippr/backend/internal/metrics"
	"github.com/gochippr/backend/pkg/config"
	"github.com/gochippr/backend/pkg/ledgerstore"
	"github.com/gochippr/backend/pkg/provider"
)

// Engine drives one linked item at a time through account reconciliation
// and the transaction delta-pagination loop.
type Engine struct {
	provider provider.Client
	store    ledgerstore.Store
	logger   *zap.Logger

	maxPagesPerItem int
}

// NewEngine creates a new sync engine
func NewEngine(providerClient provider.Client, store ledgerstore.Store, logger *zap.Logger, cfg config.SyncConfig) *Engine {
	return &Engine{
		provider:        providerClient,
		store:           store,
		logger:          logger,
		maxPagesPerItem: cfg.MaxPagesPerItem,
	}
}

// SyncAllForUser enumerates the user's active linked items and syncs them
// strictly one at a time, returning one summary per item in enumeration
// order. A failing item never prevents subsequent items from being
// attempted; only a failure to enumerate items at all returns an error.
func (e *Engine) SyncAllForUser(ctx context.Context, userID uuid.UUID) ([]SyncSummary, error) {
	items, err := e.store.ListActiveItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate linked items: %w", err)
	}

	e.logger.Info("Starting user sync",
		zap.String("user_id", userID.String()),
		zap.Int("items", len(items)))

	summaries := make([]SyncSummary, 0, len(items))
	for _, item := range items {
		summaries = append(summaries, e.SyncItem(ctx, item))
	}
	return summaries, nil
}

// SyncItem synchronizes one linked item. All failures surface as error
// codes on the returned summary, never as Go errors.
func (e *Engine) SyncItem(ctx context.Context, item *ledgerstore.Item) SyncSummary {
	start := time.Now()
	summary := SyncSummary{ItemExternalID: item.ExternalItemID}
	logger := e.logger.With(
		zap.String("item_id", item.ExternalItemID),
		zap.String("user_id", item.UserID.String()))

	// Phase A: account reconciliation
	accounts, err := e.provider.ListAccounts(ctx, item.UserID, item.ExternalItemID)
	if err != nil {
		logger.Error("Account fetch failed", zap.Error(err))
		return e.fail(summary, ErrCodeAccountsGetFailed, err, start)
	}

	err = e.store.InTx(ctx, func(ctx context.Context, tx ledgerstore.UnitOfWork) error {
		if _, err := tx.GetOrCreateSyncState(ctx, item.ID); err != nil {
			return err
		}
		for _, acct := range accounts {
			if err := tx.UpsertAccount(ctx, MapAccount(item.UserID, item.ID, acct)); err != nil {
				return err
			}
		}
		return tx.TouchAccountsSynced(ctx, item.ID)
	})
	if err != nil {
		logger.Error("Account upsert failed", zap.Error(err))
		return e.fail(summary, ErrCodeAccountsUpsertFailed, err, start)
	}
	summary.AccountsUpserted = len(accounts)

	// Phase B: transaction delta loop, resuming from the stored cursor
	state, err := e.store.GetOrCreateSyncState(ctx, item.ID)
	if err != nil {
		logger.Error("Sync state load failed", zap.Error(err))
		return e.fail(summary, ErrCodePageProcessingFailed, err, start)
	}
	cursor := state.TransactionsCursor

	for page := 1; ; page++ {
		deltaPage, err := e.provider.FetchDeltaPage(ctx, item.UserID, item.ExternalItemID, cursor)
		if err != nil {
			logger.Error("Delta page fetch failed",
				zap.Int("page", page),
				zap.Stringp("cursor", cursor),
				zap.Error(err))
			return e.fail(summary, ErrCodeTransactionsSyncFailed, err, start)
		}

		// The page's row mutations and its cursor advance commit together;
		// a failure rolls the whole page back and reports counts from prior
		// pages only.
		var added, modified, removed int
		err = e.store.InTx(ctx, func(ctx context.Context, tx ledgerstore.UnitOfWork) error {
			added, modified, removed, err = e.applyPage(ctx, tx, item, deltaPage)
			if err != nil {
				return err
			}
			return tx.UpdateSyncCursor(ctx, item.ID, deltaPage.NextCursor)
		})
		if err != nil {
			logger.Error("Page processing failed",
				zap.Int("page", page),
				zap.Error(err))
			metrics.PagesProcessedTotal.WithLabelValues("failed").Inc()
			return e.fail(summary, ErrCodePageProcessingFailed, err, start)
		}

		summary.TxAdded += added
		summary.TxModified += modified
		summary.TxRemoved += removed
		summary.HasMore = deltaPage.HasMore
		nextCursor := deltaPage.NextCursor
		cursor = &nextCursor
		metrics.PagesProcessedTotal.WithLabelValues("success").Inc()

		if !deltaPage.HasMore {
			break
		}
		if e.maxPagesPerItem > 0 && page >= e.maxPagesPerItem {
			logger.Warn("Page budget reached, deferring remainder to next sync",
				zap.Int("pages", page))
			break
		}
	}

	logger.Info("Item sync completed",
		zap.Int("accounts_upserted", summary.AccountsUpserted),
		zap.Int("tx_added", summary.TxAdded),
		zap.Int("tx_modified", summary.TxModified),
		zap.Int("tx_removed", summary.TxRemoved),
		zap.Bool("has_more", summary.HasMore),
		zap.Duration("duration", time.Since(start)))
	metrics.ItemsSyncedTotal.WithLabelValues("success").Inc()
	metrics.SyncDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())

	return summary
}

// applyPage applies one page of deltas inside an open unit of work
func (e *Engine) applyPage(
	ctx context.Context,
	tx ledgerstore.UnitOfWork,
	item *ledgerstore.Item,
	page *provider.DeltaPage,
) (added, modified, removed int, err error) {
	for _, txn := range page.Added {
		accountID, err := tx.ResolveAccountID(ctx, item.UserID, item.ID, txn.AccountID)
		if errors.Is(err, ledgerstore.ErrAccountNotFound) {
			// The account may not be reconciled yet, or is not owned by
			// this user. Tolerated, not an error.
			e.logger.Debug("Skipping added transaction for unknown account",
				zap.String("item_id", item.ExternalItemID),
				zap.String("external_account_id", txn.AccountID))
			metrics.DeltasSkippedTotal.WithLabelValues("unknown_account").Inc()
			continue
		}
		if err != nil {
			return 0, 0, 0, err
		}

		record := MapTransaction(accountID, txn)

		// Pending→posted reconciliation: when the added record references
		// its pending counterpart, rewrite that row in place instead of
		// inserting a second one.
		if txn.PendingTransactionID != nil && *txn.PendingTransactionID != "" {
			relinked, err := tx.RelinkPendingToPosted(ctx, *txn.PendingTransactionID, txn.TransactionID, record)
			if err != nil {
				return 0, 0, 0, err
			}
			if relinked {
				modified++
				metrics.DeltasAppliedTotal.WithLabelValues("relinked").Inc()
				continue
			}
		}

		if err := tx.UpsertTransaction(ctx, record); err != nil {
			return 0, 0, 0, err
		}
		added++
		metrics.DeltasAppliedTotal.WithLabelValues("added").Inc()
	}

	for _, txn := range page.Modified {
		rows, err := tx.ApplyTransactionPatch(ctx, txn.TransactionID, PatchFromTransaction(txn))
		if err != nil {
			return 0, 0, 0, err
		}
		if rows == 0 {
			metrics.DeltasSkippedTotal.WithLabelValues("modify_missing_row").Inc()
			continue
		}
		modified += int(rows)
		metrics.DeltasAppliedTotal.WithLabelValues("modified").Inc()
	}

	if len(page.Removed) > 0 {
		ids := make([]string, len(page.Removed))
		for i, r := range page.Removed {
			ids[i] = r.TransactionID
		}
		rows, err := tx.SoftDeleteTransactions(ctx, item.UserID, ids)
		if err != nil {
			return 0, 0, 0, err
		}
		removed = int(rows)
		if skipped := len(ids) - int(rows); skipped > 0 {
			metrics.DeltasSkippedTotal.WithLabelValues("remove_missing_row").Add(float64(skipped))
		}
		metrics.DeltasAppliedTotal.WithLabelValues("removed").Add(float64(rows))
	}

	return added, modified, removed, nil
}

func (e *Engine) fail(summary SyncSummary, code string, err error, start time.Time) SyncSummary {
	summary.ErrorCode = code
	summary.ErrorMessage = err.Error()
	metrics.SyncErrorsTotal.WithLabelValues(code).Inc()
	metrics.ItemsSyncedTotal.WithLabelValues("failed").Inc()
	metrics.SyncDuration.WithLabelValues("failed").Observe(time.Since(start).Seconds())
	return summary
}
