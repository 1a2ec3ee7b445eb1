package ledgerdb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	"github.com/gochippr/backend/pkg/ledgerstore"
	mghelper "github.com/gochippr/backend/pkg/pgutil/migrations"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating transactions table...")
		if err := mghelper.CreateSchema(ctx, db, &ledgerstore.TransactionDao{}); err != nil {
			return err
		}
		// At most one live row per external id; soft-deleted rows are exempt
		_, err := db.ExecContext(ctx,
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_external_txn_id_live "+
				"ON transactions (external_txn_id) WHERE deleted_at IS NULL")
		if err != nil {
			return err
		}
		return mghelper.CreateIndexes(ctx, db, "transactions", "account_id", "posted_date")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping transactions table...")
		return mghelper.DropTables(ctx, db, &ledgerstore.TransactionDao{})
	})
}
