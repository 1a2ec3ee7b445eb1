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
		log.Println("creating item_sync_state table...")
		// The unique constraint on linked_item_id is declared on the model;
		// it backs the idempotent get-or-create.
		return mghelper.CreateSchema(ctx, db, &ledgerstore.SyncStateDao{})
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping item_sync_state table...")
		return mghelper.DropTables(ctx, db, &ledgerstore.SyncStateDao{})
	})
}
