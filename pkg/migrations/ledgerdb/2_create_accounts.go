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
		log.Println("creating accounts table...")
		if err := mghelper.CreateSchema(ctx, db, &ledgerstore.AccountDao{}); err != nil {
			return err
		}
		// Natural key backing the account upsert
		if err := mghelper.CreateUniqueIndexes(ctx, db, "accounts", "user_id, linked_item_id, external_account_id"); err != nil {
			return err
		}
		return mghelper.CreateIndexes(ctx, db, "accounts", "user_id")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping accounts table...")
		return mghelper.DropTables(ctx, db, &ledgerstore.AccountDao{})
	})
}
