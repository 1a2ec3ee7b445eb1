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
		log.Println("creating linked_items table...")
		if err := mghelper.CreateSchema(ctx, db, &ledgerstore.ItemDao{}); err != nil {
			return err
		}
		if err := mghelper.CreateUniqueIndexes(ctx, db, "linked_items", "user_id, external_item_id"); err != nil {
			return err
		}
		return mghelper.CreateIndexes(ctx, db, "linked_items", "user_id")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping linked_items table...")
		return mghelper.DropTables(ctx, db, &ledgerstore.ItemDao{})
	})
}
