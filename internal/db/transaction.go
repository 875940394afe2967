package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// WithTransaction executes fn within a database transaction. It commits when
// fn returns nil and rolls back when fn returns an error or panics.
func (db *DB) WithTransaction(ctx context.Context, fn func(tx *DB) error) error {
	return db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := fn(&DB{DB: tx}); err != nil {
			return fmt.Errorf("transaction error: %w", err)
		}
		return nil
	})
}
