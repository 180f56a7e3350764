package repository

import (
	"context"

	"gorm.io/gorm"
)

// conn 优先使用调用方传入的事务
func conn(ctx context.Context, db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}
