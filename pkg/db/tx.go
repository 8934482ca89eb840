package db

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// WithTx binds tx to ctx so that services called inside a unit of work share it.
func WithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func TxFromContext(ctx context.Context) (*gorm.DB, bool) {
	if ctx == nil {
		return nil, false
	}
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	return tx, ok && tx != nil
}

// Conn returns the transaction bound to ctx, or fallback scoped to ctx.
func Conn(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return fallback.WithContext(ctx)
}

// RunInTx joins the transaction already bound to ctx or begins a new one.
func RunInTx(ctx context.Context, conn *gorm.DB, fn func(ctx context.Context, tx *gorm.DB) error) error {
	if tx, ok := TxFromContext(ctx); ok {
		return fn(ctx, tx)
	}
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(WithTx(ctx, tx), tx)
	})
}
