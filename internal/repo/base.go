package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base binds a repository to its gorm connection.
type Base struct {
	conn *gorm.DB
}

func NewBase(conn *gorm.DB) Base {
	return Base{conn: conn}
}

// DB returns the connection bound to ctx. A nil ctx yields the raw connection.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.conn
	}
	return b.conn.WithContext(ctx)
}

// Query starts a context-bound statement against model's table.
func (b Base) Query(ctx context.Context, model any) *gorm.DB {
	return b.DB(ctx).Model(model)
}
