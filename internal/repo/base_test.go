package repo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type widget struct {
	ID   int64
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "repo.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&widget{}))
	return conn
}

type ctxKey struct{}

func TestBaseDBBindsContext(t *testing.T) {
	conn := newTestDB(t)
	base := NewBase(conn)

	ctx := context.WithValue(context.Background(), ctxKey{}, "value")
	bound := base.DB(ctx)
	require.NotNil(t, bound.Statement)
	require.Equal(t, ctx, bound.Statement.Context)

	require.Same(t, conn, base.DB(nil))
}

func TestBaseQueryTargetsModel(t *testing.T) {
	conn := newTestDB(t)
	require.NoError(t, conn.Create(&widget{Name: "onesie"}).Error)
	require.NoError(t, conn.Create(&widget{Name: "bib"}).Error)

	var count int64
	require.NoError(t, NewBase(conn).Query(context.Background(), &widget{}).Where("name = ?", "bib").Count(&count).Error)
	require.Equal(t, int64(1), count)
}
