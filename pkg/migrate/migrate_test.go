package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, ValidateEmbedded())
}

func TestProductsMigrationContainsSchema(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_products_table.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, matches, "no products migration file found")

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	content := string(data)

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS products",
		"CHECK (price >= 0)",
		"CREATE INDEX IF NOT EXISTS idx_products_category",
		"DROP TABLE IF EXISTS products",
	} {
		require.Contains(t, content, sub)
	}
}

func TestRunUpAppliesSchemaAndSeedOnSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "migrate.db")), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Run(context.Background(), sqlDB, "sqlite3", "up"))

	var count int64
	require.NoError(t, conn.Table("products").Count(&count).Error)
	require.EqualValues(t, 12, count)

	require.NoError(t, Run(context.Background(), sqlDB, "sqlite3", "down"))
	require.NoError(t, conn.Table("products").Count(&count).Error)
	require.Zero(t, count)
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Product Tags")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "_add_product_tags.sql"))
	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(dir, "!!!")
	require.Error(t, err)
}

func TestCheckAnnotations(t *testing.T) {
	ok := "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose StatementEnd\n-- +goose Down\nSELECT 1;\n"
	require.NoError(t, checkAnnotations(ok))

	require.Error(t, checkAnnotations("-- +goose Down\nSELECT 1;\n-- +goose Up\nSELECT 1;\n"))
	require.Error(t, checkAnnotations("-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n"))
	require.Error(t, checkAnnotations("-- +goose Up\nSELECT 1;\n"))
}
