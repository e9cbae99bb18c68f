package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/angelmondragon/littlemirai-storefront/pkg/config"
	"github.com/angelmondragon/littlemirai-storefront/pkg/logger"
)

type testModel struct {
	ID   int
	Name string
}

func openSQLite(t *testing.T) *Client {
	t.Helper()
	client, err := New(context.Background(), config.DBConfig{
		Driver:       config.DriverSQLite,
		SQLitePath:   filepath.Join(t.TempDir(), "catalog.db"),
		MaxOpenConns: 20,
	}, logger.Nop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewOpensSQLiteWithSingleConnection(t *testing.T) {
	client := openSQLite(t)
	if client.Dialect() != config.DriverSQLite {
		t.Fatalf("unexpected dialect %q", client.Dialect())
	}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	if got := sqlDB.Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("sqlite pool should be capped at 1, got %d", got)
	}
}

func TestIsNotFound(t *testing.T) {
	conn := openSQLite(t).DB()
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	var missing testModel
	if !IsNotFound(conn.First(&missing, 999).Error) {
		t.Fatal("expected not found for missing row")
	}
	if IsNotFound(nil) {
		t.Fatal("nil is not a missing row")
	}
}

func TestClosedClientFailsPing(t *testing.T) {
	client := openSQLite(t)
	if err := client.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected ping on closed pool to fail")
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cases := map[string]config.DBConfig{
		"unknown driver": {Driver: "mysql"},
		"missing dsn":    {Driver: config.DriverPostgres},
		"missing path":   {Driver: config.DriverSQLite},
	}
	for name, cfg := range cases {
		if _, err := New(context.Background(), cfg, nil); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
