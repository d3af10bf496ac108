package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-session/pkg/config"
	"github.com/angelmondragon/storefront-session/pkg/db"
)

func TestDialect(t *testing.T) {
	cases := map[string]string{
		"":                      "postgres",
		config.DBDriverPostgres: "postgres",
		config.DBDriverSQLite:   "sqlite3",
	}
	for driver, want := range cases {
		got, err := Dialect(driver)
		if err != nil || got != want {
			t.Fatalf("driver %q: got %q err=%v want %q", driver, got, err, want)
		}
	}
	if _, err := Dialect("oracle"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestSessionSlotsMigrationRunsOnSQLite(t *testing.T) {
	ctx := context.Background()
	client, err := db.New(ctx, config.DBConfig{
		Driver: config.DBDriverSQLite,
		DSN:    "file:migrate_up?mode=memory&cache=shared",
	}, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer client.Close()

	sqlDB, err := client.DB().DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	if err := Run(ctx, sqlDB, config.DBDriverSQLite, "migrations", "up"); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	if !client.DB().Migrator().HasTable("session_slots") {
		t.Fatal("expected session_slots table after migrate up")
	}
	if err := Run(ctx, sqlDB, config.DBDriverSQLite, "migrations", "down"); err != nil {
		t.Fatalf("migrate down: %v", err)
	}
	if client.DB().Migrator().HasTable("session_slots") {
		t.Fatal("expected session_slots table to be dropped")
	}
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Slot Owner!")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasSuffix(filepath.Base(path), "_add_slot_owner.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "-- +goose Up") || !strings.Contains(string(data), "-- +goose Down") {
		t.Fatalf("template missing goose markers: %s", data)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "001_bad.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename error")
	}
}
