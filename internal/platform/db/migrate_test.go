package db

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMigration(t *testing.T, dir, name, sql string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestMigratorLoadSortsByVersion(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "0002_add_indexes.sql", "CREATE INDEX x ON t(a);")
	writeMigration(t, dir, "0001_init.sql", "CREATE TABLE t (a INT);")
	writeMigration(t, dir, "0010_backfill.sql", "UPDATE t SET a = 0;")
	writeMigration(t, dir, "README.md", "not a migration")

	m := NewMigrator(nil, dir)
	migs, err := m.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(migs) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migs))
	}
	wantVersions := []int{1, 2, 10}
	wantNames := []string{"init", "add_indexes", "backfill"}
	for i, mig := range migs {
		if mig.Version != wantVersions[i] {
			t.Errorf("migration %d: version = %d, want %d", i, mig.Version, wantVersions[i])
		}
		if mig.Name != wantNames[i] {
			t.Errorf("migration %d: name = %q, want %q", i, mig.Name, wantNames[i])
		}
		if mig.SQL == "" {
			t.Errorf("migration %d: empty SQL", i)
		}
	}
}

func TestMigratorLoadRejectsBadVersionPrefix(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "init.sql", "CREATE TABLE t (a INT);")

	m := NewMigrator(nil, dir)
	if _, err := m.Load(); err == nil {
		t.Fatal("expected error for migration without numeric prefix")
	}
}

func TestMigratorLoadMissingDir(t *testing.T) {
	m := NewMigrator(nil, filepath.Join(t.TempDir(), "nope"))
	if _, err := m.Load(); err == nil {
		t.Fatal("expected error for missing migrations directory")
	}
}
