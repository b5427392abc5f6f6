package db

import (
	"path/filepath"
	"testing"
)

func TestOpen_CreatesSchemaAndIsReopenable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskdeck.db")

	gdb, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	for _, table := range []string{"session", "conversations", "chat_messages"} {
		if !gdb.Migrator().HasTable(table) {
			t.Fatalf("expected table %q to exist", table)
		}
	}

	row := SessionRecord{Key: "current", Token: "tok", UserID: 7, Email: "a@b.c", Username: "a", UpdatedAt: 1}
	if err := gdb.Create(&row).Error; err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("DB() failed: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	gdb2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	var got SessionRecord
	if err := gdb2.First(&got, "key = ?", "current").Error; err != nil {
		t.Fatalf("read after reopen failed: %v", err)
	}
	if got.Token != "tok" || got.UserID != 7 {
		t.Fatalf("unexpected row after reopen: %#v", got)
	}
}
