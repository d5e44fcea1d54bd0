package db

import (
	"context"
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(t *testing.T) *Client {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	return FromConn(conn)
}

func TestWithTxCommits(t *testing.T) {
	client := openSQLite(t)
	if err := client.DB().Exec(`CREATE TABLE tx_probe (id INTEGER PRIMARY KEY, val TEXT)`).Error; err != nil {
		t.Fatalf("create table: %v", err)
	}

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return tx.Exec(`INSERT INTO tx_probe (val) VALUES ('a')`).Error
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}

	var count int64
	if err := client.DB().Raw(`SELECT COUNT(*) FROM tx_probe`).Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row, got %d", count)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	client := openSQLite(t)
	if err := client.DB().Exec(`CREATE TABLE tx_probe_rb (id INTEGER PRIMARY KEY, val TEXT)`).Error; err != nil {
		t.Fatalf("create table: %v", err)
	}

	boom := errors.New("boom")
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := tx.Exec(`INSERT INTO tx_probe_rb (val) VALUES ('a')`).Error; err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var count int64
	if err := client.DB().Raw(`SELECT COUNT(*) FROM tx_probe_rb`).Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback, got %d rows", count)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil error should not match")
	}
	pg := errors.New(`duplicate key value violates unique constraint "idx_plates_personal_identity"`)
	if !IsUniqueViolation(pg, "") {
		t.Fatal("expected postgres duplicate match")
	}
	if !IsUniqueViolation(pg, "idx_plates_personal_identity") {
		t.Fatal("expected constraint-name match")
	}
	if IsUniqueViolation(pg, "other_index") {
		t.Fatal("unexpected match for different constraint")
	}
	lite := errors.New("UNIQUE constraint failed: plates.plate_code")
	if !IsUniqueViolation(lite, "") {
		t.Fatal("expected sqlite duplicate match")
	}
}
