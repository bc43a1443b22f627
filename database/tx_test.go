package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anjiri1684/training_academy/database"
	"github.com/anjiri1684/training_academy/database/dbtest"
	"github.com/anjiri1684/training_academy/models"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

func fastPolicy() database.TxPolicy {
	p := database.DefaultPolicy()
	p.Delay = time.Millisecond
	p.MaxDelay = 5 * time.Millisecond
	return p
}

func TestRunInTxRetriesConflicts(t *testing.T) {
	db := dbtest.Open(t)

	calls := 0
	err := database.RunInTx(context.Background(), db, fastPolicy(), func(tx *gorm.DB) error {
		calls++
		if calls < 3 {
			return sqlite3.Error{Code: sqlite3.ErrBusy}
		}
		return tx.Create(&models.ContactMessage{Name: "n", Email: "a@b.co", Body: "hi"}).Error
	})
	if err != nil {
		t.Fatalf("RunInTx() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}

	var count int64
	db.Model(&models.ContactMessage{}).Count(&count)
	if count != 1 {
		t.Errorf("rows = %d, want 1", count)
	}
}

func TestRunInTxDoesNotRetryBusinessErrors(t *testing.T) {
	db := dbtest.Open(t)
	errRule := errors.New("rule broken")

	calls := 0
	err := database.RunInTx(context.Background(), db, fastPolicy(), func(tx *gorm.DB) error {
		calls++
		if err := tx.Create(&models.ContactMessage{Name: "n", Email: "a@b.co", Body: "hi"}).Error; err != nil {
			return err
		}
		return errRule
	})
	if !errors.Is(err, errRule) {
		t.Fatalf("RunInTx() error = %v, want %v", err, errRule)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}

	var count int64
	db.Model(&models.ContactMessage{}).Count(&count)
	if count != 0 {
		t.Errorf("rows = %d, want 0 after rollback", count)
	}
}

func TestRunInTxGivesUpAfterAttempts(t *testing.T) {
	db := dbtest.Open(t)
	p := fastPolicy()
	p.Attempts = 2

	calls := 0
	err := database.RunInTx(context.Background(), db, p, func(tx *gorm.DB) error {
		calls++
		return sqlite3.Error{Code: sqlite3.ErrBusy}
	})
	if !database.IsRetryable(err) {
		t.Fatalf("RunInTx() error = %v, want the conflict", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}
