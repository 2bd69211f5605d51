package shared

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestNewDatabase(t *testing.T) {
	t.Run("Opens A Database File", func(t *testing.T) {
		db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
		if err != nil {
			t.Fatalf("NewDatabase() error = %v", err)
		}
		defer db.Close()

		if err := db.Ping(); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})

	t.Run("Rejects An Empty Path", func(t *testing.T) {
		_, err := NewDatabase("")
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("error = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("ConfigureDatabase Ignores Non-Positive Limits", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("NewDatabase() error = %v", err)
		}
		defer db.Close()

		ConfigureDatabase(db, 0, -1)
		ConfigureDatabase(db, 2, 2)
	})
}
