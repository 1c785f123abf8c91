package backend

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"bilancio/internal/config"
	gsheet "bilancio/internal/sheets/google"
	"bilancio/internal/sheets/memory"
	"bilancio/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}

	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db"})
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.Mirror != MemoryMirror {
		t.Errorf("unexpected config: %+v", cfg)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "excel"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "postgres"}); err == nil {
		t.Error("expected error for postgres without DSN")
	}
}

func TestCreateStore(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "memory", config: Config{Type: MemoryBackend}},
		{name: "sqlite", config: Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "db", "bilancio.db")}},
		{name: "invalid", config: Config{Type: "excel"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.CreateStore(ctx, tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CreateStore() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			defer res.Cleanup()

			if err := res.Ping(ctx); err != nil {
				t.Fatalf("Ping() error = %v", err)
			}
			if err := res.Store.Set(ctx, storage.KeyTransactions, "[]"); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			v, ok, err := res.Store.Get(ctx, storage.KeyTransactions)
			if err != nil || !ok || v != "[]" {
				t.Errorf("Get() = %q, %v, %v", v, ok, err)
			}
		})
	}
}

func TestCreateMirror(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	m, err := f.CreateMirror(ctx, Config{Mirror: MemoryMirror})
	if err != nil {
		t.Fatalf("CreateMirror(memory) error = %v", err)
	}
	if _, ok := m.(*memory.Mirror); !ok {
		t.Errorf("CreateMirror(memory) returned %T", m)
	}

	_, err = f.CreateMirror(ctx, Config{Mirror: SheetsMirror, GoogleServiceAccountJSON: "{}"})
	if !errors.Is(err, gsheet.ErrMissingSpreadsheetID) {
		t.Errorf("CreateMirror(sheets) error = %v, want ErrMissingSpreadsheetID", err)
	}

	_, err = f.CreateMirror(ctx, Config{Mirror: "excel"})
	if err == nil || !strings.Contains(err.Error(), "invalid mirror type") {
		t.Errorf("CreateMirror(excel) error = %v", err)
	}
}
