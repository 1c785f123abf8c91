package backend

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/sheets"
	gsheet "bilancio/internal/sheets/google"
	"bilancio/internal/sheets/memory"
	"bilancio/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateStore opens the key-value store for config.Type, running
// migrations for the SQL backends.
func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*StoreResult, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return &StoreResult{Store: repo, Ping: repo.Ping, Cleanup: repo.Close}, nil

	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized postgres backend")
		return &StoreResult{Store: repo, Ping: repo.Ping, Cleanup: repo.Close}, nil

	default:
		store := storage.NewMemoryStore()
		f.logger.InfoContext(ctx, "Initialized memory backend; data is lost on exit")
		return &StoreResult{
			Store:   store,
			Ping:    func(context.Context) error { return nil },
			Cleanup: store.Close,
		}, nil
	}
}

// CreateMirror builds the transaction mirror for config.Mirror. The sheets
// mirror writes its header row before it is returned.
func (f *DefaultFactory) CreateMirror(ctx context.Context, config Config) (sheets.TransactionMirror, error) {
	switch config.Mirror {
	case SheetsMirror:
		cli, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   config.GoogleSpreadsheetID,
			SheetName:       config.GoogleSheetName,
			CredentialsFile: config.GoogleServiceAccountFile,
			CredentialsJSON: config.GoogleServiceAccountJSON,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		if err := cli.EnsureHeader(ctx); err != nil {
			return nil, fmt.Errorf("failed to write sheet header: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized Google Sheets mirror", "spreadsheet_id", config.GoogleSpreadsheetID)
		return cli, nil

	case MemoryMirror, "":
		f.logger.InfoContext(ctx, "Initialized in-memory mirror")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("invalid mirror type: %s", config.Mirror)
	}
}
