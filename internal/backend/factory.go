package backend

import (
	"fmt"

	"budgetinsights/internal/log"
	"budgetinsights/internal/storage"
	"budgetinsights/internal/storage/memory"
)

var (
	_ Backend = (*storage.SQLiteRepository)(nil)
	_ Backend = (*memory.Store)(nil)
)

// Factory opens backends based on configuration.
type Factory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Factory{logger: logger.WithComponent(log.ComponentStorage)}
}

// CreateBackend opens the backend described by config.
func (f *Factory) CreateBackend(config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *Factory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Backend: repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *Factory) createMemoryBackend() (*BackendResult, error) {
	f.logger.Info("Initialized memory backend; data is lost on exit")
	return &BackendResult{Backend: memory.New()}, nil
}
