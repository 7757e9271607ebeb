package components

import (
	"context"
	"fmt"

	"trendcast/internal/storage"
	_ "trendcast/internal/storage/sqlite"
)

// StorageComponent owns the run history database.
type StorageComponent struct {
	dbPath string
	store  storage.StorageInterface
}

func NewStorageComponent(dbPath string) *StorageComponent {
	return &StorageComponent{
		dbPath: dbPath,
	}
}

func (c *StorageComponent) Name() string {
	return StorageComponentName
}

func (c *StorageComponent) Dependencies() []string {
	return []string{}
}

func (c *StorageComponent) Validate() error {
	if c.dbPath == "" {
		return fmt.Errorf("storage: database path is required")
	}
	return nil
}

func (c *StorageComponent) Initialize(ctx context.Context) error {
	store, err := storage.New("sqlite", c.dbPath)
	if err != nil {
		return fmt.Errorf("storage: failed to initialize store: %w", err)
	}

	c.store = store
	return nil
}

func (c *StorageComponent) Close(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	return c.store.Close(ctx)
}

func (c *StorageComponent) Store() storage.StorageInterface {
	return c.store
}
