package testutil

import (
	"context"
	"time"

	"github.com/dinematters/dinematters/internal/postgres"
)

// InMemoryDB satisfies postgres.IClient for service tests. The in-memory
// stores serialize access with their own mutexes, so transactions and
// advisory locks collapse to direct calls.
type InMemoryDB struct{}

var _ postgres.IClient = (*InMemoryDB)(nil)

// NewInMemoryDB creates a new in-memory DB stub
func NewInMemoryDB() *InMemoryDB {
	return &InMemoryDB{}
}

func (db *InMemoryDB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (db *InMemoryDB) LockKey(ctx context.Context, key string, timeout time.Duration) error {
	return nil
}
