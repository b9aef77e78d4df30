package keystore

import (
	"context"
	"sync"

	"github.com/algohackers/saarthi-vault/internal/errs"
)

// MemCustodian is an in-process custodian for development and tests. It
// mirrors the Vault backend's semantics, including idempotent deletion.
type MemCustodian struct {
	mu   sync.Mutex
	keys map[string][]byte
}

// NewMemCustodian returns an empty in-memory custodian.
func NewMemCustodian() *MemCustodian {
	return &MemCustodian{keys: make(map[string][]byte)}
}

func (c *MemCustodian) Store(_ context.Context, userID string, key []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[userID] = append([]byte(nil), key...)
	return nil
}

func (c *MemCustodian) Retrieve(_ context.Context, userID string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key, ok := c.keys[userID]
	if !ok {
		return nil, errs.ErrKeyNotFound
	}
	return append([]byte(nil), key...), nil
}

func (c *MemCustodian) Delete(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.keys, userID)
	return nil
}
