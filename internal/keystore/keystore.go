// Package keystore holds per-user wrapping keys in a secret store outside the
// vault's own database, so that a copy of the database alone is insufficient
// to decrypt any PII.
package keystore

import "context"

// Custodian stores, retrieves and deletes per-user wrapping keys.
// A missing key surfaces as errs.ErrKeyNotFound, distinct from backend
// failures (errs.ErrKeyStoreUnavailable).
type Custodian interface {
	Store(ctx context.Context, userID string, key []byte) error
	Retrieve(ctx context.Context, userID string) ([]byte, error)
	Delete(ctx context.Context, userID string) error
}
