package keystore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/vault/api"

	"github.com/algohackers/saarthi-vault/internal/errs"
)

const secretField = "wrapping_key"

// VaultCustodian keeps wrapping keys in HashiCorp Vault KV v2 under
// <mount>/data/<prefix>/<user_id>. The Vault server is the platform secret
// store; vault-store clients have no path to these secrets.
type VaultCustodian struct {
	kv     *api.KVv2
	prefix string
}

// NewVaultCustodian builds a custodian over an authenticated Vault client.
func NewVaultCustodian(address, token, mount, prefix string) (*VaultCustodian, error) {
	cfg := api.DefaultConfig()
	cfg.Address = address
	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault client: %w", err)
	}
	client.SetToken(token)
	return &VaultCustodian{kv: client.KVv2(mount), prefix: strings.Trim(prefix, "/")}, nil
}

func (c *VaultCustodian) path(userID string) string {
	return c.prefix + "/" + userID
}

// Store writes the user's wrapping key, replacing any previous version.
func (c *VaultCustodian) Store(ctx context.Context, userID string, key []byte) error {
	_, err := c.kv.Put(ctx, c.path(userID), map[string]interface{}{
		secretField: base64.StdEncoding.EncodeToString(key),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrKeyStoreUnavailable, err)
	}
	return nil
}

// Retrieve returns the user's wrapping key, or errs.ErrKeyNotFound when the
// backend holds no secret for the user.
func (c *VaultCustodian) Retrieve(ctx context.Context, userID string) ([]byte, error) {
	sec, err := c.kv.Get(ctx, c.path(userID))
	if err != nil {
		if errors.Is(err, api.ErrSecretNotFound) {
			return nil, errs.ErrKeyNotFound
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrKeyStoreUnavailable, err)
	}
	raw, ok := sec.Data[secretField].(string)
	if !ok {
		return nil, fmt.Errorf("%w: malformed secret for user", errs.ErrKeyStoreUnavailable)
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed secret for user", errs.ErrKeyStoreUnavailable)
	}
	return key, nil
}

// Delete removes the user's wrapping key versions. Deleting an absent key is
// not an error; the backend treats it as a no-op.
func (c *VaultCustodian) Delete(ctx context.Context, userID string) error {
	if err := c.kv.Delete(ctx, c.path(userID)); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrKeyStoreUnavailable, err)
	}
	return nil
}
