// Package service contains the identity manager that orchestrates capture,
// key custody and encrypted PII storage.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/algohackers/saarthi-vault/internal/capture"
	pkgcrypto "github.com/algohackers/saarthi-vault/internal/crypto"
	"github.com/algohackers/saarthi-vault/internal/errs"
	"github.com/algohackers/saarthi-vault/internal/facerec"
	"github.com/algohackers/saarthi-vault/internal/keystore"
	"github.com/algohackers/saarthi-vault/internal/model"
	"github.com/algohackers/saarthi-vault/internal/repository"
)

// IdentityManager owns one logical session: the in-memory KEK and the current
// user's identity. Instances are explicitly constructed and injected; there
// is no process-wide singleton. The manager is safe for concurrent callers
// sharing an instance: session state and PII writes are serialized by one
// lock, which also preserves latest-wins ordering for same-type writes.
//
// Invariant: an active session always holds a non-nil KEK; logout clears
// both together under the lock.
type IdentityManager struct {
	users   repository.UserRepository
	pii     repository.PIIRepository
	keys    keystore.Custodian
	agg     *capture.Aggregator
	matcher facerec.Matcher

	mu      sync.Mutex
	current *model.User
	kek     []byte
	active  bool
}

// NewIdentityManager constructs a manager with injected collaborators, one
// instance per caller session.
func NewIdentityManager(
	users repository.UserRepository,
	pii repository.PIIRepository,
	keys keystore.Custodian,
	agg *capture.Aggregator,
	matcher facerec.Matcher,
) *IdentityManager {
	return &IdentityManager{users: users, pii: pii, keys: keys, agg: agg, matcher: matcher}
}

// deriveUserID produces a stable opaque identifier for a new enrollment.
func deriveUserID(p model.Profile) (string, error) {
	uid, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	sum := sha256.Sum256(fmt.Appendf(nil, "%s_%d_%s", name, time.Now().Unix(), uid.String()[:8]))
	return hex.EncodeToString(sum[:])[:16], nil
}

// Enroll captures and validates a face burst, provisions the wrapping-key /
// KEK hierarchy and persists the enrollment. On success the new session is
// immediately active with the fresh KEK; no separate login is needed.
func (m *IdentityManager) Enroll(ctx context.Context, profile model.Profile, src capture.Source) (string, error) {
	if profile.FirstName == "" {
		// the aggregator only releases the source once capture starts, so
		// pre-capture aborts must release it here
		_ = src.Close()
		return "", fmt.Errorf("%w: empty first name", errs.ErrValidation)
	}

	emb, err := m.agg.CaptureAndValidate(ctx, src)
	if err != nil {
		return "", err
	}

	kek, err := pkgcrypto.GenerateKey()
	if err != nil {
		return "", err
	}
	wrappingKey, err := pkgcrypto.GenerateKey()
	if err != nil {
		pkgcrypto.Zero(kek)
		return "", err
	}
	defer pkgcrypto.Zero(wrappingKey)

	wrappedKEK, err := pkgcrypto.Encrypt(kek, wrappingKey)
	if err != nil {
		pkgcrypto.Zero(kek)
		return "", err
	}

	userID, err := deriveUserID(profile)
	if err != nil {
		pkgcrypto.Zero(kek)
		return "", err
	}

	u := &model.User{
		ID:           userID,
		Profile:      profile,
		FaceTemplate: pkgcrypto.SerializeEmbedding(emb),
		WrappedKEK:   wrappedKEK,
	}
	if err := m.users.Create(ctx, u); err != nil {
		pkgcrypto.Zero(kek)
		return "", err
	}

	if err := m.keys.Store(ctx, userID, wrappingKey); err != nil {
		// The user row is already persisted and there is no deletion path,
		// so the record stays. The state is detectable: the first login for
		// this face reports the key-missing error, not face-not-recognized.
		pkgcrypto.Zero(kek)
		return "", fmt.Errorf("store wrapping key: %w", err)
	}

	m.mu.Lock()
	m.beginSessionLocked(u, kek)
	m.mu.Unlock()
	return userID, nil
}

// Login captures a face burst and scans enrolled templates in store order;
// the first match wins. Unknown faces, missing wrapping keys and key-decrypt
// failures surface distinctly so the caller can tell "offer enrollment" from
// "data-integrity problem". An empty enumeration is a valid no-match outcome.
func (m *IdentityManager) Login(ctx context.Context, src capture.Source) (string, error) {
	emb, err := m.agg.CaptureAndValidate(ctx, src)
	if err != nil {
		return "", err
	}

	users, err := m.users.List(ctx)
	if err != nil {
		return "", err
	}

	var matched *model.User
	for i := range users {
		stored, err := pkgcrypto.DeserializeEmbedding(users[i].FaceTemplate)
		if err != nil {
			return "", fmt.Errorf("template for user %s: %w", users[i].ID, err)
		}
		if m.matcher.Match(emb, stored) {
			matched = &users[i]
			break
		}
	}
	if matched == nil {
		return "", errs.ErrFaceNotRecognized
	}

	wrappingKey, err := m.keys.Retrieve(ctx, matched.ID)
	if err != nil {
		return "", err
	}
	defer pkgcrypto.Zero(wrappingKey)

	kek, err := pkgcrypto.Decrypt(matched.WrappedKEK, wrappingKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrKeyDecryptFailed, err)
	}

	m.mu.Lock()
	m.beginSessionLocked(matched, kek)
	m.mu.Unlock()
	return matched.ID, nil
}

// Logout zeroizes and drops the in-memory KEK and clears the session. The
// wrapping key stays in the custodian; deleting it is a separate, explicit
// administrative act (PurgeWrappingKey).
func (m *IdentityManager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.endSessionLocked()
}

// Reauthenticate runs a fresh capture and compares it against the current
// user's stored template only, as a step-up check before sensitive
// operations. Session state is never changed here; a false result tells the
// caller to refuse the operation.
func (m *IdentityManager) Reauthenticate(ctx context.Context, src capture.Source) (bool, error) {
	m.mu.Lock()
	if !m.sessionActiveLocked() {
		m.mu.Unlock()
		_ = src.Close()
		return false, errs.ErrNotAuthenticated
	}
	userID := m.current.ID
	m.mu.Unlock()

	emb, err := m.agg.CaptureAndValidate(ctx, src)
	if err != nil {
		return false, err
	}

	u, err := m.users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	stored, err := pkgcrypto.DeserializeEmbedding(u.FaceTemplate)
	if err != nil {
		return false, err
	}
	return m.matcher.Match(emb, stored), nil
}

// EncryptPII encrypts plaintext under a fresh DEK, wraps the DEK with the
// session KEK and appends a new record. Requires an active session.
func (m *IdentityManager) EncryptPII(ctx context.Context, dataType string, plaintext []byte) error {
	if dataType == "" {
		return fmt.Errorf("%w: empty data type", errs.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.sessionActiveLocked() {
		return errs.ErrNotAuthenticated
	}

	dek, err := pkgcrypto.GenerateKey()
	if err != nil {
		return err
	}
	defer pkgcrypto.Zero(dek)

	ct, err := pkgcrypto.Encrypt(plaintext, dek)
	if err != nil {
		return err
	}
	wrappedDEK, err := pkgcrypto.Encrypt(dek, m.kek)
	if err != nil {
		return err
	}

	rec := &model.PIIRecord{
		UserID:        m.current.ID,
		DataType:      dataType,
		EncryptedData: ct,
		EncryptedDEK:  wrappedDEK,
	}
	return m.pii.Store(ctx, rec)
}

// DecryptPII fetches the latest record for dataType, unwraps its DEK with the
// session KEK and returns the plaintext. Unwrap and decrypt authentication
// failures surface as errs.ErrKeyMismatch, deliberately distinct from
// errs.ErrNotFound.
func (m *IdentityManager) DecryptPII(ctx context.Context, dataType string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.sessionActiveLocked() {
		return nil, errs.ErrNotAuthenticated
	}

	rec, err := m.pii.GetLatest(ctx, m.current.ID, dataType)
	if err != nil {
		return nil, err
	}

	dek, err := pkgcrypto.Decrypt(rec.EncryptedDEK, m.kek)
	if err != nil {
		return nil, fmt.Errorf("%w: wrapped dek", errs.ErrKeyMismatch)
	}
	defer pkgcrypto.Zero(dek)

	pt, err := pkgcrypto.Decrypt(rec.EncryptedData, dek)
	if err != nil {
		return nil, fmt.Errorf("%w: pii ciphertext", errs.ErrKeyMismatch)
	}
	return pt, nil
}

// ListPIITypes returns the data types stored for the current user.
func (m *IdentityManager) ListPIITypes(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.sessionActiveLocked() {
		return nil, errs.ErrNotAuthenticated
	}
	return m.pii.ListDataTypes(ctx, m.current.ID)
}

// Profile returns a copy of the current user's profile.
func (m *IdentityManager) Profile() (model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.sessionActiveLocked() {
		return model.Profile{}, errs.ErrNotAuthenticated
	}
	return m.current.Profile, nil
}

// CurrentUserID returns the logged-in user's ID, or "" outside a session.
func (m *IdentityManager) CurrentUserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.sessionActiveLocked() {
		return ""
	}
	return m.current.ID
}

// SessionActive reports whether a session is active and a KEK is held.
func (m *IdentityManager) SessionActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionActiveLocked()
}

// PurgeWrappingKey deletes the current user's wrapping key from the
// custodian. After this the user cannot complete another login without
// re-enrollment; the running session keeps working until logout.
func (m *IdentityManager) PurgeWrappingKey(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.sessionActiveLocked() {
		return errs.ErrNotAuthenticated
	}
	return m.keys.Delete(ctx, m.current.ID)
}

// beginSessionLocked replaces any previous session, zeroizing its material
// first. Callers hold mu.
func (m *IdentityManager) beginSessionLocked(u *model.User, kek []byte) {
	m.endSessionLocked()
	m.current = u
	m.kek = kek
	m.active = true
}

// endSessionLocked zeroizes and drops session key material. Callers hold mu.
func (m *IdentityManager) endSessionLocked() {
	pkgcrypto.Zero(m.kek)
	m.kek = nil
	m.current = nil
	m.active = false
}

func (m *IdentityManager) sessionActiveLocked() bool {
	return m.active && m.kek != nil
}
