// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Capture failures. The vault never retries a burst on its own; recapture
// policy belongs to the caller.
var (
	// ErrNoSubjectDetected indicates a frame with no usable face; the whole
	// burst is discarded.
	ErrNoSubjectDetected = errors.New("no subject detected")

	// ErrInconsistentCapture indicates a burst where a sample did not match
	// the first one. The caller should ask the user to retry capture.
	ErrInconsistentCapture = errors.New("inconsistent capture, retry capture")

	// ErrCaptureSource indicates the capture source failed mid-burst.
	ErrCaptureSource = errors.New("capture source failure")
)

// Authentication and enrollment failures.
var (
	// ErrFaceNotRecognized indicates no enrolled template matched the live
	// capture. The caller may offer enrollment.
	ErrFaceNotRecognized = errors.New("face not recognized")

	// ErrDuplicateUser indicates a user_id collision at enrollment.
	ErrDuplicateUser = errors.New("user already enrolled")

	// ErrKeyNotFound indicates the face matched but the custodian holds no
	// wrapping key for the user. Distinct from ErrFaceNotRecognized so the
	// caller can flag a data-integrity problem instead of offering enrollment.
	ErrKeyNotFound = errors.New("secure key missing, re-enrollment required")

	// ErrKeyDecryptFailed indicates the stored KEK could not be unwrapped
	// with the retrieved wrapping key.
	ErrKeyDecryptFailed = errors.New("key decryption failed")

	// ErrRateLimited indicates a temporary login lockout after repeated
	// failed attempts.
	ErrRateLimited = errors.New("rate limited")
)

// Vault access failures.
var (
	// ErrValidation indicates a malformed caller request, rejected before any
	// capture or storage work happens.
	ErrValidation = errors.New("validation failed")

	// ErrNotAuthenticated indicates a PII operation outside an active session.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrKeyMismatch indicates an AEAD authentication failure while
	// unwrapping or decrypting, e.g. a KEK from a different session.
	// Deliberately distinct from ErrNotFound.
	ErrKeyMismatch = errors.New("key mismatch")
)

// Cryptographic and key-custodian failures.
var (
	// ErrAuthenticationFailed indicates a tag mismatch or malformed
	// ciphertext; decryption fails closed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrKeyStoreUnavailable indicates the secret-store backend could not be
	// reached or returned a malformed response.
	ErrKeyStoreUnavailable = errors.New("key store unavailable")
)
