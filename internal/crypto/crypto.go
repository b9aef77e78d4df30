// Package crypto implements the vault's symmetric primitives: key generation,
// authenticated encryption and face-template serialization.
package crypto

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/algohackers/saarthi-vault/internal/errs"
	"github.com/algohackers/saarthi-vault/internal/model"
)

// KeyLen is the symmetric key size shared by wrapping keys, KEKs and DEKs.
const KeyLen = chacha20poly1305.KeySize

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// GenerateKey returns a fresh 256-bit symmetric key.
func GenerateKey() ([]byte, error) { return RandBytes(KeyLen) }

// Encrypt seals plaintext with XChaCha20-Poly1305 under key. A fresh random
// nonce is drawn on every call and prefixed to the ciphertext, so the output
// self-describes and Decrypt needs only the key.
func Encrypt(plaintext, key []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce, err := RandBytes(chacha20poly1305.NonceSizeX)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, nonce...)
	out = append(out, aead.Seal(nil, nonce, plaintext, nil)...)
	return out, nil
}

// Decrypt opens a ciphertext produced by Encrypt. Tag mismatch or malformed
// input fails closed with errs.ErrAuthenticationFailed; partially decrypted
// data is never returned.
func Decrypt(ciphertext, key []byte) ([]byte, error) {
	if len(ciphertext) < chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("%w: ciphertext too short", errs.ErrAuthenticationFailed)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := ciphertext[:chacha20poly1305.NonceSizeX]
	pt, err := aead.Open(nil, nonce, ciphertext[chacha20poly1305.NonceSizeX:], nil)
	if err != nil {
		return nil, errs.ErrAuthenticationFailed
	}
	return pt, nil
}

// SerializeEmbedding encodes a face embedding as fixed-width big-endian
// IEEE-754 values. The round trip is bit-exact, which keeps template
// comparison deterministic across logins.
func SerializeEmbedding(e model.Embedding) []byte {
	out := make([]byte, 8*len(e))
	for i, v := range e {
		binary.BigEndian.PutUint64(out[i*8:], math.Float64bits(v))
	}
	return out
}

// DeserializeEmbedding decodes data produced by SerializeEmbedding.
func DeserializeEmbedding(data []byte) (model.Embedding, error) {
	if len(data)%8 != 0 {
		return nil, errors.New("malformed embedding: length not a multiple of 8")
	}
	e := make(model.Embedding, len(data)/8)
	for i := range e {
		e[i] = math.Float64frombits(binary.BigEndian.Uint64(data[i*8:]))
	}
	return e, nil
}

// Zero overwrites b in place. Best effort: the runtime may hold other copies,
// but every session teardown path passes key material through here.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
