package crypto

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math"
	"testing"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/algohackers/saarthi-vault/internal/errs"
	"github.com/algohackers/saarthi-vault/internal/model"
)

func TestGenerateKey_LengthUniq(t *testing.T) {
	t.Parallel()
	a, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if len(a) != KeyLen {
		t.Fatalf("len=%d, want=%d", len(a), KeyLen)
	}
	b, _ := GenerateKey()
	if bytes.Equal(a, b) {
		t.Fatalf("GenerateKey produced equal keys")
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	t.Parallel()
	key, _ := GenerateKey()
	for _, pt := range [][]byte{nil, []byte(""), []byte("x"), []byte("ABCDE1234F"), bytes.Repeat([]byte{0xAB}, 4096)} {
		ct, err := Encrypt(pt, key)
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		got, err := Decrypt(ct, key)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if !bytes.Equal(got, pt) {
			t.Fatalf("round trip mismatch: got %q want %q", got, pt)
		}
	}
}

func TestDecrypt_WrongKeyFailsClosed(t *testing.T) {
	t.Parallel()
	key, _ := GenerateKey()
	other, _ := GenerateKey()
	ct, _ := Encrypt([]byte("secret"), key)
	if _, err := Decrypt(ct, other); !errors.Is(err, errs.ErrAuthenticationFailed) {
		t.Fatalf("want ErrAuthenticationFailed, got %v", err)
	}
}

func TestDecrypt_TamperAnyByte(t *testing.T) {
	t.Parallel()
	key, _ := GenerateKey()
	ct, _ := Encrypt([]byte("tamper detection"), key)
	for i := range ct {
		mut := append([]byte(nil), ct...)
		mut[i] ^= 0x01
		if _, err := Decrypt(mut, key); !errors.Is(err, errs.ErrAuthenticationFailed) {
			t.Fatalf("byte %d: flipped ciphertext decrypted, err=%v", i, err)
		}
	}
}

func TestDecrypt_Malformed(t *testing.T) {
	t.Parallel()
	key, _ := GenerateKey()
	for _, ct := range [][]byte{nil, {}, bytes.Repeat([]byte{1}, chacha20poly1305.NonceSizeX - 1)} {
		if _, err := Decrypt(ct, key); !errors.Is(err, errs.ErrAuthenticationFailed) {
			t.Fatalf("short input: want ErrAuthenticationFailed, got %v", err)
		}
	}
}

func TestEncrypt_NonceUniqueness(t *testing.T) {
	key, _ := GenerateKey()
	const n = 10000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		ct, err := Encrypt([]byte("p"), key)
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		nonce := hex.EncodeToString(ct[:chacha20poly1305.NonceSizeX])
		if _, dup := seen[nonce]; dup {
			t.Fatalf("nonce repeated after %d encryptions", i)
		}
		seen[nonce] = struct{}{}
	}
}

func TestSerializeEmbedding_BitExact(t *testing.T) {
	t.Parallel()
	e := model.Embedding{0, 1, -1, 0.4, math.SmallestNonzeroFloat64, math.MaxFloat64, math.Inf(1), math.Copysign(0, -1)}
	got, err := DeserializeEmbedding(SerializeEmbedding(e))
	if err != nil {
		t.Fatalf("DeserializeEmbedding: %v", err)
	}
	if len(got) != len(e) {
		t.Fatalf("len=%d, want=%d", len(got), len(e))
	}
	for i := range e {
		if math.Float64bits(got[i]) != math.Float64bits(e[i]) {
			t.Fatalf("element %d not bit-identical: %x vs %x", i, math.Float64bits(got[i]), math.Float64bits(e[i]))
		}
	}
}

func TestDeserializeEmbedding_BadLength(t *testing.T) {
	t.Parallel()
	if _, err := DeserializeEmbedding(make([]byte, 13)); err == nil {
		t.Fatalf("want error for truncated input")
	}
}

func TestZero(t *testing.T) {
	t.Parallel()
	b := []byte{1, 2, 3, 4}
	Zero(b)
	if !bytes.Equal(b, make([]byte, 4)) {
		t.Fatalf("Zero left residue: %v", b)
	}
}
