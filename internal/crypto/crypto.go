package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

type AEAD struct{ aead cipher.AEAD }

// Stored tokens are tied to this application; a fixed salt keeps the derived
// key stable across processes without another secret to manage.
var kdfSalt = []byte("locksync.vendor_credentials.v1")

const kdfIters = 210_000

// NewFromPassphrase derives a 256-bit AES-GCM key from a passphrase.
func NewFromPassphrase(passphrase string) (*AEAD, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("empty passphrase")
	}
	key := pbkdf2.Key([]byte(passphrase), kdfSalt, kdfIters, 32, sha256.New)
	return New(key)
}

func New(key []byte) (*AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	a, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AEAD{aead: a}, nil
}

func (a *AEAD) EncryptToString(plaintext string) (string, error) {
	nonce := make([]byte, a.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	ct := a.aead.Seal(nil, nonce, []byte(plaintext), nil)
	buf := append(nonce, ct...)
	return base64.RawStdEncoding.EncodeToString(buf), nil
}

func (a *AEAD) DecryptString(ciphertextB64 string) (string, error) {
	buf, err := base64.RawStdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", err
	}
	ns := a.aead.NonceSize()
	if len(buf) < ns {
		return "", fmt.Errorf("ciphertext too short")
	}
	pt, err := a.aead.Open(nil, buf[:ns], buf[ns:], nil)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}
