// Package fieldcrypt encrypts individual string fields with AES-256-GCM.
//
// Ciphertext is base64(nonce || sealed). The AES key is derived from the
// configured secret with HKDF-SHA256, so any secret length is accepted.
//
// Decrypt is lenient: a value that cannot be opened (wrong key, corruption,
// or a legacy plaintext value) is returned unchanged and the anomaly is logged.
package fieldcrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/crypto/hkdf"
)

var (
	hkdfSalt = []byte("incident-server/fieldcrypt")
	hkdfInfo = []byte("field-encryption-v1")
)

// Codec seals and opens string fields with a single key.
type Codec struct {
	aead   cipher.AEAD
	logger *zap.SugaredLogger
}

// NewCodec derives the field key from secret.
func NewCodec(secret string, logger *zap.SugaredLogger) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("encryption secret is empty")
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), hkdfSalt, hkdfInfo), key); err != nil {
		return nil, fmt.Errorf("derive field key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Codec{aead: aead, logger: logger}, nil
}

// Encrypt seals plaintext. The empty string passes through unchanged.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return plaintext, nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. It never fails: values that do
// not open are returned as stored.
func (c *Codec) Decrypt(value string) string {
	if value == "" {
		return value
	}

	plaintext, err := c.open(value)
	if err != nil {
		c.logger.Warnw("Field decrypt failed, returning stored value",
			"error", err,
			"length", len(value),
		)
		return value
	}
	return plaintext
}

func (c *Codec) open(value string) (string, error) {
	payload, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}

	ns := c.aead.NonceSize()
	if len(payload) < ns+c.aead.Overhead() {
		return "", errors.New("ciphertext too short")
	}

	plaintext, err := c.aead.Open(nil, payload[:ns], payload[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	return string(plaintext), nil
}
