// Package vault seals document text for the record store. Blobs are
// nonce(12) || ciphertext || tag(16); the key never leaves the Cipher.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	types "github.com/yungbote/lexi-backend/internal/domain"
)

const (
	KeySize   = 32
	NonceSize = 12
	TagSize   = 16
)

type Algorithm string

const (
	AlgorithmAESGCM           Algorithm = "aes-256-gcm"
	AlgorithmChaCha20Poly1305 Algorithm = "chacha20-poly1305"
)

func ParseAlgorithm(raw string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(raw))); a {
	case "", AlgorithmAESGCM:
		return AlgorithmAESGCM, nil
	case AlgorithmChaCha20Poly1305:
		return a, nil
	default:
		return "", fmt.Errorf("unknown cipher algorithm %q", raw)
	}
}

type Option func(*Cipher)

func WithAlgorithm(a Algorithm) Option {
	return func(c *Cipher) { c.algorithm = a }
}

// WithRand replaces the nonce source.
func WithRand(r io.Reader) Option {
	return func(c *Cipher) { c.rand = r }
}

type Cipher struct {
	aead      cipher.AEAD
	algorithm Algorithm
	rand      io.Reader
}

// New fails closed unless key is exactly 32 bytes.
func New(key []byte, opts ...Option) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, types.ErrInvalidKeyLength
	}
	c := &Cipher{algorithm: AlgorithmAESGCM, rand: rand.Reader}
	for _, opt := range opts {
		opt(c)
	}
	var (
		aead cipher.AEAD
		err  error
	)
	switch c.algorithm {
	case AlgorithmAESGCM:
		var block cipher.Block
		block, err = aes.NewCipher(key)
		if err == nil {
			aead, err = cipher.NewGCM(block)
		}
	case AlgorithmChaCha20Poly1305:
		aead, err = chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("unknown cipher algorithm %q", c.algorithm)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s: %w", c.algorithm, err)
	}
	if aead.NonceSize() != NonceSize || aead.Overhead() != TagSize {
		return nil, fmt.Errorf("%s: unexpected nonce/tag size", c.algorithm)
	}
	c.aead = aead
	return c, nil
}

func (c *Cipher) Algorithm() Algorithm { return c.algorithm }

// Encrypt returns an empty blob for empty input.
func (c *Cipher) Encrypt(plaintext string) ([]byte, error) {
	if plaintext == "" {
		return []byte{}, nil
	}
	nonce := make([]byte, NonceSize, NonceSize+len(plaintext)+TagSize)
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

func (c *Cipher) Decrypt(blob []byte) (string, error) {
	if len(blob) == 0 {
		return "", nil
	}
	if len(blob) < NonceSize+TagSize {
		return "", types.ErrDecryptionFailed
	}
	out, err := c.aead.Open(nil, blob[:NonceSize], blob[NonceSize:], nil)
	if err != nil {
		return "", types.ErrDecryptionFailed
	}
	return string(out), nil
}
