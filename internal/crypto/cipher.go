package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	// MessageKeySize is the required length of the message encryption key.
	MessageKeySize = 32

	// nonceSize is the per-message random IV length. GCM is configured for
	// 16-byte nonces to match the stored envelope layout.
	nonceSize = 16

	// envelopeSeparator joins the hex-encoded envelope fields. Hex never
	// contains ':' so the split is unambiguous.
	envelopeSeparator = ":"
)

// ErrDecrypt is returned when an envelope is malformed or fails
// authentication. Callers must treat it as "no plaintext", never as content.
var ErrDecrypt = errors.New("message decryption failed")

// MessageCipher encrypts and decrypts message bodies with AES-256-GCM under a
// single process-wide key. The stored form is "iv:tag:ciphertext", each field
// hex encoded.
type MessageCipher struct {
	aead cipher.AEAD
}

// NewMessageCipher creates a cipher from a raw 32-byte key. Any other key
// length is a configuration error.
func NewMessageCipher(key []byte) (*MessageCipher, error) {
	if len(key) != MessageKeySize {
		return nil, fmt.Errorf("invalid message key length: got %d want %d", len(key), MessageKeySize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return &MessageCipher{aead: aead}, nil
}

// Encrypt seals plaintext into an envelope with a fresh random nonce. Empty
// plaintext (image-only messages) produces an empty envelope.
func (c *MessageCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce, err := RandBytes(make([]byte, nonceSize))
	if err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)

	// Seal appends the tag to the ciphertext; split it back out so the
	// envelope keeps the iv:tag:ciphertext layout.
	tagOffset := len(sealed) - c.aead.Overhead()
	return hex.EncodeToString(nonce) +
		envelopeSeparator + hex.EncodeToString(sealed[tagOffset:]) +
		envelopeSeparator + hex.EncodeToString(sealed[:tagOffset]), nil
}

// Decrypt opens an envelope produced by Encrypt. An empty envelope yields an
// empty plaintext. Malformed or tampered envelopes return ErrDecrypt.
func (c *MessageCipher) Decrypt(envelope string) (string, error) {
	if envelope == "" {
		return "", nil
	}

	parts := strings.Split(envelope, envelopeSeparator)
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: malformed envelope", ErrDecrypt)
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != nonceSize {
		return "", fmt.Errorf("%w: bad nonce", ErrDecrypt)
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != c.aead.Overhead() {
		return "", fmt.Errorf("%w: bad auth tag", ErrDecrypt)
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext", ErrDecrypt)
	}

	plaintext, err := c.aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrDecrypt)
	}

	return string(plaintext), nil
}
