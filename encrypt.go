package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
)

// Encrypt encrypts and signs plaintext under key, always in the current
// format: a fresh random 16-byte IV, AES-256-CTR over the plaintext, and an
// HMAC-SHA256 tag over IV followed by ciphertext. Encrypting the empty
// plaintext is valid and produces a complete envelope.
//
// Encrypt is safe for concurrent use.
func Encrypt(key Key, plaintext []byte) ([]byte, error) {
	if err := key.validate(); err != nil {
		return nil, err
	}

	out := make([]byte, markerSize+ivSize+len(plaintext)+tagSize)
	out[0] = markerCurrent

	iv := out[markerSize : markerSize+ivSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("crypto: failed to generate IV: %w", err)
	}

	block, err := aes.NewCipher(key.aes())
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create cipher: %w", err)
	}

	encrypted := out[markerSize+ivSize : len(out)-tagSize]
	cipher.NewCTR(block, iv).XORKeyStream(encrypted, plaintext)

	mac := hmac.New(sha256.New, key.mac())
	mac.Write(iv)
	mac.Write(encrypted)
	copy(out[len(out)-tagSize:], mac.Sum(nil))

	return out, nil
}
