package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
)

// Decrypt verifies and decrypts data under a single key. See DecryptAny.
func Decrypt(key Key, data []byte) ([]byte, error) {
	return DecryptAny(KeyRing{key}, data)
}

// DecryptAny verifies and decrypts data, trying every key in the ring in
// order; the first key that authenticates wins. The envelope format is
// recovered from the data itself, never supplied by the caller.
//
// If data carries the legacy marker it is parsed with the oversized IV
// field. Anything else is first treated as the current format; only when no
// key authenticates that reading is the same data reinterpreted as an
// unversioned envelope and the ring tried again. When every interpretation
// is exhausted the result is ErrAuthentication.
//
// DecryptAny is safe for concurrent use.
func DecryptAny(ring KeyRing, data []byte) ([]byte, error) {
	plaintext, _, err := decryptAny(ring, data)
	return plaintext, err
}

// decryptAny also reports which format matched, so adapters can count how
// much un-migrated data they still read.
func decryptAny(ring KeyRing, data []byte) ([]byte, format, error) {
	if len(ring) == 0 {
		return nil, formatCurrent, ErrNoKeys
	}
	for _, key := range ring {
		if err := key.validate(); err != nil {
			return nil, formatCurrent, err
		}
	}
	if len(data) < markerSize {
		return nil, formatCurrent, fmt.Errorf("%w: empty input", ErrMalformedCiphertext)
	}

	f := sniff(data)
	env, err := parseEnvelope(data, f)
	if err != nil {
		return nil, f, err
	}

	for _, key := range ring {
		if plaintext, err := open(key, env); err == nil {
			return plaintext, f, nil
		}
	}

	// The oldest blobs are marker-less, and nothing in their leading bytes
	// reliably separates them from current-format data. Before giving up on
	// a current-sniffed envelope, reinterpret the same bytes as an
	// unversioned envelope; the HMAC check rejects wrong readings.
	if f == formatCurrent {
		if fallback, err := parseEnvelope(data, formatUnversioned); err == nil {
			for _, key := range ring {
				if plaintext, err := open(key, fallback); err == nil {
					return plaintext, formatUnversioned, nil
				}
			}
		}
	}

	return nil, f, ErrAuthentication
}

// open authenticates the envelope under key and, only on success, decrypts
// it. The tag comparison is constant time.
func open(key Key, env *envelope) ([]byte, error) {
	mac := hmac.New(sha256.New, key.mac())
	mac.Write(env.ivField)
	mac.Write(env.cipher)
	if !hmac.Equal(mac.Sum(nil), env.tag) {
		return nil, ErrAuthentication
	}

	block, err := aes.NewCipher(key.aes())
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create cipher: %w", err)
	}

	plaintext := make([]byte, len(env.cipher))
	cipher.NewCTR(block, env.iv()).XORKeyStream(plaintext, env.cipher)
	return plaintext, nil
}
