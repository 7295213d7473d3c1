package crypto

import (
	"crypto/rand"
	"fmt"

	"github.com/awnumar/memguard"
)

// Key is a 64-byte secret holding the AES-256 key in its first half and the
// HMAC-SHA256 key in its second half. The two halves are never supplied
// independently. The zero value is invalid; construct keys with GenerateKey
// or NewKey.
type Key struct {
	b []byte
}

// GenerateKey returns a fresh key drawn from the system's cryptographic
// random source.
func GenerateKey() Key {
	b := make([]byte, KeySize)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand is documented never to fail on supported platforms.
		panic(fmt.Sprintf("crypto: rand.Read: %v", err))
	}
	return Key{b: b}
}

// NewKey constructs a key from a 64-byte secret blob. The blob is copied;
// the caller may wipe the original afterwards.
func NewKey(blob []byte) (Key, error) {
	if len(blob) != KeySize {
		return Key{}, fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(blob))
	}
	b := make([]byte, KeySize)
	copy(b, blob)
	return Key{b: b}, nil
}

// Bytes returns a copy of the raw 64-byte secret, e.g. for persisting it to
// a secret store. The caller owns the copy and should wipe it when done.
func (k Key) Bytes() []byte {
	b := make([]byte, len(k.b))
	copy(b, k.b)
	return b
}

// Wipe overwrites the key's backing storage. The key must not be used
// afterwards.
func (k Key) Wipe() {
	memguard.WipeBytes(k.b)
}

// aes returns the AES-256 half of the key.
func (k Key) aes() []byte {
	return k.b[:aesKeySize]
}

// mac returns the HMAC-SHA256 half of the key.
func (k Key) mac() []byte {
	return k.b[aesKeySize:]
}

func (k Key) validate() error {
	if len(k.b) != KeySize {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(k.b))
	}
	return nil
}

// keyFromBuffer wraps key material owned elsewhere (a memguard buffer)
// without copying it. The caller keeps the backing storage alive.
func keyFromBuffer(b []byte) (Key, error) {
	if len(b) != KeySize {
		return Key{}, fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(b))
	}
	return Key{b: b}, nil
}

// KeyRing is an ordered list of decryption candidate keys. The first key is
// the designated encryption key; all keys are tried, in order, when
// decrypting. This supports key rotation: encrypt under the newest key while
// still reading ciphertext written under retired ones.
type KeyRing []Key

// NewKeyRing constructs a ring from raw 64-byte secret blobs, first-declared
// key first. Every blob is validated and copied.
func NewKeyRing(blobs ...[]byte) (KeyRing, error) {
	if len(blobs) == 0 {
		return nil, ErrNoKeys
	}
	ring := make(KeyRing, 0, len(blobs))
	for i, blob := range blobs {
		key, err := NewKey(blob)
		if err != nil {
			return nil, fmt.Errorf("%w (key %d)", err, i)
		}
		ring = append(ring, key)
	}
	return ring, nil
}

// Wipe overwrites the backing storage of every key in the ring.
func (r KeyRing) Wipe() {
	for _, k := range r {
		k.Wipe()
	}
}

// CurrentKey returns the ring's first key, implementing KeyProvider.
func (r KeyRing) CurrentKey() (Key, error) {
	if len(r) == 0 {
		return Key{}, ErrNoKeys
	}
	return r[0], nil
}

// DecryptionKeys returns the ring in declared order, implementing KeyProvider.
func (r KeyRing) DecryptionKeys() (KeyRing, error) {
	if len(r) == 0 {
		return nil, ErrNoKeys
	}
	return r, nil
}

// Compile-time interface check.
var _ KeyProvider = (KeyRing)(nil)
