package crypto

import (
	"fmt"
	"sync"

	"github.com/awnumar/memguard"
)

// StaticKeyProvider is a KeyProvider backed by in-memory keys. Key material
// lives in memguard locked buffers, so the secrets stay off swap and are
// wiped deterministically by Destroy. It is safe for concurrent use.
type StaticKeyProvider struct {
	mu        sync.RWMutex
	bufs      []*memguard.LockedBuffer // declaration order, current key first
	ring      KeyRing                  // views into bufs
	destroyed bool
	err       error // deferred validation error from options
}

// StaticOption configures a StaticKeyProvider.
type StaticOption func(*StaticKeyProvider)

// WithOldKey adds a retired key as a decryption candidate during key
// rotation. Candidates are tried in the order they were declared. The blob
// must be 64 bytes; it is copied into protected memory, and the caller may
// wipe the original after construction.
func WithOldKey(keyBytes []byte) StaticOption {
	return func(p *StaticKeyProvider) {
		if p.err != nil {
			return
		}
		if err := p.addKey(keyBytes); err != nil {
			p.err = fmt.Errorf("%w (old key %d)", err, len(p.ring))
		}
	}
}

// NewStaticKeyProvider creates a KeyProvider with the given 64-byte current
// key. Retired keys can be added with WithOldKey for rotation support. Key
// bytes are copied into protected memory; the caller may safely wipe the
// originals after construction. Call Destroy when the provider is no longer
// needed.
func NewStaticKeyProvider(keyBytes []byte, opts ...StaticOption) (*StaticKeyProvider, error) {
	p := &StaticKeyProvider{}
	if err := p.addKey(keyBytes); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.err != nil {
		p.Destroy()
		return nil, p.err
	}
	return p, nil
}

func (p *StaticKeyProvider) addKey(keyBytes []byte) error {
	if len(keyBytes) != KeySize {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(keyBytes))
	}
	// NewBufferFromBytes wipes its source, so hand it a scratch copy rather
	// than the caller's slice.
	scratch := make([]byte, KeySize)
	copy(scratch, keyBytes)
	buf := memguard.NewBufferFromBytes(scratch)

	key, err := keyFromBuffer(buf.Bytes())
	if err != nil {
		buf.Destroy()
		return err
	}
	p.bufs = append(p.bufs, buf)
	p.ring = append(p.ring, key)
	return nil
}

// CurrentKey returns the key for new encryptions. The key is valid until
// Destroy is called.
func (p *StaticKeyProvider) CurrentKey() (Key, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.destroyed {
		return Key{}, ErrProviderDestroyed
	}
	return p.ring[0], nil
}

// DecryptionKeys returns all keys in declaration order, current key first.
// The keys are valid until Destroy is called.
func (p *StaticKeyProvider) DecryptionKeys() (KeyRing, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.destroyed {
		return nil, ErrProviderDestroyed
	}
	return p.ring, nil
}

// Destroy wipes and releases all key material. Subsequent calls to
// CurrentKey or DecryptionKeys fail with ErrProviderDestroyed. Destroy is
// idempotent.
func (p *StaticKeyProvider) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return
	}
	for _, buf := range p.bufs {
		buf.Destroy()
	}
	p.bufs = nil
	p.ring = nil
	p.destroyed = true
}

// Compile-time interface check.
var _ KeyProvider = (*StaticKeyProvider)(nil)
