package crypto

// KeyProvider abstracts key retrieval for encryption and decryption.
// Implementations must be safe for concurrent use. KeyRing and
// StaticKeyProvider satisfy this requirement.
type KeyProvider interface {
	// CurrentKey returns the key to use for new encryptions.
	CurrentKey() (Key, error)

	// DecryptionKeys returns every candidate key, in the order decryption
	// should try them. The current key comes first. The envelope format
	// carries no key identifier, so decryption works through candidates
	// until one authenticates.
	DecryptionKeys() (KeyRing, error)
}
