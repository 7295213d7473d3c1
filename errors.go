package crypto

import "errors"

var (
	// ErrInvalidKeySize is returned when a key blob is not 64 bytes
	// (32-byte AES-256 key followed by a 32-byte HMAC-SHA256 key).
	ErrInvalidKeySize = errors.New("crypto: invalid key size, must be 64 bytes")

	// ErrAuthentication is returned when no candidate key authenticates the
	// ciphertext (wrong key, tampered data).
	ErrAuthentication = errors.New("crypto: message authentication failed")

	// ErrMalformedCiphertext is returned when data is too short to hold a
	// complete envelope for its detected format.
	ErrMalformedCiphertext = errors.New("crypto: malformed ciphertext")

	// ErrNoKeys is returned when a key ring or provider has no keys.
	ErrNoKeys = errors.New("crypto: no keys provided")

	// ErrProviderDestroyed is returned when a key provider is used after
	// its key material has been wiped.
	ErrProviderDestroyed = errors.New("crypto: key provider destroyed")
)

// IsInvalidKeySize returns true if the error is or wraps ErrInvalidKeySize.
func IsInvalidKeySize(err error) bool {
	return errors.Is(err, ErrInvalidKeySize)
}

// IsAuthenticationFailed returns true if the error is or wraps ErrAuthentication.
func IsAuthenticationFailed(err error) bool {
	return errors.Is(err, ErrAuthentication)
}

// IsMalformedCiphertext returns true if the error is or wraps ErrMalformedCiphertext.
func IsMalformedCiphertext(err error) bool {
	return errors.Is(err, ErrMalformedCiphertext)
}

// IsNoKeys returns true if the error is or wraps ErrNoKeys.
func IsNoKeys(err error) bool {
	return errors.Is(err, ErrNoKeys)
}

// IsProviderDestroyed returns true if the error is or wraps ErrProviderDestroyed.
func IsProviderDestroyed(err error) bool {
	return errors.Is(err, ErrProviderDestroyed)
}
