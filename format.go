// Package crypto implements versioned authenticated encryption for secret
// fields persisted at rest. New data is always written in the current
// format; data written by two older, structurally different formats keeps
// decrypting forever, with the format recovered from the ciphertext itself.
//
// Current format, the only one Encrypt produces:
//
//	[0x01][IV 16 bytes][encrypted data][HMAC-SHA256 32 bytes]
//
// Legacy oversized-IV format, marker byte 0x00:
//
//	[0x00][IV field 32 bytes][encrypted data][HMAC-SHA256 32 bytes]
//
// The 32-byte IV field comes from a defective early writer that drew
// double-sized IVs; its cipher library silently truncated them before use.
// The full field is stored and authenticated, but only its trailing 16
// bytes ever reach the keystream.
//
// Unversioned format, no marker:
//
//	[IV field 32 bytes][encrypted data][HMAC-SHA256 32 bytes]
//
// The oldest blobs carry no marker at all; some writers of that era filled
// the leading bytes of the IV field with a literal "v2" tag. The first byte
// of such an envelope is indistinguishable from a (future) current-format
// marker, so this layout is never selected by sniffing. It is only tried
// after every key has failed the current-format interpretation, and the
// HMAC check is what rejects wrong interpretations.
//
// In all three formats the tag occupies the trailing 32 bytes and covers
// the stored IV field concatenated with the encrypted data. CTR mode makes
// IV reuse catastrophic: the same key/IV pair must never encrypt two
// different messages, which Encrypt guarantees by drawing a fresh random IV
// per call.
package crypto

import "fmt"

// Wire format constants.
const (
	// aesKeySize is the AES-256 key size in bytes.
	aesKeySize = 32

	// hmacKeySize is the HMAC-SHA256 key size in bytes.
	hmacKeySize = 32

	// KeySize is the required size of a key blob: AES key followed by HMAC key.
	KeySize = aesKeySize + hmacKeySize

	// ivSize is the IV size for AES-CTR (one cipher block).
	ivSize = 16

	// legacyIVSize is the oversized IV field written by the defective
	// legacy implementation (two cipher blocks).
	legacyIVSize = 32

	// tagSize is the HMAC-SHA256 digest size.
	tagSize = 32

	// markerSize is the width of the leading format marker.
	markerSize = 1

	// markerLegacy marks the legacy oversized-IV format.
	markerLegacy = 0x00

	// markerCurrent marks the current format.
	markerCurrent = 0x01
)

// format discriminates the recognized envelope layouts. The set is closed:
// decryption is an exhaustive switch over these values plus the single
// fallback transition from formatCurrent to formatUnversioned.
type format byte

const (
	// formatCurrent is the present-day layout and the sole output of Encrypt.
	formatCurrent format = iota

	// formatLegacyIV is the marked legacy layout with the oversized IV field.
	formatLegacyIV

	// formatUnversioned is the marker-less layout of the oldest blobs,
	// reachable only through the fallback path.
	formatUnversioned
)

func (f format) String() string {
	switch f {
	case formatCurrent:
		return "current"
	case formatLegacyIV:
		return "legacy-iv"
	case formatUnversioned:
		return "unversioned"
	}
	return fmt.Sprintf("format(%d)", byte(f))
}

// envelope is a parsed ciphertext envelope. All fields alias the input
// buffer; parsing copies nothing.
type envelope struct {
	format format

	// ivField is the stored IV field exactly as written, marker excluded.
	// It is authenticated as stored, oversized or not.
	ivField []byte

	// cipher is the encrypted payload between the IV field and the tag.
	cipher []byte

	// tag is the trailing HMAC-SHA256 digest over ivField followed by cipher.
	tag []byte
}

// iv returns the effective CTR IV. Oversized IV fields are truncated to
// their trailing block, reproducing what the defective legacy writer's
// cipher library did.
func (e *envelope) iv() []byte {
	return e.ivField[len(e.ivField)-ivSize:]
}

// sniff classifies data by its leading byte. Only the legacy marker is
// distinctive; everything else is presumed current until authentication
// says otherwise.
func sniff(data []byte) format {
	if data[0] == markerLegacy {
		return formatLegacyIV
	}
	return formatCurrent
}

// parseEnvelope slices data into the given format's layout. It fails with
// ErrMalformedCiphertext if data cannot hold a complete envelope; no
// authentication happens here.
func parseEnvelope(data []byte, f format) (*envelope, error) {
	marker, field := markerSize, ivSize
	switch f {
	case formatLegacyIV:
		field = legacyIVSize
	case formatUnversioned:
		marker, field = 0, legacyIVSize
	}

	if len(data) < marker+field+tagSize {
		return nil, fmt.Errorf("%w: %d bytes is too short for a %s envelope",
			ErrMalformedCiphertext, len(data), f)
	}

	body := data[marker:]
	return &envelope{
		format:  f,
		ivField: body[:field],
		cipher:  body[field : len(body)-tagSize],
		tag:     body[len(body)-tagSize:],
	}, nil
}
