package crypto

import (
	"bytes"
	"encoding/hex"
	"testing"
)

// Historical fixtures. Both decrypt to "test" under their recorded keys;
// neither format is produced by Encrypt anymore.
const (
	// legacyKeyHex/legacyDataHex: envelope written by the defective
	// oversized-IV implementation, marker byte 0x00, 32-byte IV field.
	legacyKeyHex  = "e6b53390b88f272d3d65867ac390ffb82af5d9afb8ad81ca646cedf409e89c2a0d16d2002fd8864029c19b8dab6ff745bcf8ae40984ff0d85bd0e19af5770372"
	legacyDataHex = "006f150aef9ad63286819c425325faf7db1a9a39d2f83be5c1d86c16de483fcdd7449dcdc21e6aab6286a475409f1be27d467451d91fd7a4c1e8944e0ae9b2a0cc4432e929"

	// unversionedKeyHex/unversionedDataHex: marker-less envelope whose IV
	// field starts with the literal ASCII "v2" tag some early writers used.
	// Its first byte is not a legacy marker, so decryption reaches it only
	// through the fallback path.
	unversionedKeyHex  = "feaf60a9557343d572006d6d7f193996265dd67849282a6cb2e09bb3265c11e5cc9d92e8172913f1cbf23db6135576c6911c405d8a9162077cb3a2b88b4a88ee"
	unversionedDataHex = "763231754df717d7a41637a057f83c3fde5fc040f60cd2312051bc31b9a9b887d178ff861eb5a680a630af5e76c6ba5d6972d99bfe37e0d436c03fb0a66efe5dcfac7120"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex fixture: %v", err)
	}
	return b
}

func mustKey(t *testing.T, keyHex string) Key {
	t.Helper()
	key, err := NewKey(mustHex(t, keyHex))
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	return key
}

func TestRoundTrip(t *testing.T) {
	key := GenerateKey()

	for _, plaintext := range [][]byte{
		[]byte("test"),
		[]byte("a somewhat longer plaintext that spans multiple AES blocks ..."),
		{0x00, 0xff, 0x00, 0xff},
		bytes.Repeat([]byte{0xAB}, 1<<16),
	} {
		data, err := Encrypt(key, plaintext)
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		if data[0] != markerCurrent {
			t.Errorf("marker: got %#x, want %#x", data[0], markerCurrent)
		}
		if len(data) != markerSize+ivSize+len(plaintext)+tagSize {
			t.Errorf("envelope length: got %d, want %d",
				len(data), markerSize+ivSize+len(plaintext)+tagSize)
		}

		got, err := Decrypt(key, data)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Errorf("round trip mismatch: got %q, want %q", got, plaintext)
		}
	}
}

func TestRoundTripEmptyPlaintext(t *testing.T) {
	key := GenerateKey()

	data, err := Encrypt(key, nil)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if len(data) != markerSize+ivSize+tagSize {
		t.Errorf("envelope length: got %d, want %d", len(data), markerSize+ivSize+tagSize)
	}

	got, err := Decrypt(key, data)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d bytes, want empty plaintext", len(got))
	}
}

func TestEncryptNondeterministic(t *testing.T) {
	key := GenerateKey()
	plaintext := []byte("same input")

	data1, err := Encrypt(key, plaintext)
	if err != nil {
		t.Fatal(err)
	}
	data2, err := Encrypt(key, plaintext)
	if err != nil {
		t.Fatal(err)
	}

	// Fresh random IVs mean the envelopes must differ.
	if bytes.Equal(data1, data2) {
		t.Error("two encryptions of the same input produced identical envelopes")
	}

	for _, data := range [][]byte{data1, data2} {
		got, err := Decrypt(key, data)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Errorf("got %q, want %q", got, plaintext)
		}
	}
}

func TestDecryptLegacyEnvelope(t *testing.T) {
	key := mustKey(t, legacyKeyHex)
	data := mustHex(t, legacyDataHex)

	got, err := Decrypt(key, data)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(got) != "test" {
		t.Errorf("got %q, want %q", got, "test")
	}
}

func TestDecryptUnversionedEnvelopeViaFallback(t *testing.T) {
	key := mustKey(t, unversionedKeyHex)
	data := mustHex(t, unversionedDataHex)

	// Not a legacy marker, so this is first parsed as a current envelope;
	// only the fallback reading authenticates.
	if data[0] == markerLegacy {
		t.Fatal("fixture unexpectedly starts with the legacy marker")
	}

	got, err := Decrypt(key, data)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(got) != "test" {
		t.Errorf("got %q, want %q", got, "test")
	}
}

func TestDecryptWrongKey(t *testing.T) {
	data, err := Encrypt(GenerateKey(), []byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	_, err = Decrypt(GenerateKey(), data)
	if !IsAuthenticationFailed(err) {
		t.Errorf("expected ErrAuthentication, got %v", err)
	}
}

func TestDecryptTampered(t *testing.T) {
	for name, env := range map[string]struct {
		keyHex  string
		dataHex string
	}{
		"legacy":      {legacyKeyHex, legacyDataHex},
		"unversioned": {unversionedKeyHex, unversionedDataHex},
	} {
		t.Run(name, func(t *testing.T) {
			key := mustKey(t, env.keyHex)
			data := mustHex(t, env.dataHex)

			// Flip every bit of every byte after the leading one. (The
			// historical formats never authenticated their marker byte;
			// marker corruption is covered separately.)
			for i := 1; i < len(data); i++ {
				for bit := 0; bit < 8; bit++ {
					tampered := append([]byte(nil), data...)
					tampered[i] ^= 1 << bit

					if _, err := Decrypt(key, tampered); !IsAuthenticationFailed(err) {
						t.Fatalf("byte %d bit %d: expected ErrAuthentication, got %v", i, bit, err)
					}
				}
			}
		})
	}
}

func TestDecryptTamperedCurrentEnvelope(t *testing.T) {
	key := GenerateKey()
	data, err := Encrypt(key, []byte("test"))
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i < len(data); i++ {
		for bit := 0; bit < 8; bit++ {
			tampered := append([]byte(nil), data...)
			tampered[i] ^= 1 << bit

			if _, err := Decrypt(key, tampered); !IsAuthenticationFailed(err) {
				t.Fatalf("byte %d bit %d: expected ErrAuthentication, got %v", i, bit, err)
			}
		}
	}
}

func TestDecryptCorruptedMarker(t *testing.T) {
	key := GenerateKey()
	plaintext := []byte("test")
	data, err := Encrypt(key, plaintext)
	if err != nil {
		t.Fatal(err)
	}

	// Rewriting the current marker as the legacy one changes the IV field
	// width; the result must be an error, never silently wrong plaintext.
	data[0] = markerLegacy
	got, err := Decrypt(key, data)
	if err == nil {
		t.Fatalf("expected an error, got plaintext %q", got)
	}
}

func TestDecryptKeyRotation(t *testing.T) {
	retired := GenerateKey()
	current := GenerateKey()

	data, err := Encrypt(retired, []byte("written before rotation"))
	if err != nil {
		t.Fatal(err)
	}

	got, err := DecryptAny(KeyRing{current, retired}, data)
	if err != nil {
		t.Fatalf("DecryptAny with rotated ring: %v", err)
	}
	if string(got) != "written before rotation" {
		t.Errorf("got %q", got)
	}

	// Dropping the retired key from the ring makes the data unreadable.
	_, err = DecryptAny(KeyRing{current}, data)
	if !IsAuthenticationFailed(err) {
		t.Errorf("expected ErrAuthentication, got %v", err)
	}
}

func TestDecryptRotationReachesFallback(t *testing.T) {
	// The fallback interpretation must be tried for every ring key, not
	// just the first.
	key := mustKey(t, unversionedKeyHex)
	data := mustHex(t, unversionedDataHex)

	got, err := DecryptAny(KeyRing{GenerateKey(), key}, data)
	if err != nil {
		t.Fatalf("DecryptAny: %v", err)
	}
	if string(got) != "test" {
		t.Errorf("got %q, want %q", got, "test")
	}
}

func TestDecryptMalformed(t *testing.T) {
	key := GenerateKey()

	for name, data := range map[string][]byte{
		"empty":             {},
		"marker only":       {markerCurrent},
		"short current":     append([]byte{markerCurrent}, make([]byte, 40)...),
		"short legacy":      append([]byte{markerLegacy}, make([]byte, 60)...),
		"legacy iv only":    append([]byte{markerLegacy}, make([]byte, legacyIVSize)...),
		"current sans byte": append([]byte{markerCurrent}, make([]byte, ivSize+tagSize-1)...),
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Decrypt(key, data); !IsMalformedCiphertext(err) {
				t.Errorf("expected ErrMalformedCiphertext, got %v", err)
			}
		})
	}
}

func TestDecryptShortFallbackCandidate(t *testing.T) {
	// 49 bytes parse as a current envelope but are too short for the
	// 64-byte unversioned minimum: the fallback is skipped, and the
	// terminal error is authentication, not malformed input.
	data := make([]byte, markerSize+ivSize+tagSize)
	data[0] = markerCurrent

	_, err := Decrypt(GenerateKey(), data)
	if !IsAuthenticationFailed(err) {
		t.Errorf("expected ErrAuthentication, got %v", err)
	}
}

func TestDecryptEmptyRing(t *testing.T) {
	data, err := Encrypt(GenerateKey(), []byte("x"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := DecryptAny(nil, data); !IsNoKeys(err) {
		t.Errorf("expected ErrNoKeys, got %v", err)
	}
}

func TestEncryptDecryptInvalidKey(t *testing.T) {
	var zero Key

	if _, err := Encrypt(zero, []byte("x")); !IsInvalidKeySize(err) {
		t.Errorf("Encrypt: expected ErrInvalidKeySize, got %v", err)
	}

	data, err := Encrypt(GenerateKey(), []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decrypt(zero, data); !IsInvalidKeySize(err) {
		t.Errorf("Decrypt: expected ErrInvalidKeySize, got %v", err)
	}
}

func FuzzDecrypt(f *testing.F) {
	key := mustHexF(f, unversionedKeyHex)
	f.Add(mustHexF(f, unversionedDataHex))
	f.Add(mustHexF(f, legacyDataHex))
	f.Add([]byte{markerCurrent})
	f.Add([]byte{})

	ringKey, err := NewKey(key)
	if err != nil {
		f.Fatal(err)
	}
	seeded, err := Encrypt(ringKey, []byte("fuzz seed"))
	if err != nil {
		f.Fatal(err)
	}
	f.Add(seeded)

	f.Fuzz(func(t *testing.T, data []byte) {
		// Must never panic; any outcome other than success must be one of
		// the defined error kinds.
		_, err := Decrypt(ringKey, data)
		if err != nil && !IsAuthenticationFailed(err) && !IsMalformedCiphertext(err) {
			t.Errorf("unexpected error kind: %v", err)
		}
	})
}

func FuzzRoundTrip(f *testing.F) {
	f.Add([]byte("test"))
	f.Add([]byte{})
	f.Add(bytes.Repeat([]byte{0x00}, 100))

	key := GenerateKey()
	f.Fuzz(func(t *testing.T, plaintext []byte) {
		data, err := Encrypt(key, plaintext)
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		got, err := Decrypt(key, data)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Errorf("round trip mismatch: got %q, want %q", got, plaintext)
		}
	})
}

func mustHexF(f *testing.F, s string) []byte {
	f.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		f.Fatalf("bad hex fixture: %v", err)
	}
	return b
}
