package crypto

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// EncryptedField transparently encrypts a text field before it is persisted
// and decrypts it when it is read back. Text is stored as the ciphertext of
// its UTF-8 bytes; an empty value stores nothing at all, and nothing stored
// reads back as the empty value, without touching the cipher either way.
//
// The provider's first key encrypts new writes; every key it offers is
// tried when reading, so retired keys keep old rows readable during key
// rotation. If no key authenticates a stored blob, Open fails with
// ErrAuthentication.
//
// EncryptedField is safe for concurrent use if its KeyProvider is.
type EncryptedField struct {
	name     string
	provider KeyProvider
}

// NewEncryptedField creates a field adapter. The name identifies the field
// in telemetry (e.g. "user.api_key"). Returns an error if provider is nil.
func NewEncryptedField(name string, provider KeyProvider) (*EncryptedField, error) {
	if provider == nil {
		return nil, fmt.Errorf("crypto: NewEncryptedField provider is nil")
	}
	return &EncryptedField{name: name, provider: provider}, nil
}

// Name returns the field name used in telemetry.
func (f *EncryptedField) Name() string {
	return f.name
}

// Seal encrypts value for storage. The empty value yields nil: "no value"
// is persisted as the absence of ciphertext.
func (f *EncryptedField) Seal(ctx context.Context, value string) (data []byte, err error) {
	if value == "" {
		return nil, nil
	}

	ctx, span := tracer.Start(ctx, "EncryptedField.Seal",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("field", f.name)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	key, err := f.provider.CurrentKey()
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to get current key: %w", err)
	}

	data, err = Encrypt(key, []byte(value))
	if err != nil {
		return nil, err
	}
	encryptCount.Add(ctx, 1, metric.WithAttributes(attribute.String("field", f.name)))
	return data, nil
}

// Open decrypts stored data back to the field value. Empty input yields the
// empty value. An ErrAuthentication from the cipher propagates unchanged.
func (f *EncryptedField) Open(ctx context.Context, data []byte) (value string, err error) {
	if len(data) == 0 {
		return "", nil
	}

	ctx, span := tracer.Start(ctx, "EncryptedField.Open",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("field", f.name)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	ring, err := f.provider.DecryptionKeys()
	if err != nil {
		return "", fmt.Errorf("crypto: failed to get decryption keys: %w", err)
	}

	plaintext, envFormat, err := decryptAny(ring, data)
	if err != nil {
		decryptFails.Add(ctx, 1, metric.WithAttributes(attribute.String("field", f.name)))
		return "", err
	}
	decryptCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("field", f.name),
		attribute.String("format", envFormat.String())))

	return string(plaintext), nil
}
