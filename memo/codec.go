package memo

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Codec serializes cached values to and from the bytes persisted in artifact
// files. Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error

	// Extension is the artifact filename suffix for this encoding.
	Extension() string
}

// GobCodec encodes values with encoding/gob. It is the default payload
// encoding: compact, fast, and able to round-trip arbitrary Go values as
// long as reader and writer agree on the type.
type GobCodec struct{}

// Marshal encodes v into a gob byte stream.
func (GobCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a gob byte stream into v, which must be a pointer.
func (GobCodec) Unmarshal(data []byte, v any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return nil
}

// Extension returns "gob".
func (GobCodec) Extension() string { return "gob" }

// JSONCodec encodes values as JSON, for callers who want artifacts readable
// by other tools at the cost of JSON's type fidelity.
type JSONCodec struct{}

// Marshal encodes v as JSON.
func (JSONCodec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return data, nil
}

// Unmarshal decodes JSON into v, which must be a pointer.
func (JSONCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return nil
}

// Extension returns "json".
func (JSONCodec) Extension() string { return "json" }

// ZstdCodec wraps another codec with zstd compression.
type ZstdCodec struct {
	inner   Codec
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewZstdCodec wraps inner with zstd at the given level (1-22).
func NewZstdCodec(inner Codec, level int) (*ZstdCodec, error) {
	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &ZstdCodec{inner: inner, encoder: encoder, decoder: decoder}, nil
}

// Marshal encodes v with the inner codec and compresses the result.
func (c *ZstdCodec) Marshal(v any) ([]byte, error) {
	data, err := c.inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	return c.encoder.EncodeAll(data, nil), nil
}

// Unmarshal decompresses data and decodes it with the inner codec.
func (c *ZstdCodec) Unmarshal(data []byte, v any) error {
	decompressed, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return c.inner.Unmarshal(decompressed, v)
}

// Extension returns the inner extension with a ".zst" suffix.
func (c *ZstdCodec) Extension() string { return c.inner.Extension() + ".zst" }

// codecFromConfig resolves the configured codec, applying compression.
func codecFromConfig(cfg Config) (Codec, error) {
	codec := cfg.Codec
	if codec == nil {
		codec = GobCodec{}
	}
	if !cfg.EnableCompression {
		return codec, nil
	}
	return NewZstdCodec(codec, cfg.CompressionLevel)
}
