package storage

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

// magic prefixes every encoded value. Bump the trailing digit when the
// framing changes.
var magic = []byte("CLY1")

const digestSize = 32

var (
	encMode cbor.EncMode
	decMode cbor.DecMode

	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("storage: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("storage: CBOR decoder initialization failed: " + err.Error())
	}

	// EncodeAll and DecodeAll are safe for concurrent use.
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("storage: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("storage: zstd decoder initialization failed: " + err.Error())
	}
}

// Encode serializes v into the framed on-disk representation.
func Encode(v any) ([]byte, error) {
	raw, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding value: %w", err)
	}

	payload := zstdEncoder.EncodeAll(raw, nil)
	digest := blake3.Sum256(payload)

	out := make([]byte, 0, len(magic)+digestSize+len(payload))
	out = append(out, magic...)
	out = append(out, digest[:]...)
	out = append(out, payload...)
	return out, nil
}

// Decode verifies the frame produced by Encode and unmarshals it into v.
// Any framing, digest or decoding problem is reported as ErrCorrupt.
func Decode(data []byte, v any) error {
	if len(data) < len(magic)+digestSize || !bytes.Equal(data[:len(magic)], magic) {
		return fmt.Errorf("%w: bad header", ErrCorrupt)
	}

	digest := data[len(magic) : len(magic)+digestSize]
	payload := data[len(magic)+digestSize:]
	if sum := blake3.Sum256(payload); !bytes.Equal(sum[:], digest) {
		return fmt.Errorf("%w: digest mismatch", ErrCorrupt)
	}

	raw, err := zstdDecoder.DecodeAll(payload, nil)
	if err != nil {
		return fmt.Errorf("%w: decompressing: %v", ErrCorrupt, err)
	}

	if err := decMode.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: decoding: %v", ErrCorrupt, err)
	}
	return nil
}
