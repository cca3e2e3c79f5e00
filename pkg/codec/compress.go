package codec

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Compression selects how the label file is stored
type Compression int

const (
	// CompressionNone writes the raw label bytes as-is
	CompressionNone Compression = iota
	// CompressionZstd writes a zstd frame to <name>.raw.zst
	CompressionZstd
)

const (
	infoExt = ".txt"
	dataExt = ".raw"
	zstdExt = ".zst"
)

// ParseCompression maps a configuration string onto a Compression.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "none", "raw":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return CompressionNone, fmt.Errorf("unknown compression %q (want none or zstd)", s)
	}
}

func (c Compression) String() string {
	if c == CompressionZstd {
		return "zstd"
	}
	return "none"
}

// Label volumes are dominated by long runs of a few values, so the
// default level already compresses them well.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("codec: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("codec: zstd decoder initialization failed: " + err.Error())
	}
}

func compressZstd(data []byte) []byte {
	return zstdEncoder.EncodeAll(data, nil)
}

func decompressZstd(compressed []byte) ([]byte, error) {
	result, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return result, nil
}
