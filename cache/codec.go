package cache

import (
	"errors"
	"fmt"
)

// CompressionType identifies the codec applied to both snapshot
// sections. The byte value is stored in the file header.
type CompressionType uint8

const (
	CompressionNone CompressionType = 0x1
	CompressionZstd CompressionType = 0x2
	CompressionS2   CompressionType = 0x3
	CompressionLZ4  CompressionType = 0x4
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionS2:
		return "s2"
	case CompressionLZ4:
		return "lz4"
	default:
		return "unknown"
	}
}

var ErrUnknownCompression = errors.New("unknown compression type")

// Codec compresses and decompresses one snapshot section. All
// implementations are safe for concurrent use.
type Codec interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

var builtinCodecs = map[CompressionType]Codec{
	CompressionNone: NoOpCodec{},
	CompressionZstd: ZstdCodec{},
	CompressionS2:   S2Codec{},
	CompressionLZ4:  LZ4Codec{},
}

// GetCodec returns the codec registered for the compression type.
func GetCodec(c CompressionType) (Codec, error) {
	codec, ok := builtinCodecs[c]
	if !ok {
		return nil, fmt.Errorf("compression 0x%x, %w", uint8(c), ErrUnknownCompression)
	}
	return codec, nil
}
