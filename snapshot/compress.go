package snapshot

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the segment compression algorithm.
type Compression uint8

const (
	// None stores segments uncompressed.
	None Compression = iota
	// LZ4 trades ratio for speed; a good fit for local stores.
	LZ4
	// Zstd compresses harder, which pays for itself on remote stores.
	Zstd
)

// String returns the canonical compression name recorded in manifests.
func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression parses a compression name as recorded in a manifest.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", s)
	}
}

// Segment framing: an 8-byte header of [uncompressed size uint32]
// [compressed size uint32], little endian, then the body. A compressed size
// of zero means the body is stored raw, which is also the fallback when
// compression does not pay (ratio above 0.9).
const headerSize = 8

var (
	zstdEncoders = sync.Pool{New: func() any {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		return enc
	}}
	zstdDecoders = sync.Pool{New: func() any {
		dec, _ := zstd.NewReader(nil)
		return dec
	}}
)

// compress frames data with the segment header, compressing the body when
// the algorithm helps.
func compress(data []byte, c Compression) ([]byte, error) {
	var body []byte
	var err error

	switch c {
	case None:
	case LZ4:
		body, err = compressLZ4(data)
	case Zstd:
		body, err = compressZstd(data)
	default:
		return nil, fmt.Errorf("unknown compression %q", c)
	}
	if err != nil {
		return nil, err
	}

	if len(body) == 0 || len(body) > len(data)*9/10 {
		return frame(data, 0), nil
	}
	return frame(body, uint32(len(data))), nil
}

// frame prepends the segment header. uncompressed == 0 marks a raw body.
func frame(body []byte, uncompressed uint32) []byte {
	out := make([]byte, headerSize+len(body))
	if uncompressed == 0 {
		binary.LittleEndian.PutUint32(out[0:], uint32(len(body)))
		binary.LittleEndian.PutUint32(out[4:], 0)
	} else {
		binary.LittleEndian.PutUint32(out[0:], uncompressed)
		binary.LittleEndian.PutUint32(out[4:], uint32(len(body)))
	}
	copy(out[headerSize:], body)
	return out
}

func compressLZ4(data []byte) ([]byte, error) {
	buf := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, buf, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// Incompressible.
		return nil, nil
	}
	return buf[:n], nil
}

func compressZstd(data []byte) ([]byte, error) {
	enc := zstdEncoders.Get().(*zstd.Encoder)
	defer zstdEncoders.Put(enc)
	return enc.EncodeAll(data, nil), nil
}

// decompress reverses compress. The algorithm comes from the manifest, the
// sizes from the frame header.
func decompress(data []byte, c Compression) ([]byte, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("segment of %d bytes is too small for its header", len(data))
	}
	uncompressedSize := binary.LittleEndian.Uint32(data[0:])
	compressedSize := binary.LittleEndian.Uint32(data[4:])
	body := data[headerSize:]

	if compressedSize == 0 {
		if uint32(len(body)) != uncompressedSize {
			return nil, fmt.Errorf("raw segment body is %d bytes, header says %d", len(body), uncompressedSize)
		}
		return body, nil
	}
	if uint32(len(body)) != compressedSize {
		return nil, fmt.Errorf("segment body is %d bytes, header says %d", len(body), compressedSize)
	}

	switch c {
	case LZ4:
		out := make([]byte, uncompressedSize)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, err
		}
		if uint32(n) != uncompressedSize {
			return nil, fmt.Errorf("segment inflated to %d bytes, header says %d", n, uncompressedSize)
		}
		return out, nil
	case Zstd:
		dec := zstdDecoders.Get().(*zstd.Decoder)
		defer zstdDecoders.Put(dec)
		out, err := dec.DecodeAll(body, make([]byte, 0, uncompressedSize))
		if err != nil {
			return nil, err
		}
		if uint32(len(out)) != uncompressedSize {
			return nil, fmt.Errorf("segment inflated to %d bytes, header says %d", len(out), uncompressedSize)
		}
		return out, nil
	case None:
		return nil, fmt.Errorf("segment is compressed but the manifest says %q", None)
	default:
		return nil, fmt.Errorf("unknown compression %q", c)
	}
}
