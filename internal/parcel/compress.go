package parcel

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies how a parcel body is compressed. Values are wire
// constants stored in the header flags.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionLZ4  Compression = 1
	CompressionZstd Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses the config spelling of a compression.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCompression, name)
	}
}

var errIncompressible = errors.New("parcel: body is incompressible")

// The zstd encoder is safe for concurrent use and expensive to build, so one
// is shared. Decoders are per call so each can be bounded by the parcel.
var zstdEncoder *zstd.Encoder

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("parcel: zstd encoder initialization failed: " + err.Error())
	}
}

// compressBody compresses data with c. When the result would not be smaller
// it returns data unchanged with CompressionNone.
func compressBody(data []byte, c Compression) ([]byte, Compression, error) {
	var (
		out []byte
		err error
	)
	switch c {
	case CompressionNone:
		return data, CompressionNone, nil
	case CompressionLZ4:
		out, err = compressLZ4(data)
	case CompressionZstd:
		out, err = compressZstd(data)
	default:
		return nil, 0, fmt.Errorf("%w: %d", ErrUnknownCompression, c)
	}
	if errors.Is(err, errIncompressible) {
		return data, CompressionNone, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return out, c, nil
}

// decompressBody inflates data to exactly rawLen bytes. maxBytes bounds the
// decoder's working memory; rawLen has already been checked against it.
func decompressBody(data []byte, c Compression, rawLen int, maxBytes uint32) ([]byte, error) {
	switch c {
	case CompressionNone:
		if len(data) != rawLen {
			return nil, fmt.Errorf("%w: body %d bytes, header says %d", ErrTruncated, len(data), rawLen)
		}
		return data, nil
	case CompressionLZ4:
		return decompressLZ4(data, rawLen)
	case CompressionZstd:
		return decompressZstd(data, rawLen, maxBytes)
	default:
		return nil, fmt.Errorf("%w: %w: %d", ErrCorruptBody, ErrUnknownCompression, c)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, dst, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return dst[:written], nil
}

func decompressLZ4(data []byte, rawLen int) ([]byte, error) {
	dst := make([]byte, rawLen)
	read, err := lz4.UncompressBlock(data, dst)
	if err != nil {
		return nil, fmt.Errorf("%w: lz4: %v", ErrCorruptBody, err)
	}
	if read != rawLen {
		return nil, fmt.Errorf("%w: lz4 produced %d bytes, header says %d", ErrCorruptBody, read, rawLen)
	}
	return dst, nil
}

func compressZstd(data []byte) ([]byte, error) {
	out := zstdEncoder.EncodeAll(data, nil)
	if len(out) >= len(data) {
		return nil, errIncompressible
	}
	return out, nil
}

// decompressZstd streams the body and stops one byte past rawLen, so a body
// that inflates beyond its header costs at most rawLen plus the window.
func decompressZstd(data []byte, rawLen int, maxBytes uint32) ([]byte, error) {
	window := uint64(maxBytes)
	if window < zstd.MinWindowSize {
		window = zstd.MinWindowSize
	}
	if window > zstd.MaxWindowSize {
		window = zstd.MaxWindowSize
	}
	dec, err := zstd.NewReader(bytes.NewReader(data),
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxWindow(window),
		zstd.WithDecoderMaxMemory(window),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %v", ErrCorruptBody, err)
	}
	defer dec.Close()

	out := make([]byte, rawLen)
	if _, err := io.ReadFull(dec, out); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: zstd produced fewer than %d bytes", ErrCorruptBody, rawLen)
		}
		return nil, fmt.Errorf("%w: zstd: %v", ErrCorruptBody, err)
	}
	var extra [1]byte
	n, err := dec.Read(extra[:])
	if n > 0 {
		return nil, fmt.Errorf("%w: zstd inflates past %d bytes", ErrCorruptBody, rawLen)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: zstd: %v", ErrCorruptBody, err)
	}
	return out, nil
}
