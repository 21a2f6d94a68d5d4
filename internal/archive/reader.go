package archive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// IArchive is the input half of the archive contract.
type IArchive interface {
	// ReadRaw fills p exactly.
	ReadRaw(p []byte) error
	// Load reads one typed record into the value behind v. version is the
	// highest schema version the caller understands.
	Load(v any, version uint32) error
	Mode() Mode
}

// Limits bounds the memory a single record may claim.
type Limits struct {
	MaxRecordBytes uint32
}

func DefaultLimits() Limits {
	return Limits{MaxRecordBytes: 8 * 1024 * 1024}
}

// Reader extracts archive data from an io.Reader.
type Reader struct {
	r       io.Reader
	order   binary.ByteOrder
	limits  Limits
	read    int64
	scratch [8]byte
}

var _ IArchive = (*Reader)(nil)

// NewReader returns a Reader in the active archive mode with default limits.
func NewReader(r io.Reader) *Reader {
	return newReader(r, activeOrder, DefaultLimits())
}

// NewReaderLimits is NewReader with caller supplied limits.
func NewReaderLimits(r io.Reader, limits Limits) *Reader {
	return newReader(r, activeOrder, limits)
}

func newReader(r io.Reader, order binary.ByteOrder, limits Limits) *Reader {
	if limits.MaxRecordBytes == 0 {
		limits = DefaultLimits()
	}
	return &Reader{r: r, order: order, limits: limits}
}

func (r *Reader) Mode() Mode {
	return activeMode
}

// Consumed returns the number of bytes extracted so far.
func (r *Reader) Consumed() int64 {
	return r.read
}

func (r *Reader) ReadRaw(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	n, err := io.ReadFull(r.r, p)
	r.read += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrTruncated
		}
		return deserializeError(err)
	}
	return nil
}

// Load reads [kind][version][len][body] and assigns it into v.
func (r *Reader) Load(v any, version uint32) error {
	want, err := loadKindOf(v)
	if err != nil {
		return err
	}
	var head [RecordHeaderLen]byte
	if err := r.ReadRaw(head[:]); err != nil {
		return err
	}
	kind := Kind(head[0])
	recVersion := r.order.Uint32(head[1:5])
	length := r.order.Uint32(head[5:9])

	if kind != want {
		return &RecordError{Kind: kind, Version: recVersion,
			Err: fmt.Errorf("%w: got %s want %s", ErrKindMismatch, kind, want)}
	}
	if recVersion > version {
		return &RecordError{Kind: kind, Version: recVersion,
			Err: fmt.Errorf("%w: record %d newer than supported %d", ErrUnsupportedVersion, recVersion, version)}
	}
	if length > r.limits.MaxRecordBytes {
		return &RecordError{Kind: kind, Version: recVersion,
			Err: fmt.Errorf("%w: %w (%d bytes)", ErrDeserialize, ErrRecordTooLarge, length)}
	}
	body := make([]byte, length)
	if err := r.ReadRaw(body); err != nil {
		return err
	}
	if err := decodeBody(v, kind, recVersion, body, r.order, r.limits); err != nil {
		return &RecordError{Kind: kind, Version: recVersion, Err: err}
	}
	return nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	if err := r.ReadRaw(r.scratch[:1]); err != nil {
		return 0, err
	}
	return r.scratch[0], nil
}

func (r *Reader) ReadUint16() (uint16, error) {
	if err := r.ReadRaw(r.scratch[:2]); err != nil {
		return 0, err
	}
	return r.order.Uint16(r.scratch[:2]), nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.ReadRaw(r.scratch[:4]); err != nil {
		return 0, err
	}
	return r.order.Uint32(r.scratch[:4]), nil
}

func (r *Reader) ReadUint64() (uint64, error) {
	if err := r.ReadRaw(r.scratch[:8]); err != nil {
		return 0, err
	}
	return r.order.Uint64(r.scratch[:8]), nil
}

func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadUint8()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: invalid bool value %d", ErrMalformed, b)
	}
}

// ReadBytes reads a u32 length prefix followed by that many bytes.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if n > r.limits.MaxRecordBytes {
		return nil, fmt.Errorf("%w: %w (%d bytes)", ErrDeserialize, ErrRecordTooLarge, n)
	}
	buf := make([]byte, n)
	if err := r.ReadRaw(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBytes()
	return string(b), err
}
