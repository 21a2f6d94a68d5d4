package archive

import (
	"encoding/binary"
	"io"
	"math"
)

// OArchive is the output half of the archive contract.
type OArchive interface {
	// WriteRaw appends p verbatim. The reader must know len(p).
	WriteRaw(p []byte) error
	// Save appends one typed record. v must be a non-nil pointer.
	Save(v any, version uint32) error
	Mode() Mode
}

// Writer appends archive data to an io.Writer.
type Writer struct {
	w       io.Writer
	order   binary.ByteOrder
	written int64
	scratch [8]byte
}

var _ OArchive = (*Writer)(nil)

// NewWriter returns a Writer in the active archive mode.
func NewWriter(w io.Writer) *Writer {
	return newWriter(w, activeOrder)
}

func newWriter(w io.Writer, order binary.ByteOrder) *Writer {
	return &Writer{w: w, order: order}
}

func (w *Writer) Mode() Mode {
	return activeMode
}

// Written returns the number of bytes appended so far.
func (w *Writer) Written() int64 {
	return w.written
}

func (w *Writer) WriteRaw(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	n, err := w.w.Write(p)
	w.written += int64(n)
	return err
}

// Save writes [kind][version][len][body] for the value behind v.
func (w *Writer) Save(v any, version uint32) error {
	kind, err := KindOf(v)
	if err != nil {
		return err
	}
	body, err := encodeBody(v, kind, version, w.order)
	if err != nil {
		return err
	}
	if uint64(len(body)) > math.MaxUint32 {
		return ErrRecordTooLarge
	}
	var head [RecordHeaderLen]byte
	head[0] = byte(kind)
	w.order.PutUint32(head[1:5], version)
	w.order.PutUint32(head[5:9], uint32(len(body)))
	if err := w.WriteRaw(head[:]); err != nil {
		return err
	}
	return w.WriteRaw(body)
}

func (w *Writer) WriteUint8(v uint8) error {
	w.scratch[0] = v
	return w.WriteRaw(w.scratch[:1])
}

func (w *Writer) WriteUint16(v uint16) error {
	w.order.PutUint16(w.scratch[:2], v)
	return w.WriteRaw(w.scratch[:2])
}

func (w *Writer) WriteUint32(v uint32) error {
	w.order.PutUint32(w.scratch[:4], v)
	return w.WriteRaw(w.scratch[:4])
}

func (w *Writer) WriteUint64(v uint64) error {
	w.order.PutUint64(w.scratch[:8], v)
	return w.WriteRaw(w.scratch[:8])
}

func (w *Writer) WriteInt64(v int64) error {
	return w.WriteUint64(uint64(v))
}

func (w *Writer) WriteFloat64(v float64) error {
	return w.WriteUint64(math.Float64bits(v))
}

func (w *Writer) WriteBool(v bool) error {
	if v {
		return w.WriteUint8(1)
	}
	return w.WriteUint8(0)
}

// WriteBytes writes a u32 length prefix followed by p.
func (w *Writer) WriteBytes(p []byte) error {
	if uint64(len(p)) > math.MaxUint32 {
		return ErrRecordTooLarge
	}
	if err := w.WriteUint32(uint32(len(p))); err != nil {
		return err
	}
	return w.WriteRaw(p)
}

func (w *Writer) WriteString(s string) error {
	return w.WriteBytes([]byte(s))
}
