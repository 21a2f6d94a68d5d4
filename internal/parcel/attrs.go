package parcel

import (
	"encoding/binary"
	"fmt"
)

// AttrHeaderLen is id(2) + type(1) + length(4).
const AttrHeaderLen = 7

// Attribute value types.
const (
	AttrTypeU32    uint8 = 3
	AttrTypeU64    uint8 = 4
	AttrTypeString uint8 = 6
	AttrTypeBytes  uint8 = 7
)

// Well-known attribute ids. Unknown ids are preserved on decode.
const (
	AttrTask   uint16 = 1
	AttrOrigin uint16 = 2
	AttrTrace  uint16 = 3
	AttrSeq    uint16 = 4
)

// wellKnown pins the value type of each reserved id.
var wellKnown = map[uint16]uint8{
	AttrTask:   AttrTypeString,
	AttrOrigin: AttrTypeString,
	AttrTrace:  AttrTypeString,
	AttrSeq:    AttrTypeU64,
}

// Attr is one attribute carried beside the payload.
type Attr struct {
	ID    uint16
	Type  uint8
	Value []byte
}

func StringAttr(id uint16, v string) Attr {
	return Attr{ID: id, Type: AttrTypeString, Value: []byte(v)}
}

func Uint64Attr(id uint16, v uint64) Attr {
	return Attr{ID: id, Type: AttrTypeU64, Value: binary.BigEndian.AppendUint64(nil, v)}
}

func (a Attr) Text() (string, error) {
	if a.Type != AttrTypeString {
		return "", fmt.Errorf("%w: attr %d is type %d", ErrAttrTypeMismatch, a.ID, a.Type)
	}
	return string(a.Value), nil
}

func (a Attr) Uint64() (uint64, error) {
	if a.Type != AttrTypeU64 {
		return 0, fmt.Errorf("%w: attr %d is type %d", ErrAttrTypeMismatch, a.ID, a.Type)
	}
	if len(a.Value) != 8 {
		return 0, fmt.Errorf("%w: attr %d has %d bytes", ErrShortAttrValue, a.ID, len(a.Value))
	}
	return binary.BigEndian.Uint64(a.Value), nil
}

// check rejects values a receiver could not interpret: unknown types, fixed
// width types of the wrong length, and reserved ids carrying the wrong type.
func (a Attr) check() error {
	switch a.Type {
	case AttrTypeString, AttrTypeBytes:
	case AttrTypeU32:
		if len(a.Value) != 4 {
			return fmt.Errorf("%w: attr %d has %d bytes, u32 needs 4", ErrShortAttrValue, a.ID, len(a.Value))
		}
	case AttrTypeU64:
		if _, err := a.Uint64(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: attr %d type %d", ErrUnknownAttrType, a.ID, a.Type)
	}
	if want, ok := wellKnown[a.ID]; ok && a.Type != want {
		return fmt.Errorf("%w: attr %d is type %d, want %d", ErrAttrTypeMismatch, a.ID, a.Type, want)
	}
	return nil
}

// EncodeAttrs concatenates attrs in order, rejecting any a receiver would
// refuse.
func EncodeAttrs(attrs []Attr) ([]byte, error) {
	size := 0
	for _, a := range attrs {
		size += AttrHeaderLen + len(a.Value)
	}
	out := make([]byte, 0, size)
	for _, a := range attrs {
		if err := a.check(); err != nil {
			return nil, err
		}
		out = binary.BigEndian.AppendUint16(out, a.ID)
		out = append(out, a.Type)
		out = binary.BigEndian.AppendUint32(out, uint32(len(a.Value)))
		out = append(out, a.Value...)
	}
	return out, nil
}

// DecodeAttrs parses an attribute block. Values are copied out of payload.
func DecodeAttrs(payload []byte) ([]Attr, error) {
	var attrs []Attr
	for rest := payload; len(rest) > 0; {
		if len(rest) < AttrHeaderLen {
			return nil, ErrShortAttrHeader
		}
		a := Attr{ID: binary.BigEndian.Uint16(rest[0:2]), Type: rest[2]}
		n := binary.BigEndian.Uint32(rest[3:7])
		rest = rest[AttrHeaderLen:]
		if uint64(len(rest)) < uint64(n) {
			return nil, ErrShortAttrValue
		}
		a.Value = append([]byte(nil), rest[:n]...)
		rest = rest[n:]
		if err := a.check(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptBody, err)
		}
		attrs = append(attrs, a)
	}
	return attrs, nil
}

// GetAttr returns the first attribute with id.
func GetAttr(attrs []Attr, id uint16) (Attr, bool) {
	for _, a := range attrs {
		if a.ID == id {
			return a, true
		}
	}
	return Attr{}, false
}
