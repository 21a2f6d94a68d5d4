package archive

import (
	"bytes"
	"encoding"
	"encoding/binary"
	"fmt"
	"reflect"
)

// Kind tags how a record body was encoded.
type Kind uint8

const (
	KindFixed  Kind = 1
	KindString Kind = 2
	KindBytes  Kind = 3
	KindStream Kind = 4
	KindBinary Kind = 5
	KindCBOR   Kind = 6
)

func (k Kind) String() string {
	switch k {
	case KindFixed:
		return "fixed"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindStream:
		return "stream"
	case KindBinary:
		return "binary"
	case KindCBOR:
		return "cbor"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// RecordHeaderLen is kind(1) + version(4) + body length(4).
const RecordHeaderLen = 1 + 4 + 4

// Saver is implemented by payload types that stream themselves.
type Saver interface {
	SaveArchive(w *Writer, version uint32) error
}

// Loader is the extraction half of Saver. It assigns into an already
// constructed value.
type Loader interface {
	LoadArchive(r *Reader, version uint32) error
}

// KindOf reports the record kind Save would use for v.
func KindOf(v any) (Kind, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return 0, ErrNotPointer
	}
	switch v.(type) {
	case Saver:
		return KindStream, nil
	case *string:
		return KindString, nil
	case *[]byte:
		return KindBytes, nil
	case *int, *uint:
		return KindFixed, nil
	case encoding.BinaryMarshaler:
		return KindBinary, nil
	}
	if isPlainFixed(rv.Type().Elem()) {
		return KindFixed, nil
	}
	return KindCBOR, nil
}

// loadKindOf mirrors KindOf for the decoding side so the interface checks
// line up with the unmarshal half of each pair.
func loadKindOf(v any) (Kind, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return 0, ErrNotPointer
	}
	switch v.(type) {
	case Loader:
		return KindStream, nil
	case *string:
		return KindString, nil
	case *[]byte:
		return KindBytes, nil
	case *int, *uint:
		return KindFixed, nil
	case encoding.BinaryUnmarshaler:
		return KindBinary, nil
	}
	if isPlainFixed(rv.Type().Elem()) {
		return KindFixed, nil
	}
	return KindCBOR, nil
}

func encodeBody(v any, kind Kind, version uint32, order binary.ByteOrder) ([]byte, error) {
	switch kind {
	case KindStream:
		var buf bytes.Buffer
		sub := newWriter(&buf, order)
		if err := v.(Saver).SaveArchive(sub, version); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case KindString:
		return []byte(*v.(*string)), nil
	case KindBytes:
		return *v.(*[]byte), nil
	case KindBinary:
		return v.(encoding.BinaryMarshaler).MarshalBinary()
	case KindCBOR:
		return cborEncMode.Marshal(reflect.ValueOf(v).Elem().Interface())
	}

	switch x := v.(type) {
	case *int:
		wide := int64(*x)
		return binary.Append(nil, order, &wide)
	case *uint:
		wide := uint64(*x)
		return binary.Append(nil, order, &wide)
	}
	return binary.Append(nil, order, v)
}

func decodeBody(v any, kind Kind, version uint32, body []byte, order binary.ByteOrder, limits Limits) error {
	switch kind {
	case KindStream:
		src := bytes.NewReader(body)
		sub := newReader(src, order, limits)
		if err := v.(Loader).LoadArchive(sub, version); err != nil {
			return deserializeError(err)
		}
		if src.Len() != 0 {
			return fmt.Errorf("%w: %d trailing bytes after stream record", ErrMalformed, src.Len())
		}
		return nil
	case KindString:
		*v.(*string) = string(body)
		return nil
	case KindBytes:
		out := make([]byte, len(body))
		copy(out, body)
		*v.(*[]byte) = out
		return nil
	case KindBinary:
		if err := v.(encoding.BinaryUnmarshaler).UnmarshalBinary(body); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return nil
	case KindCBOR:
		if err := cborDecMode.Unmarshal(body, v); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return nil
	}

	switch x := v.(type) {
	case *int:
		var wide int64
		if err := decodeFixed(body, order, &wide); err != nil {
			return err
		}
		*x = int(wide)
		return nil
	case *uint:
		var wide uint64
		if err := decodeFixed(body, order, &wide); err != nil {
			return err
		}
		*x = uint(wide)
		return nil
	}
	return decodeFixed(body, order, v)
}

func decodeFixed(body []byte, order binary.ByteOrder, v any) error {
	if size := binary.Size(v); size != len(body) {
		return fmt.Errorf("%w: fixed body is %d bytes, want %d", ErrMalformed, len(body), size)
	}
	if _, err := binary.Decode(body, order, v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return nil
}

// isPlainFixed reports whether t has a fixed encoded size that
// encoding/binary can both read and write: numbers, bools, and arrays or
// structs built only from those with exported fields.
func isPlainFixed(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return isPlainFixed(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() || !isPlainFixed(f.Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
