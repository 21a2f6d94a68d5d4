package parcel

import (
	"bytes"
	"errors"
	"fmt"
	"unsafe"

	"github.com/danmuck/taskwire/internal/archive"
	"github.com/danmuck/taskwire/internal/descriptor"
	"github.com/danmuck/taskwire/internal/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Parcel is one decoded payload: the resolved descriptor, its attributes and
// the uncompressed archive body.
type Parcel struct {
	ID          uuid.UUID
	Tag         descriptor.TypeTag
	Name        string
	Descriptor  descriptor.Descriptor
	Version     uint32
	Mode        archive.Mode
	Compression Compression
	Attrs       []Attr
	Body        []byte

	limits archive.Limits
}

// Options controls Pack.
type Options struct {
	// Version is the schema version the payload is saved at.
	Version     uint32
	Compression Compression
	Attrs       []Attr
}

// Limits bounds Decode and ReadFrame memory use.
type Limits struct {
	MaxPayloadBytes uint32
	Archive         archive.Limits
}

func DefaultLimits() Limits {
	return Limits{
		MaxPayloadBytes: 8 * 1024 * 1024,
		Archive:         archive.DefaultLimits(),
	}
}

// Pack saves the payload at mem through d and returns the encoded parcel.
// d must be registered in reg so the receiver can resolve it.
func Pack(reg *descriptor.Registry, d descriptor.Descriptor, mem unsafe.Pointer, size uintptr, opts Options) ([]byte, error) {
	p, err := build(reg, d, opts)
	if err != nil {
		observability.RecordParcel("pack", "", 0, classify(err))
		return nil, err
	}
	var body bytes.Buffer
	if err := d.Save(mem, size, archive.NewWriter(&body), opts.Version); err != nil {
		observability.RecordParcel("pack", p.Name, 0, classify(err))
		return nil, fmt.Errorf("parcel: save %s: %w", p.Name, err)
	}
	p.Body = body.Bytes()
	out, err := p.Encode()
	if err != nil {
		observability.RecordParcel("pack", p.Name, 0, classify(err))
		return nil, err
	}
	observability.RecordParcel("pack", p.Name, len(out), "")
	return out, nil
}

// PackSlot packs the live value held by s.
func PackSlot(reg *descriptor.Registry, s *descriptor.Slot, opts Options) ([]byte, error) {
	if !s.Live() {
		return nil, fmt.Errorf("parcel: pack %s: slot holds no value", s.Descriptor().Type())
	}
	return Pack(reg, s.Descriptor(), s.Ptr(), s.Size(), opts)
}

func build(reg *descriptor.Registry, d descriptor.Descriptor, opts Options) (*Parcel, error) {
	if d == nil {
		return nil, descriptor.ErrNilDescriptor
	}
	d = d.Instance()
	tag, err := reg.TagOf(d)
	if err != nil {
		return nil, err
	}
	entry, _ := reg.Entry(tag)
	return &Parcel{
		ID:          uuid.New(),
		Tag:         tag,
		Name:        entry.Name,
		Descriptor:  d,
		Version:     opts.Version,
		Mode:        archive.ActiveMode(),
		Compression: opts.Compression,
		Attrs:       opts.Attrs,
	}, nil
}

// Encode serializes p. Bodies that do not shrink are stored uncompressed.
func (p *Parcel) Encode() ([]byte, error) {
	body, comp, err := compressBody(p.Body, p.Compression)
	if err != nil {
		return nil, err
	}
	attrs, err := EncodeAttrs(p.Attrs)
	if err != nil {
		return nil, err
	}
	h := Header{
		Magic:       Magic,
		Format:      Format,
		Mode:        p.Mode,
		Compression: comp,
		Tag:         p.Tag,
		ID:          p.ID,
		Version:     p.Version,
		AttrLen:     uint32(len(attrs)),
		BodyLen:     uint32(len(body)),
		RawLen:      uint32(len(p.Body)),
	}
	out := make([]byte, 0, h.TotalLen())
	out = append(out, EncodeHeader(h)...)
	out = append(out, attrs...)
	out = append(out, body...)
	return out, nil
}

// Decode parses data and resolves its descriptor through reg. A tag reg does
// not know fails with an error matching descriptor.ErrMissingRegistration.
func Decode(data []byte, reg *descriptor.Registry, limits Limits) (*Parcel, error) {
	p, err := decode(data, reg, limits)
	if err != nil {
		name := ""
		if p != nil {
			name = p.Name
		}
		class := classify(err)
		observability.RecordParcel("unpack", name, 0, class)
		log.Warn().Str("component", "parcel").Str("type", name).Str("class", class).Err(err).Msg("parcel decode failed")
		return nil, err
	}
	observability.RecordParcel("unpack", p.Name, len(data), "")
	return p, nil
}

func decode(data []byte, reg *descriptor.Registry, limits Limits) (*Parcel, error) {
	if limits.MaxPayloadBytes == 0 {
		limits = DefaultLimits()
	}
	h, attrs, body, err := split(data, limits)
	if err != nil {
		return nil, err
	}
	if h.Mode != archive.ActiveMode() {
		return nil, fmt.Errorf("%w: parcel is %s, reader is %s", ErrModeMismatch, h.Mode, archive.ActiveMode())
	}
	d, err := reg.Lookup(h.Tag)
	if err != nil {
		observability.RecordRegistryMiss()
		return nil, err
	}
	entry, _ := reg.Entry(h.Tag)
	p := &Parcel{
		ID:          h.ID,
		Tag:         h.Tag,
		Name:        entry.Name,
		Descriptor:  d,
		Version:     h.Version,
		Mode:        h.Mode,
		Compression: h.Compression,
		limits:      limits.Archive,
	}
	if p.Attrs, err = DecodeAttrs(attrs); err != nil {
		return p, err
	}
	if p.Body, err = decompressBody(body, h.Compression, int(h.RawLen), limits.MaxPayloadBytes); err != nil {
		return p, err
	}
	return p, nil
}

// Inspect parses the header and attributes without resolving the payload
// type or checking the archive mode.
func Inspect(data []byte, limits Limits) (Header, []Attr, error) {
	h, attrs, _, err := split(data, limits)
	if err != nil {
		return Header{}, nil, err
	}
	decoded, err := DecodeAttrs(attrs)
	if err != nil {
		return Header{}, nil, err
	}
	return h, decoded, nil
}

func split(data []byte, limits Limits) (Header, []byte, []byte, error) {
	if limits.MaxPayloadBytes == 0 {
		limits = DefaultLimits()
	}
	h, err := DecodeHeader(data)
	if err != nil {
		return Header{}, nil, nil, err
	}
	if err := checkLimits(h, limits); err != nil {
		return Header{}, nil, nil, err
	}
	if uint64(len(data)) != h.TotalLen() {
		return Header{}, nil, nil, fmt.Errorf("%w: have %d bytes, header describes %d", ErrTruncated, len(data), h.TotalLen())
	}
	attrEnd := HeaderLen + int(h.AttrLen)
	return h, data[HeaderLen:attrEnd], data[attrEnd:], nil
}

func checkLimits(h Header, limits Limits) error {
	if uint64(h.AttrLen)+uint64(h.BodyLen) > uint64(limits.MaxPayloadBytes) {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, uint64(h.AttrLen)+uint64(h.BodyLen))
	}
	if h.RawLen > limits.MaxPayloadBytes {
		return fmt.Errorf("%w: %d bytes uncompressed", ErrPayloadTooLarge, h.RawLen)
	}
	return nil
}

// Attr returns the first attribute with id.
func (p *Parcel) Attr(id uint16) (Attr, bool) {
	return GetAttr(p.Attrs, id)
}

// NewSlot allocates an unconstructed slot sized for the payload. Byte
// payloads get a blob slot as long as the body.
func (p *Parcel) NewSlot() *descriptor.Slot {
	if p.Descriptor == descriptor.Bytes() {
		return descriptor.NewBlobSlot(len(p.Body))
	}
	return descriptor.NewSlot(p.Descriptor)
}

// Into loads the payload into s. maxVersion is the highest schema version
// the receiver understands. On error s may hold a constructed value that the
// caller still owns.
func (p *Parcel) Into(s *descriptor.Slot, maxVersion uint32) error {
	if s.Descriptor() != p.Descriptor {
		return fmt.Errorf("%w: slot %s, parcel %s", ErrDescriptorMismatch, s.Descriptor().Type(), p.Name)
	}
	if p.Version > maxVersion {
		return fmt.Errorf("%w: parcel version %d, max %d", archive.ErrUnsupportedVersion, p.Version, maxVersion)
	}
	r := archive.NewReaderLimits(bytes.NewReader(p.Body), p.limits)
	if err := s.Load(r, maxVersion); err != nil {
		return fmt.Errorf("parcel: load %s: %w", p.Name, err)
	}
	if rest := int64(len(p.Body)) - r.Consumed(); rest != 0 {
		return fmt.Errorf("%w: %d trailing bytes after %s payload", archive.ErrMalformed, rest, p.Name)
	}
	return nil
}

// Unpack decodes data and loads it into a fresh slot.
func Unpack(data []byte, reg *descriptor.Registry, limits Limits, maxVersion uint32) (*Parcel, *descriptor.Slot, error) {
	p, err := Decode(data, reg, limits)
	if err != nil {
		return nil, nil, err
	}
	s := p.NewSlot()
	if err := p.Into(s, maxVersion); err != nil {
		if s.Live() {
			s.Destruct()
		}
		class := classify(err)
		observability.RecordParcel("load", p.Name, 0, class)
		log.Warn().Str("component", "parcel").Str("type", p.Name).Str("class", class).Err(err).Msg("parcel load failed")
		return nil, nil, err
	}
	return p, s, nil
}

func classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, descriptor.ErrMissingRegistration):
		return "missing_registration"
	case errors.Is(err, ErrModeMismatch):
		return "mode_mismatch"
	case errors.Is(err, ErrPayloadTooLarge), errors.Is(err, archive.ErrRecordTooLarge):
		return "too_large"
	case errors.Is(err, archive.ErrUnsupportedVersion):
		return "unsupported_version"
	case errors.Is(err, archive.ErrTruncated), errors.Is(err, ErrTruncated), errors.Is(err, ErrShortHeader):
		return "truncated"
	case errors.Is(err, archive.ErrKindMismatch):
		return "kind_mismatch"
	case errors.Is(err, ErrInvalidMagic), errors.Is(err, ErrUnsupportedFormat):
		return "bad_header"
	case errors.Is(err, ErrCorruptBody):
		return "corrupt_body"
	case errors.Is(err, archive.ErrDeserialize):
		return "deserialize"
	default:
		return "other"
	}
}
