package parcel

import (
	"encoding/binary"

	"github.com/danmuck/taskwire/internal/archive"
	"github.com/danmuck/taskwire/internal/descriptor"
	"github.com/google/uuid"
)

const (
	Magic  uint32 = 0x54574952 // "TWIR"
	Format uint16 = 1

	// HeaderLen is magic(4) format(2) flags(2) tag(8) id(16) version(4)
	// attrs(4) body(4) raw(4).
	HeaderLen = 48
)

// Flag layout: low byte holds the archive mode, high byte the compression.
const (
	flagModeMask        uint16 = 0x00ff
	flagCompressionMask uint16 = 0xff00
	flagCompressionBits        = 8
)

// Header is the fixed parcel header.
type Header struct {
	Magic       uint32
	Format      uint16
	Mode        archive.Mode
	Compression Compression
	Tag         descriptor.TypeTag
	ID          uuid.UUID
	Version     uint32
	AttrLen     uint32
	BodyLen     uint32
	RawLen      uint32
}

func (h Header) flags() uint16 {
	return uint16(h.Mode)&flagModeMask |
		uint16(h.Compression)<<flagCompressionBits&flagCompressionMask
}

// EncodeHeader writes h into a HeaderLen byte slice.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderLen)
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	binary.BigEndian.PutUint16(buf[4:6], h.Format)
	binary.BigEndian.PutUint16(buf[6:8], h.flags())
	binary.BigEndian.PutUint64(buf[8:16], uint64(h.Tag))
	copy(buf[16:32], h.ID[:])
	binary.BigEndian.PutUint32(buf[32:36], h.Version)
	binary.BigEndian.PutUint32(buf[36:40], h.AttrLen)
	binary.BigEndian.PutUint32(buf[40:44], h.BodyLen)
	binary.BigEndian.PutUint32(buf[44:48], h.RawLen)
	return buf
}

// DecodeHeader parses and validates a fixed header. It does not check the
// archive mode; Decode does, so tools can still inspect foreign parcels.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, ErrShortHeader
	}
	flags := binary.BigEndian.Uint16(b[6:8])
	h := Header{
		Magic:       binary.BigEndian.Uint32(b[0:4]),
		Format:      binary.BigEndian.Uint16(b[4:6]),
		Mode:        archive.Mode(flags & flagModeMask),
		Compression: Compression((flags & flagCompressionMask) >> flagCompressionBits),
		Tag:         descriptor.TypeTag(binary.BigEndian.Uint64(b[8:16])),
		Version:     binary.BigEndian.Uint32(b[32:36]),
		AttrLen:     binary.BigEndian.Uint32(b[36:40]),
		BodyLen:     binary.BigEndian.Uint32(b[40:44]),
		RawLen:      binary.BigEndian.Uint32(b[44:48]),
	}
	copy(h.ID[:], b[16:32])
	if h.Magic != Magic {
		return Header{}, ErrInvalidMagic
	}
	if h.Format != Format {
		return Header{}, ErrUnsupportedFormat
	}
	return h, nil
}

// TotalLen is the full encoded parcel length the header describes.
func (h Header) TotalLen() uint64 {
	return HeaderLen + uint64(h.AttrLen) + uint64(h.BodyLen)
}
