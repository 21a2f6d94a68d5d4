package parcel

import (
	"errors"
	"fmt"

	"github.com/danmuck/taskwire/internal/archive"
)

// Damage to the parcel bytes is rooted at archive.ErrDeserialize, the same
// as damage inside the archive body.
var (
	ErrInvalidMagic      = fmt.Errorf("%w: parcel: invalid magic", archive.ErrDeserialize)
	ErrUnsupportedFormat = fmt.Errorf("%w: parcel: unsupported format", archive.ErrDeserialize)
	ErrShortHeader       = fmt.Errorf("%w: parcel: short header", archive.ErrDeserialize)
	ErrTruncated         = fmt.Errorf("%w: parcel data", archive.ErrTruncated)
	ErrShortAttrHeader   = fmt.Errorf("%w: parcel: short attribute header", archive.ErrDeserialize)
	ErrShortAttrValue    = fmt.Errorf("%w: parcel: short attribute value", archive.ErrDeserialize)
	ErrUnknownAttrType   = fmt.Errorf("%w: parcel: unknown attribute type", archive.ErrDeserialize)
	ErrCorruptBody       = fmt.Errorf("%w: parcel: corrupt body", archive.ErrMalformed)

	ErrModeMismatch       = errors.New("parcel: archive mode mismatch")
	ErrPayloadTooLarge    = errors.New("parcel: payload too large")
	ErrUnknownCompression = errors.New("parcel: unknown compression")
	ErrDescriptorMismatch = errors.New("parcel: slot descriptor does not match parcel")
	ErrAttrTypeMismatch   = errors.New("parcel: attribute type mismatch")
)
