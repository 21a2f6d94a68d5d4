package parcel

import (
	"errors"
	"io"
)

// WriteFrame writes one encoded parcel. The header carries its length, so no
// extra framing is added.
func WriteFrame(w io.Writer, data []byte) error {
	if _, err := DecodeHeader(data); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// ReadFrame reads one encoded parcel from r, enforcing limits before the
// body is allocated. A clean end of stream returns io.EOF.
func ReadFrame(r io.Reader, limits Limits) ([]byte, error) {
	if limits.MaxPayloadBytes == 0 {
		limits = DefaultLimits()
	}
	var fixed [HeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortHeader
		}
		return nil, err
	}
	h, err := DecodeHeader(fixed[:])
	if err != nil {
		return nil, err
	}
	if err := checkLimits(h, limits); err != nil {
		return nil, err
	}
	out := make([]byte, h.TotalLen())
	copy(out, fixed[:])
	if _, err := io.ReadFull(r, out[HeaderLen:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncated
		}
		return nil, err
	}
	return out, nil
}
