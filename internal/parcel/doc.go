// Package parcel owns the message buffer that carries one type-erased
// payload across an execution or process boundary.
//
// Ownership boundary:
// - fixed parcel header (type tag, payload version, archive mode, id)
// - TLV attribute fields
// - body compression
// - stream framing over io.Reader/io.Writer
//
// The header is always big-endian. The body is an archive written in the
// build's archive mode; a receiver built with the other mode rejects it
// with ErrModeMismatch instead of misreading it.
package parcel
