// Package archive owns the binary archive contract consumed by payload
// descriptors.
//
// Ownership boundary:
// - raw byte-run append/extract
// - typed value records tagged with a schema version
// - portable vs native byte order, selected at build time
//
// The default build writes portable archives (big-endian, architecture
// independent). Building with the nativearchive tag switches record
// bodies to host byte order. Both sides of a link must be built the same
// way; parcels carry the mode so a mismatch is rejected on receive.
package archive
