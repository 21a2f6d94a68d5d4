package descriptor

import "github.com/danmuck/taskwire/internal/archive"

// refVersion is the schema version of a persisted descriptor reference.
const refVersion = 1

// WriteRef persists the identity of d, not its behaviour, so a receiver can
// recover the matching descriptor with ReadRef.
func (r *Registry) WriteRef(ar archive.OArchive, d Descriptor) error {
	tag, err := r.TagOf(d)
	if err != nil {
		return err
	}
	return ar.Save(&tag, refVersion)
}

// ReadRef reads a reference written by WriteRef and resolves it. Stream
// damage surfaces as archive.ErrDeserialize; an unknown tag as
// ErrMissingRegistration.
func (r *Registry) ReadRef(ar archive.IArchive) (Descriptor, error) {
	var tag TypeTag
	if err := ar.Load(&tag, refVersion); err != nil {
		return nil, err
	}
	return r.Lookup(tag)
}
