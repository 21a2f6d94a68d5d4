package archive

import (
	"errors"
	"fmt"
)

// ErrDeserialize is the root of every failure produced while reading an
// archive. Callers test for it with errors.Is to separate stream damage from
// configuration problems.
var ErrDeserialize = errors.New("archive: deserialization error")

var (
	ErrTruncated          = fmt.Errorf("%w: truncated stream", ErrDeserialize)
	ErrMalformed          = fmt.Errorf("%w: malformed record", ErrDeserialize)
	ErrKindMismatch       = fmt.Errorf("%w: record kind mismatch", ErrDeserialize)
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported version", ErrDeserialize)

	ErrRecordTooLarge = errors.New("archive: record too large")
	ErrNotPointer     = errors.New("archive: value must be a non-nil pointer")
)

// RecordError describes a typed record that could not be read back.
type RecordError struct {
	Kind    Kind
	Version uint32
	Err     error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("archive: %s record (version %d): %v", e.Kind, e.Version, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

func deserializeError(err error) error {
	if err == nil || errors.Is(err, ErrDeserialize) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrDeserialize, err)
}
