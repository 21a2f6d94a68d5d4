package descriptor

import (
	"errors"
	"fmt"
)

var (
	ErrMissingRegistration = errors.New("descriptor: missing type registration")
	ErrAlreadyRegistered   = errors.New("descriptor: already registered")
	ErrTagCollision        = errors.New("descriptor: type tag collision")
	ErrInvalidName         = errors.New("descriptor: invalid registration name")
	ErrNilDescriptor       = errors.New("descriptor: descriptor is nil")
)

// UnregisteredError reports a descriptor reference the local registry cannot
// resolve. It is a deployment defect: the sending side registered a payload
// type this side never did.
type UnregisteredError struct {
	Tag  TypeTag
	Name string
}

func (e *UnregisteredError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("descriptor: no registration for %q", e.Name)
	}
	return fmt.Sprintf("descriptor: no registration for tag %s", e.Tag)
}

func (e *UnregisteredError) Is(target error) bool {
	return target == ErrMissingRegistration
}
