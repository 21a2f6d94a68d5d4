package descriptor

import (
	"reflect"
	"unsafe"

	"github.com/danmuck/taskwire/internal/archive"
)

// Descriptor binds construct/clone/destruct/save/load to exactly one
// payload type. Instances are stateless and live for the whole process.
type Descriptor interface {
	// Construct initializes a default value of the payload type in mem.
	Construct(mem unsafe.Pointer, size uintptr)
	// Clone initializes dst as a copy of the value living in src. src is
	// left untouched and still owns its value.
	Clone(dst, src unsafe.Pointer, size uintptr)
	// Destruct finalizes the value in mem without releasing mem.
	Destruct(mem unsafe.Pointer)
	// Save writes the value in mem to ar.
	Save(mem unsafe.Pointer, size uintptr, ar archive.OArchive, version uint32) error
	// Load assigns a value read from ar into the already constructed value
	// in mem.
	Load(mem unsafe.Pointer, size uintptr, ar archive.IArchive, version uint32) error

	// Instance returns the canonical instance for the dynamic descriptor
	// type, usable as an identity token.
	Instance() Descriptor
	// Type is the payload type.
	Type() reflect.Type
	// Size is the payload size every sized operation expects.
	Size() uintptr
}

// Initializer lets a payload type run setup after it is zeroed in place.
type Initializer interface {
	Init()
}

// Cloner lets a payload type deep-copy itself into dst. Without it Clone
// performs a plain value copy.
type Cloner[T any] interface {
	CloneInto(dst *T)
}

// Finalizer lets a payload type release resources before its memory is
// zeroed by Destruct.
type Finalizer interface {
	Finalize()
}
