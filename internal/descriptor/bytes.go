package descriptor

import (
	"reflect"
	"unsafe"

	"github.com/danmuck/taskwire/internal/archive"
)

// byteDescriptor treats payload memory as an opaque run of bytes. It is the
// base case for every descriptor and the descriptor of the byte type.
type byteDescriptor struct {
	rtype reflect.Type
}

var byteInstance = &byteDescriptor{rtype: reflect.TypeFor[byte]()}

// Bytes returns the canonical byte fallback descriptor.
func Bytes() Descriptor {
	return byteInstance
}

func (d *byteDescriptor) Construct(unsafe.Pointer, uintptr) {}

func (d *byteDescriptor) Clone(dst, src unsafe.Pointer, size uintptr) {
	if size == 0 {
		return
	}
	checkMem("clone", d.rtype, size, dst)
	checkMem("clone", d.rtype, size, src)
	copy(unsafe.Slice((*byte)(dst), size), unsafe.Slice((*byte)(src), size))
}

func (d *byteDescriptor) Destruct(unsafe.Pointer) {}

func (d *byteDescriptor) Save(mem unsafe.Pointer, size uintptr, ar archive.OArchive, _ uint32) error {
	if size == 0 {
		return nil
	}
	checkMem("save", d.rtype, size, mem)
	return ar.WriteRaw(unsafe.Slice((*byte)(mem), size))
}

func (d *byteDescriptor) Load(mem unsafe.Pointer, size uintptr, ar archive.IArchive, _ uint32) error {
	if size == 0 {
		return nil
	}
	checkMem("load", d.rtype, size, mem)
	return ar.ReadRaw(unsafe.Slice((*byte)(mem), size))
}

func (d *byteDescriptor) Instance() Descriptor {
	return byteInstance
}

func (d *byteDescriptor) Type() reflect.Type {
	return d.rtype
}

func (d *byteDescriptor) Size() uintptr {
	return 1
}

func (d *byteDescriptor) String() string {
	return "descriptor(byte)"
}
