package descriptor

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/danmuck/taskwire/internal/archive"
)

// typed is the descriptor for payload type T. Only Of creates one, so there
// is never more than one per T.
type typed[T any] struct {
	rtype reflect.Type
	size  uintptr
}

func newTyped[T any]() *typed[T] {
	var zero T
	return &typed[T]{rtype: reflect.TypeFor[T](), size: unsafe.Sizeof(zero)}
}

func (d *typed[T]) check(op string, mem unsafe.Pointer, size uintptr) *T {
	checkSize(op, d.rtype, d.size, size)
	checkMem(op, d.rtype, size, mem)
	return (*T)(mem)
}

func (d *typed[T]) Construct(mem unsafe.Pointer, size uintptr) {
	p := d.check("construct", mem, size)
	var zero T
	*p = zero
	if init, ok := any(p).(Initializer); ok {
		init.Init()
	}
}

func (d *typed[T]) Clone(dst, src unsafe.Pointer, size uintptr) {
	to := d.check("clone", dst, size)
	from := d.check("clone", src, size)
	if d.size != 0 && to == from {
		violate("clone", d.rtype, "source and destination overlap")
	}
	if c, ok := any(from).(Cloner[T]); ok {
		var zero T
		*to = zero
		c.CloneInto(to)
		return
	}
	*to = *from
}

func (d *typed[T]) Destruct(mem unsafe.Pointer) {
	p := d.check("destruct", mem, d.size)
	if f, ok := any(p).(Finalizer); ok {
		f.Finalize()
	}
	var zero T
	*p = zero
}

func (d *typed[T]) Save(mem unsafe.Pointer, size uintptr, ar archive.OArchive, version uint32) error {
	p := d.check("save", mem, size)
	return ar.Save(p, version)
}

func (d *typed[T]) Load(mem unsafe.Pointer, size uintptr, ar archive.IArchive, version uint32) error {
	p := d.check("load", mem, size)
	return ar.Load(p, version)
}

func (d *typed[T]) Instance() Descriptor {
	return Of[T]()
}

func (d *typed[T]) Type() reflect.Type {
	return d.rtype
}

func (d *typed[T]) Size() uintptr {
	return d.size
}

func (d *typed[T]) String() string {
	return fmt.Sprintf("descriptor(%v)", d.rtype)
}
