package descriptor

import (
	"reflect"
	"unsafe"

	"github.com/danmuck/taskwire/internal/archive"
)

// Slot is caller-owned storage for one payload value. It allocates memory
// typed for the descriptor's payload so pointers inside the payload stay
// visible to the garbage collector, then drives the descriptor over it.
type Slot struct {
	desc Descriptor
	mem  unsafe.Pointer
	size uintptr
	live bool
}

// NewSlot allocates storage for d's payload. The value is not constructed.
func NewSlot(d Descriptor) *Slot {
	if d == nil {
		violate("slot", nil, "nil descriptor")
	}
	d = d.Instance()
	return &Slot{
		desc: d,
		mem:  reflect.New(d.Type()).UnsafePointer(),
		size: d.Size(),
	}
}

// NewBlobSlot allocates n bytes managed by the byte fallback.
func NewBlobSlot(n int) *Slot {
	if n < 0 {
		violate("slot", byteType, "negative blob length")
	}
	buf := make([]byte, n)
	return &Slot{desc: Bytes(), mem: unsafe.Pointer(unsafe.SliceData(buf)), size: uintptr(n)}
}

func (s *Slot) Descriptor() Descriptor {
	return s.desc
}

func (s *Slot) Ptr() unsafe.Pointer {
	return s.mem
}

func (s *Slot) Size() uintptr {
	return s.size
}

// Live reports whether the slot currently holds a constructed value.
func (s *Slot) Live() bool {
	return s.live
}

// Bytes exposes the raw storage. Mutating it bypasses the descriptor.
func (s *Slot) Bytes() []byte {
	if s.size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(s.mem), s.size)
}

func (s *Slot) Construct() {
	if s.live {
		violate("construct", s.desc.Type(), "slot already holds a value")
	}
	s.desc.Construct(s.mem, s.size)
	s.live = true
}

// CloneFrom initializes s as a copy of src. Both slots must share a
// descriptor and size.
func (s *Slot) CloneFrom(src *Slot) {
	if s.live {
		violate("clone", s.desc.Type(), "destination already holds a value")
	}
	if !src.live {
		violate("clone", src.desc.Type(), "source holds no value")
	}
	if src.desc != s.desc {
		violate("clone", s.desc.Type(), "descriptor mismatch with "+src.desc.Type().String())
	}
	checkSize("clone", s.desc.Type(), s.size, src.size)
	s.desc.Clone(s.mem, src.mem, s.size)
	s.live = true
}

func (s *Slot) Destruct() {
	if !s.live {
		violate("destruct", s.desc.Type(), "slot holds no value")
	}
	s.desc.Destruct(s.mem)
	s.live = false
}

func (s *Slot) Save(ar archive.OArchive, version uint32) error {
	if !s.live {
		violate("save", s.desc.Type(), "slot holds no value")
	}
	return s.desc.Save(s.mem, s.size, ar, version)
}

// Load assigns into the slot's value, constructing it first if needed.
func (s *Slot) Load(ar archive.IArchive, version uint32) error {
	if !s.live {
		s.Construct()
	}
	return s.desc.Load(s.mem, s.size, ar, version)
}

// SlotValue returns the slot's storage as *T. T must be the payload type.
func SlotValue[T any](s *Slot) *T {
	if t := reflect.TypeFor[T](); t != s.desc.Type() {
		violate("value", s.desc.Type(), "requested as "+t.String())
	}
	return (*T)(s.mem)
}
