package descriptor

import (
	"fmt"
	"reflect"
	"unsafe"
)

// ContractViolation is the panic value raised when a caller breaks a
// descriptor precondition. It is never returned as an error: the memory
// layout assumption behind every other operation no longer holds.
type ContractViolation struct {
	Op     string
	Type   reflect.Type
	Want   uintptr
	Got    uintptr
	Reason string
}

func (c *ContractViolation) Error() string {
	if c.Reason != "" {
		return fmt.Sprintf("descriptor: %s %v: %s", c.Op, c.Type, c.Reason)
	}
	return fmt.Sprintf("descriptor: %s %v: size %d, want %d", c.Op, c.Type, c.Got, c.Want)
}

func checkSize(op string, t reflect.Type, want, got uintptr) {
	if want != got {
		panic(&ContractViolation{Op: op, Type: t, Want: want, Got: got})
	}
}

func checkMem(op string, t reflect.Type, size uintptr, mem unsafe.Pointer) {
	if mem == nil && size != 0 {
		panic(&ContractViolation{Op: op, Type: t, Reason: "nil memory"})
	}
}

func violate(op string, t reflect.Type, reason string) {
	panic(&ContractViolation{Op: op, Type: t, Reason: reason})
}
