package archive

import (
	"encoding/binary"
	"fmt"
)

// Mode identifies the byte order family an archive was written with.
type Mode uint8

const (
	ModePortable Mode = 1
	ModeNative   Mode = 2
)

func (m Mode) String() string {
	switch m {
	case ModePortable:
		return "portable"
	case ModeNative:
		return "native"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// ActiveMode reports the archive mode this binary was built with.
func ActiveMode() Mode {
	return activeMode
}

// ByteOrder returns the byte order used for record headers and fixed-size
// bodies in the active mode.
func ByteOrder() binary.ByteOrder {
	return activeOrder
}
