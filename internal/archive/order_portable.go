//go:build !nativearchive

package archive

import "encoding/binary"

const activeMode = ModePortable

var activeOrder binary.ByteOrder = binary.BigEndian
