//go:build nativearchive

package archive

import "encoding/binary"

const activeMode = ModeNative

var activeOrder binary.ByteOrder = binary.NativeEndian
