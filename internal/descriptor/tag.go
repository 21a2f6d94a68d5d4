package descriptor

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/zeebo/blake3"
)

// TypeTag is the compact wire identity of a registered payload type. It is
// derived from the registration name, so both sides of a link compute the
// same tag without exchanging a table.
type TypeTag uint64

// tagDomainKey separates type tags from any other BLAKE3 use of the same
// names. Changing it invalidates every tag already on the wire.
var tagDomainKey = [32]byte{
	't', 'a', 's', 'k', 'w', 'i', 'r', 'e', '.', 'd', 'e', 's', 'c', 'r', 'i', 'p',
	't', 'o', 'r', '.', 't', 'a', 'g', 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// TagFor derives the type tag for a registration name.
func TagFor(name string) TypeTag {
	hasher, err := blake3.NewKeyed(tagDomainKey[:])
	if err != nil {
		panic("descriptor: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write([]byte(name))
	sum := hasher.Sum(nil)
	return TypeTag(binary.BigEndian.Uint64(sum[:8]))
}

func (t TypeTag) String() string {
	return fmt.Sprintf("%016x", uint64(t))
}

// ParseTypeTag parses the hex form produced by String.
func ParseTypeTag(s string) (TypeTag, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("descriptor: invalid type tag %q: %w", s, err)
	}
	return TypeTag(v), nil
}
