//go:build !nativearchive

package archive

import (
	"bytes"
	"testing"
)

func TestPortableRecordLayoutIsBigEndian(t *testing.T) {
	var buf bytes.Buffer
	v := uint32(0x01020304)
	if err := NewWriter(&buf).Save(&v, 7); err != nil {
		t.Fatalf("save: %v", err)
	}
	want := []byte{
		byte(KindFixed),
		0, 0, 0, 7, // version
		0, 0, 0, 4, // body length
		1, 2, 3, 4,
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("layout mismatch: got=%x want=%x", buf.Bytes(), want)
	}
	if ActiveMode() != ModePortable {
		t.Fatalf("expected portable mode, got %s", ActiveMode())
	}
}
