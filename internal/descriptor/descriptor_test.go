package descriptor

import (
	"bytes"
	"errors"
	"reflect"
	"slices"
	"sync"
	"testing"
	"unsafe"

	"github.com/danmuck/taskwire/internal/archive"
	"github.com/danmuck/taskwire/internal/testutil/testlog"
)

// batch holds references, so it brings its own deep copy and teardown.
type batch struct {
	IDs   []int
	Owner string

	onFinalize func()
}

func (b *batch) Init() {
	b.IDs = make([]int, 0, 4)
}

func (b *batch) CloneInto(dst *batch) {
	dst.IDs = append(make([]int, 0, len(b.IDs)), b.IDs...)
	dst.Owner = b.Owner
	dst.onFinalize = b.onFinalize
}

func (b *batch) Finalize() {
	if b.onFinalize != nil {
		b.onFinalize()
	}
}

// counter streams itself and changed layout at version 2.
type counter struct {
	Hits  uint32
	Label string
}

func (c *counter) SaveArchive(w *archive.Writer, version uint32) error {
	if err := w.WriteUint32(c.Hits); err != nil {
		return err
	}
	if version >= 2 {
		return w.WriteString(c.Label)
	}
	return nil
}

func (c *counter) LoadArchive(r *archive.Reader, version uint32) error {
	hits, err := r.ReadUint32()
	if err != nil {
		return err
	}
	c.Hits = hits
	c.Label = ""
	if version >= 2 {
		c.Label, err = r.ReadString()
	}
	return err
}

func expectViolation(t *testing.T, fn func()) *ContractViolation {
	t.Helper()
	var recovered any
	func() {
		defer func() { recovered = recover() }()
		fn()
	}()
	cv, ok := recovered.(*ContractViolation)
	if !ok {
		t.Fatalf("expected *ContractViolation panic, got %v", recovered)
	}
	return cv
}

func TestInt32SaveLoadRoundTrip(t *testing.T) {
	testlog.Start(t)
	d := Of[int32]()

	src := NewSlot(d)
	src.Construct()
	*SlotValue[int32](src) = 42

	var buf bytes.Buffer
	if err := src.Save(archive.NewWriter(&buf), 1); err != nil {
		t.Fatalf("save: %v", err)
	}

	dst := NewSlot(d)
	dst.Construct()
	if err := dst.Load(archive.NewReader(&buf), 1); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := *SlotValue[int32](dst); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestRawMemoryRoundTrip(t *testing.T) {
	testlog.Start(t)
	d := Of[float64]()
	size := unsafe.Sizeof(float64(0))

	var in float64
	d.Construct(unsafe.Pointer(&in), size)
	in = 2.5

	var buf bytes.Buffer
	if err := d.Save(unsafe.Pointer(&in), size, archive.NewWriter(&buf), 1); err != nil {
		t.Fatalf("save: %v", err)
	}
	var out float64
	d.Construct(unsafe.Pointer(&out), size)
	if err := d.Load(unsafe.Pointer(&out), size, archive.NewReader(&buf), 1); err != nil {
		t.Fatalf("load: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: got %v want %v", out, in)
	}
}

func TestRoundTripAcrossVersions(t *testing.T) {
	testlog.Start(t)
	d := Of[counter]()
	const writerVersion = 2
	for version := uint32(1); version <= writerVersion; version++ {
		src := NewSlot(d)
		src.Construct()
		*SlotValue[counter](src) = counter{Hits: 7, Label: "edge"}

		var buf bytes.Buffer
		if err := src.Save(archive.NewWriter(&buf), version); err != nil {
			t.Fatalf("save v%d: %v", version, err)
		}
		dst := NewSlot(d)
		dst.Construct()
		if err := dst.Load(archive.NewReader(&buf), writerVersion); err != nil {
			t.Fatalf("load v%d: %v", version, err)
		}
		want := counter{Hits: 7}
		if version >= 2 {
			want.Label = "edge"
		}
		if got := *SlotValue[counter](dst); got != want {
			t.Fatalf("v%d: got %+v want %+v", version, got, want)
		}
	}
}

func TestCloneFixedArraySurvivesSourceDestruct(t *testing.T) {
	testlog.Start(t)
	d := Of[[16]byte]()
	var pattern [16]byte
	for i := range pattern {
		pattern[i] = byte(0xa0 + i)
	}

	first := NewSlot(d)
	first.Construct()
	*SlotValue[[16]byte](first) = pattern

	second := NewSlot(d)
	second.CloneFrom(first)
	first.Destruct()

	if got := *SlotValue[[16]byte](second); got != pattern {
		t.Fatalf("clone lost pattern: %x", got)
	}
	if got := *SlotValue[[16]byte](first); got != ([16]byte{}) {
		t.Fatalf("destruct should clear the source buffer, got %x", got)
	}
}

func TestCloneIndependence(t *testing.T) {
	testlog.Start(t)
	d := Of[batch]()
	finalized := 0

	src := NewSlot(d)
	src.Construct()
	sv := SlotValue[batch](src)
	sv.IDs = append(sv.IDs, 1, 2, 3)
	sv.Owner = "ghost-a"
	sv.onFinalize = func() { finalized++ }
	before := slices.Clone(src.Bytes())

	dst := NewSlot(d)
	dst.CloneFrom(src)
	dv := SlotValue[batch](dst)
	dv.IDs[0] = 99
	dv.Owner = "ghost-b"

	if !bytes.Equal(src.Bytes(), before) {
		t.Fatalf("mutating the clone changed source bytes")
	}
	if sv.IDs[0] != 1 || sv.Owner != "ghost-a" {
		t.Fatalf("source value changed: %+v", *sv)
	}

	dst.Destruct()
	if finalized != 1 {
		t.Fatalf("expected one finalize call, got %d", finalized)
	}
	if !reflect.DeepEqual(sv.IDs, []int{1, 2, 3}) {
		t.Fatalf("source invalid after clone destruct: %+v", *sv)
	}
}

func TestConstructRunsInitializer(t *testing.T) {
	testlog.Start(t)
	s := NewSlot(Of[batch]())
	s.Construct()
	if v := SlotValue[batch](s); v.IDs == nil || cap(v.IDs) != 4 {
		t.Fatalf("Init not applied: %+v", *v)
	}
}

func TestByteFallbackCloneAndRawRoundTrip(t *testing.T) {
	testlog.Start(t)
	d := Bytes()
	src := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	dst := make([]byte, 8)

	d.Construct(unsafe.Pointer(&dst[0]), 8)
	d.Clone(unsafe.Pointer(&dst[0]), unsafe.Pointer(&src[0]), 8)
	if !bytes.Equal(dst, src) {
		t.Fatalf("clone mismatch: %x", dst)
	}

	var buf bytes.Buffer
	if err := d.Save(unsafe.Pointer(&src[0]), 8, archive.NewWriter(&buf), 1); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), src) {
		t.Fatalf("fallback must write the raw run: %x", buf.Bytes())
	}
	out := make([]byte, 8)
	if err := d.Load(unsafe.Pointer(&out[0]), 8, archive.NewReader(&buf), 1); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !bytes.Equal(out, src) {
		t.Fatalf("load mismatch: %x", out)
	}
	d.Destruct(unsafe.Pointer(&out[0]))
	if !bytes.Equal(out, src) {
		t.Fatalf("fallback destruct must not touch memory: %x", out)
	}
}

func TestTypedByteIsByteFallback(t *testing.T) {
	testlog.Start(t)
	if Of[byte]() != Bytes() || Of[uint8]() != Bytes() {
		t.Fatalf("typed byte descriptor must be the fallback instance")
	}

	typed, fallback := Of[byte](), Bytes()
	inputs := [][]byte{{0x00}, {0xff}, {0x5a}}
	for _, in := range inputs {
		a, b := slices.Clone(in), slices.Clone(in)
		typed.Construct(unsafe.Pointer(&a[0]), 1)
		fallback.Construct(unsafe.Pointer(&b[0]), 1)
		if !bytes.Equal(a, b) {
			t.Fatalf("construct diverged: %x vs %x", a, b)
		}

		var ta, fb bytes.Buffer
		if err := typed.Save(unsafe.Pointer(&a[0]), 1, archive.NewWriter(&ta), 1); err != nil {
			t.Fatalf("typed save: %v", err)
		}
		if err := fallback.Save(unsafe.Pointer(&b[0]), 1, archive.NewWriter(&fb), 1); err != nil {
			t.Fatalf("fallback save: %v", err)
		}
		if !bytes.Equal(ta.Bytes(), fb.Bytes()) {
			t.Fatalf("save diverged: %x vs %x", ta.Bytes(), fb.Bytes())
		}
	}
}

func TestInstanceIdentity(t *testing.T) {
	testlog.Start(t)
	a := Of[int64]()
	b := Of[int64]()
	if a != b {
		t.Fatalf("expected identical instances")
	}
	if a.Instance() != a {
		t.Fatalf("Instance must return the canonical descriptor")
	}
	if Of[uint64]() == a {
		t.Fatalf("distinct payload types must not share an instance")
	}
	if Bytes().Instance() != Bytes() {
		t.Fatalf("fallback Instance must be the fallback")
	}
	if a.Size() != 8 || a.Type() != reflect.TypeFor[int64]() {
		t.Fatalf("metadata mismatch: size=%d type=%v", a.Size(), a.Type())
	}
}

type firstUse struct{ N [3]int16 }

func TestInstanceIdentityUnderConcurrentFirstUse(t *testing.T) {
	testlog.Start(t)
	const workers = 32
	got := make([]Descriptor, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			got[i] = Of[firstUse]()
		}(i)
	}
	close(start)
	wg.Wait()
	for i := 1; i < workers; i++ {
		if got[i] != got[0] {
			t.Fatalf("worker %d observed a different instance", i)
		}
	}
}

func TestSizePreconditionPanics(t *testing.T) {
	testlog.Start(t)
	d := Of[int32]()
	size := unsafe.Sizeof(int32(0))
	v := int32(7)
	w := int32(9)
	mem := unsafe.Pointer(&v)

	cv := expectViolation(t, func() { d.Construct(mem, size-1) })
	if cv.Op != "construct" || cv.Want != size || cv.Got != size-1 {
		t.Fatalf("unexpected violation: %+v", cv)
	}
	if v != 7 {
		t.Fatalf("construct touched memory before failing: %d", v)
	}
	expectViolation(t, func() { d.Clone(unsafe.Pointer(&w), mem, size+1) })
	expectViolation(t, func() { _ = d.Save(mem, 0, archive.NewWriter(&bytes.Buffer{}), 1) })
	expectViolation(t, func() { _ = d.Load(mem, 2, archive.NewReader(&bytes.Buffer{}), 1) })
	expectViolation(t, func() { d.Construct(nil, size) })
	if w != 9 {
		t.Fatalf("clone touched memory before failing: %d", w)
	}
}

func TestLoadPropagatesArchiveFailure(t *testing.T) {
	testlog.Start(t)
	s := NewSlot(Of[int32]())
	s.Construct()
	err := s.Load(archive.NewReader(bytes.NewReader([]byte{1, 0})), 1)
	if err == nil {
		t.Fatalf("expected archive failure")
	}
	if !errors.Is(err, archive.ErrDeserialize) {
		t.Fatalf("expected deserialization error, got %v", err)
	}
}

func TestSlotContract(t *testing.T) {
	testlog.Start(t)
	s := NewSlot(Of[int32]())
	expectViolation(t, func() { s.Destruct() })
	expectViolation(t, func() { _ = s.Save(archive.NewWriter(&bytes.Buffer{}), 1) })
	s.Construct()
	expectViolation(t, func() { s.Construct() })
	expectViolation(t, func() { SlotValue[int64](s) })

	other := NewSlot(Of[int64]())
	expectViolation(t, func() { other.CloneFrom(s) })

	s.Destruct()
	if s.Live() {
		t.Fatalf("slot still live after destruct")
	}
}

func TestBlobSlot(t *testing.T) {
	testlog.Start(t)
	src := NewBlobSlot(5)
	src.Construct()
	copy(src.Bytes(), "hello")

	dst := NewBlobSlot(5)
	dst.CloneFrom(src)
	if string(dst.Bytes()) != "hello" {
		t.Fatalf("blob clone mismatch: %q", dst.Bytes())
	}
	short := NewBlobSlot(4)
	expectViolation(t, func() { short.CloneFrom(src) })
}
