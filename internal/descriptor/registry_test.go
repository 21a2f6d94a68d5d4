package descriptor

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/danmuck/taskwire/internal/archive"
	"github.com/danmuck/taskwire/internal/testutil/testlog"
)

type taskArgs struct {
	Count int32
	Scale float32
}

type taskResult struct {
	Code int32
}

func TestRegisterLookupAndIdempotence(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry()
	if err := r.Register("task.args", Of[taskArgs]()); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register("task.args", Of[taskArgs]()); err != nil {
		t.Fatalf("re-registering the same pair must be a no-op: %v", err)
	}

	got, err := r.Lookup(TagFor("task.args"))
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got != Of[taskArgs]() {
		t.Fatalf("lookup returned a different instance")
	}
	byName, err := r.LookupName("task.args")
	if err != nil || byName != got {
		t.Fatalf("lookup by name: %v %v", byName, err)
	}
	tag, err := r.TagOf(got)
	if err != nil || tag != TagFor("task.args") {
		t.Fatalf("tag of: %s %v", tag, err)
	}
}

func TestRegisterConflicts(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry()
	if err := r.Register("task.args", Of[taskArgs]()); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register("task.args", Of[taskResult]()); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered for reused name, got %v", err)
	}
	if err := r.Register("task.args.v2", Of[taskArgs]()); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered for reused descriptor, got %v", err)
	}
	if err := r.Register(ByteName, Bytes()); err != nil {
		t.Fatalf("fallback is pre-registered and idempotent: %v", err)
	}
	if err := r.Register("task.nil", nil); !errors.Is(err, ErrNilDescriptor) {
		t.Fatalf("expected ErrNilDescriptor, got %v", err)
	}
}

func TestRegisterInvalidNames(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry()
	for _, name := range []string{"", "Task.Args", ".task", "task.", "task..args", "task args"} {
		if err := r.Register(name, Of[taskResult]()); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("expected ErrInvalidName for %q, got %v", name, err)
		}
	}
}

func TestLookupMissingIsRegistrationFailure(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry()
	_, err := r.Lookup(TagFor("never.registered"))
	if !errors.Is(err, ErrMissingRegistration) {
		t.Fatalf("expected ErrMissingRegistration, got %v", err)
	}
	if errors.Is(err, archive.ErrDeserialize) {
		t.Fatalf("missing registration must not look like stream damage")
	}
	var unreg *UnregisteredError
	if !errors.As(err, &unreg) || unreg.Tag != TagFor("never.registered") {
		t.Fatalf("expected UnregisteredError with tag, got %v", err)
	}
	if _, err := r.TagOf(Of[taskResult]()); !errors.Is(err, ErrMissingRegistration) {
		t.Fatalf("expected ErrMissingRegistration from TagOf, got %v", err)
	}
}

func TestRefRoundTripResolvesConcreteDescriptor(t *testing.T) {
	testlog.Start(t)
	sender := NewRegistry()
	receiver := NewRegistry()
	for _, r := range []*Registry{sender, receiver} {
		if err := r.Register("task.result", Of[taskResult]()); err != nil {
			t.Fatalf("register: %v", err)
		}
	}

	var base Descriptor = Of[taskResult]()
	var buf bytes.Buffer
	if err := sender.WriteRef(archive.NewWriter(&buf), base); err != nil {
		t.Fatalf("write ref: %v", err)
	}
	if err := sender.WriteRef(archive.NewWriter(&buf), Bytes()); err != nil {
		t.Fatalf("write fallback ref: %v", err)
	}

	ar := archive.NewReader(&buf)
	got, err := receiver.ReadRef(ar)
	if err != nil {
		t.Fatalf("read ref: %v", err)
	}
	if got != base || got.Type() != reflect.TypeFor[taskResult]() {
		t.Fatalf("resolved %v, want %v", got, base)
	}
	fallback, err := receiver.ReadRef(ar)
	if err != nil || fallback != Bytes() {
		t.Fatalf("fallback ref: %v %v", fallback, err)
	}
}

func TestReadRefUnknownOnReceiver(t *testing.T) {
	testlog.Start(t)
	sender := NewRegistry()
	if err := sender.Register("task.result", Of[taskResult]()); err != nil {
		t.Fatalf("register: %v", err)
	}
	var buf bytes.Buffer
	if err := sender.WriteRef(archive.NewWriter(&buf), Of[taskResult]()); err != nil {
		t.Fatalf("write ref: %v", err)
	}
	_, err := NewRegistry().ReadRef(archive.NewReader(&buf))
	if !errors.Is(err, ErrMissingRegistration) {
		t.Fatalf("expected ErrMissingRegistration, got %v", err)
	}

	_, err = NewRegistry().ReadRef(archive.NewReader(bytes.NewReader([]byte{1, 0, 0})))
	if !errors.Is(err, archive.ErrDeserialize) || errors.Is(err, ErrMissingRegistration) {
		t.Fatalf("expected a pure deserialization error, got %v", err)
	}
}

func TestEntriesSortedAndDefault(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry()
	_ = r.Register("z.last", Of[taskResult]())
	_ = r.Register("a.first", Of[taskArgs]())
	entries := r.Entries()
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	want := []string{"a.first", ByteName, "z.last"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("entries not sorted: got=%v want=%v", names, want)
	}
	if r.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", r.Len())
	}
	if Default() != Default() {
		t.Fatalf("default registry must be a singleton")
	}
	if _, err := Default().LookupName(ByteName); err != nil {
		t.Fatalf("default registry missing fallback: %v", err)
	}
}

func TestTagForIsStable(t *testing.T) {
	if TagFor("task.args") != TagFor("task.args") {
		t.Fatalf("tag must be deterministic")
	}
	if TagFor("task.args") == TagFor("task.result") {
		t.Fatalf("distinct names should not share a tag")
	}
	tag := TagFor("task.args")
	parsed, err := ParseTypeTag(tag.String())
	if err != nil || parsed != tag {
		t.Fatalf("parse tag: %s %v", parsed, err)
	}
	if _, err := ParseTypeTag("not-hex"); err == nil {
		t.Fatalf("expected parse failure")
	}
}
