package descriptor

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// ByteName is the registration name of the byte fallback. Every registry
// starts with it.
const ByteName = "byte"

// Entry is one registered descriptor relationship.
type Entry struct {
	Name       string
	Tag        TypeTag
	Type       reflect.Type
	Size       uintptr
	Descriptor Descriptor
}

// Registry records which canonical descriptors are resolvable from a type
// tag. Registration happens once at startup; lookups afterwards only take
// the read lock.
type Registry struct {
	mu     sync.RWMutex
	byTag  map[TypeTag]Entry
	byName map[string]TypeTag
	byDesc map[Descriptor]TypeTag
}

// NewRegistry creates a registry holding only the byte fallback.
func NewRegistry() *Registry {
	r := &Registry{
		byTag:  make(map[TypeTag]Entry),
		byName: make(map[string]TypeTag),
		byDesc: make(map[Descriptor]TypeTag),
	}
	r.insert(ByteName, Bytes())
	return r
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Register declares the canonical descriptor for T resolvable under name in
// the process-wide registry.
func Register[T any](name string) error {
	return Default().Register(name, Of[T]())
}

// MustRegister is Register for init-time use; it panics on failure.
func MustRegister[T any](name string) {
	if err := Register[T](name); err != nil {
		panic(err)
	}
}

// Register records d under name. Registering the same pair again is a no-op;
// reusing a name or a descriptor for something else fails.
func (r *Registry) Register(name string, d Descriptor) error {
	if d == nil {
		return ErrNilDescriptor
	}
	name = strings.TrimSpace(name)
	if !isValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	d = d.Instance()
	tag := TagFor(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[name]; ok {
		if r.byTag[existing].Descriptor == d {
			return nil
		}
		return fmt.Errorf("%w: name %q is bound to %v", ErrAlreadyRegistered, name, r.byTag[existing].Type)
	}
	if prior, ok := r.byDesc[d]; ok {
		return fmt.Errorf("%w: %v is registered as %q", ErrAlreadyRegistered, d.Type(), r.byTag[prior].Name)
	}
	if clash, ok := r.byTag[tag]; ok {
		return fmt.Errorf("%w: %q and %q share tag %s", ErrTagCollision, name, clash.Name, tag)
	}
	r.insert(name, d)
	log.Debug().Str("name", name).Str("tag", tag.String()).Str("type", d.Type().String()).Msg("descriptor registered")
	return nil
}

func (r *Registry) insert(name string, d Descriptor) {
	tag := TagFor(name)
	r.byTag[tag] = Entry{Name: name, Tag: tag, Type: d.Type(), Size: d.Size(), Descriptor: d}
	r.byName[name] = tag
	r.byDesc[d] = tag
}

// Lookup resolves a type tag received from a peer.
func (r *Registry) Lookup(tag TypeTag) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.byTag[tag]
	if !ok {
		return nil, &UnregisteredError{Tag: tag}
	}
	return entry.Descriptor, nil
}

// LookupName resolves a registration name.
func (r *Registry) LookupName(name string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tag, ok := r.byName[strings.TrimSpace(name)]
	if !ok {
		return nil, &UnregisteredError{Tag: TagFor(name), Name: name}
	}
	return r.byTag[tag].Descriptor, nil
}

// TagOf returns the tag d was registered under.
func (r *Registry) TagOf(d Descriptor) (TypeTag, error) {
	if d == nil {
		return 0, ErrNilDescriptor
	}
	d = d.Instance()
	r.mu.RLock()
	defer r.mu.RUnlock()
	tag, ok := r.byDesc[d]
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrMissingRegistration, d.Type())
	}
	return tag, nil
}

// Entry returns the registration for tag.
func (r *Registry) Entry(tag TypeTag) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.byTag[tag]
	return entry, ok
}

// Entries returns every registration ordered by name.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	list := make([]Entry, 0, len(r.byTag))
	for _, entry := range r.byTag {
		list = append(list, entry)
	}
	r.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byTag)
}

// isValidName accepts lower-case dotted identifiers such as "task.result"
// or "job-v2_args".
func isValidName(name string) bool {
	if name == "" {
		return false
	}
	lastSep := false
	for i := 0; i < len(name); i++ {
		c := name[i]
		isLower := c >= 'a' && c <= 'z'
		isDigit := c >= '0' && c <= '9'
		isSep := c == '.' || c == '-' || c == '_'
		if !(isLower || isDigit || isSep) {
			return false
		}
		if (i == 0 || i == len(name)-1) && isSep {
			return false
		}
		if isSep && lastSep {
			return false
		}
		lastSep = isSep
	}
	return true
}
