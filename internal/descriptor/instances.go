package descriptor

import (
	"reflect"
	"sync"
)

// instanceCell holds one lazily built canonical descriptor. The Once makes
// the build happen exactly once per payload type and publishes it safely to
// every goroutine that observes the cell.
type instanceCell struct {
	once sync.Once
	desc Descriptor
}

var (
	instances sync.Map // reflect.Type -> *instanceCell
	byteType  = reflect.TypeFor[byte]()
)

// Of returns the canonical descriptor for payload type T. Repeated calls
// return the identical instance; the byte type resolves to Bytes().
func Of[T any]() Descriptor {
	t := reflect.TypeFor[T]()
	if t == byteType {
		return byteInstance
	}
	actual, ok := instances.Load(t)
	if !ok {
		actual, _ = instances.LoadOrStore(t, &instanceCell{})
	}
	cell := actual.(*instanceCell)
	cell.once.Do(func() {
		cell.desc = newTyped[T]()
	})
	return cell.desc
}
