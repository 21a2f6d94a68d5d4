// Package descriptor owns the type-erased payload lifecycle contract.
//
// Ownership boundary:
// - the five-operation Descriptor interface (construct, clone, destruct,
//   save, load) over caller-owned memory
// - the byte fallback and generic typed descriptors
// - canonical per-type instances and the name/tag relationship registry
//   used to resolve descriptors on receive
//
// A descriptor never allocates or frees payload memory. Callers either
// hand it memory they already own (a *T converted to unsafe.Pointer) or
// use Slot, which allocates storage the garbage collector can scan.
//
//	d := descriptor.Of[int32]()
//	slot := descriptor.NewSlot(d)
//	slot.Construct()
//	*descriptor.SlotValue[int32](slot) = 42
//	err := slot.Save(archive.NewWriter(&buf), 1)
package descriptor
