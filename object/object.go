// Package object models assembled SIC/XE object code: segments of bytes at
// known addresses, an entry point, and the fixups the linker applies.
package object

import (
	"cmp"
	"slices"
)

// Segment is a contiguous run of emitted bytes at a known base address.
type Segment struct {
	Base int
	Data []byte
}

// End returns the address following the last byte of the segment.
func (seg Segment) End() int {
	return seg.Base + len(seg.Data)
}

// Contains returns true if [address, address+size) lies inside the segment.
func (seg Segment) Contains(address int, size int) bool {
	return address >= seg.Base && address+size <= seg.End()
}

// FixupKind selects the field patched by a fixup.
type FixupKind int

const (
	FIXUP_EXTENDED = FixupKind(0) // 20-bit address field of a format 4 instruction.
	FIXUP_WORD     = FixupKind(1) // 24-bit word.
)

// Fixup is a field whose value depends on the final placement of modules.
type Fixup struct {
	Address int       // Address of the instruction or word.
	Kind    FixupKind // Field to patch.
	Symbol  string    // Imported symbol, or empty to relocate by the load address.
}

// Binary is the object code of a module or of a linked program.
type Binary struct {
	Entry    int       // Entry point address.
	Segments []Segment // Segments, ordered by base address.
	Fixups   []Fixup   // Unapplied fixups.
}

// Size returns the total number of emitted bytes.
func (bin *Binary) Size() (size int) {
	for _, seg := range bin.Segments {
		size += len(seg.Data)
	}
	return
}

// Sort orders the segments by base address.
func (bin *Binary) Sort() {
	slices.SortStableFunc(bin.Segments, func(a, b Segment) int {
		return cmp.Compare(a.Base, b.Base)
	})
}

// Validate checks that no two segments overlap.
func (bin *Binary) Validate() (err error) {
	bin.Sort()
	for n := 1; n < len(bin.Segments); n++ {
		if bin.Segments[n-1].End() > bin.Segments[n].Base {
			return &ErrSegment{Segment: bin.Segments[n], Err: ErrOverlap}
		}
	}
	return
}

// Relocate moves every segment, the entry point, and all fixups by delta.
func (bin *Binary) Relocate(delta int) {
	bin.Entry += delta
	for n := range bin.Segments {
		bin.Segments[n].Base += delta
	}
	for n := range bin.Fixups {
		bin.Fixups[n].Address += delta
	}
}

// Read returns a copy of 'size' bytes at 'address', if a single segment
// holds them.
func (bin *Binary) Read(address int, size int) (data []byte, ok bool) {
	for _, seg := range bin.Segments {
		if seg.Contains(address, size) {
			data = slices.Clone(seg.Data[address-seg.Base : address-seg.Base+size])
			ok = true
			return
		}
	}
	return
}

// field locates the bytes patched by a fixup.
func (bin *Binary) field(fix Fixup) (data []byte, bits uint, err error) {
	offset, size, bits := 1, 3, uint(20)
	if fix.Kind == FIXUP_WORD {
		offset, size, bits = 0, 3, 24
	}

	address := fix.Address + offset
	for _, seg := range bin.Segments {
		if seg.Contains(address, size) {
			data = seg.Data[address-seg.Base : address-seg.Base+size]
			return
		}
	}

	err = ErrFixupAddress
	return
}

// Patch adds value into the field selected by the fixup.
func (bin *Binary) Patch(fix Fixup, value int) (err error) {
	data, bits, err := bin.field(fix)
	if err != nil {
		return
	}

	mask := 1<<bits - 1
	current := int(data[0])<<16 | int(data[1])<<8 | int(data[2])
	field := current & mask
	field += value
	if field < 0 || field > mask {
		err = ErrFixupRange
		return
	}

	current = current&^mask | field
	data[0] = byte(current >> 16)
	data[1] = byte(current >> 8)
	data[2] = byte(current)
	return
}

// Merge appends the segments of other, which must already be placed.
func (bin *Binary) Merge(other *Binary) {
	bin.Segments = append(bin.Segments, other.Segments...)
	bin.Sort()
}
