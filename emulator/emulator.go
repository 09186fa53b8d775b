// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"iter"
	"log"
	"maps"

	"github.com/ezrec/sicxe/asm"
	"github.com/ezrec/sicxe/cpu"
	"github.com/ezrec/sicxe/internal"
	"github.com/ezrec/sicxe/object"
)

var _emulator_defines = map[string]int{
	"MEMORY_SIZE": cpu.MEMORY_SIZE,
	"WORD_SIZE":   cpu.WORD_SIZE,
}

var _condition_defines = map[string]int{
	"CC_EQ": int(cpu.CC_EQ),
	"CC_LT": int(cpu.CC_LT),
	"CC_GT": int(cpu.CC_GT),
}

// source is an assembly listing at its load displacement.
type source struct {
	listing *asm.Listing
	delta   int
}

// Emulator state. Machine + loaded program listings.
type Emulator struct {
	Verbose      bool // If set, enables verbose logging.
	*cpu.Machine      // Reference to the machine simulation.

	sources []source
}

// NewEmulator creates a new emulator with 'size' bytes of memory, or the
// full address space if size is zero.
func NewEmulator(size int) (emu *Emulator) {
	if size <= 0 {
		size = cpu.MEMORY_SIZE
	}

	emu = &Emulator{
		Machine: cpu.NewMachine(size),
	}

	return
}

// Defines returns an iterator over all of the defines the emulator offers
// to assembled programs.
func (emu *Emulator) Defines() iter.Seq2[string, int] {
	return internal.Concat2(maps.All(_emulator_defines),
		maps.All(_condition_defines),
	)
}

// AddListing registers a listing for line number lookups. Delta is the
// displacement between the listing addresses and the load addresses.
func (emu *Emulator) AddListing(listing *asm.Listing, delta int) {
	emu.sources = append(emu.sources, source{listing: listing, delta: delta})
}

// Load resets the machine, copies every segment into memory, and sets
// the program counter to the entry point.
func (emu *Emulator) Load(bin *object.Binary) (err error) {
	emu.Machine.Verbose = false
	emu.Machine.Reset()

	for _, seg := range bin.Segments {
		if !emu.Machine.Write(seg.Base, seg.Data) {
			err = &object.ErrSegment{Segment: seg, Err: ErrLoadRange}
			return
		}
	}

	emu.Machine.SetRegister(cpu.REG_PC, uint32(bin.Entry))

	if emu.Verbose {
		log.Printf("emulator: loaded %d bytes, entry %06X", bin.Size(), bin.Entry)
	}

	emu.Machine.Verbose = emu.Verbose

	return
}

// Ticks returns the total instructions executed since a load.
func (emu *Emulator) Ticks() int {
	return emu.Machine.Ticks
}

// LineNo returns the source line number of the instruction at PC, or zero.
func (emu *Emulator) LineNo() int {
	pc := emu.Machine.PC()
	for _, src := range emu.sources {
		line, ok := src.listing.Debug(pc - src.delta)
		if ok {
			return line.LineNo
		}
	}

	return 0
}

// Tick executes a single instruction.
func (emu *Emulator) Tick() (done bool, err error) {
	emu.Machine.Verbose = emu.Verbose

	address := emu.Machine.PC()
	lineno := emu.LineNo()

	result := emu.Machine.Step()
	switch result {
	case cpu.RUN_CONTINUE:
	case cpu.RUN_HALTED:
		done = true
	default:
		err = &ErrRuntime{Address: address, LineNo: lineno, Result: result}
	}

	return
}

// Run ticks until the program halts, fails, or 'limit' instructions have
// executed when limit is positive.
func (emu *Emulator) Run(limit int) (err error) {
	for n := 0; limit <= 0 || n < limit; n++ {
		var done bool
		done, err = emu.Tick()
		if done || err != nil {
			return
		}
	}

	err = &ErrRuntime{Address: emu.Machine.PC(), LineNo: emu.LineNo(), Result: cpu.RUN_STEP_LIMIT}
	return
}
