// Package disasm decodes SIC/XE machine code back into instructions.
package disasm

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/ezrec/sicxe/cpu"
	"github.com/ezrec/sicxe/object"
	"github.com/ezrec/sicxe/translate"
)

var f = translate.From

var (
	ErrWindow = errors.New(f("window outside of data"))
)

// Policy selects how undecodable bytes are handled.
type Policy int

const (
	POLICY_STRICT  = Policy(0) // Stop at the first undecodable byte.
	POLICY_LENIENT = Policy(1) // Skip one byte and resynchronize.
)

// Disassembler decodes byte windows into instructions.
type Disassembler struct {
	Verbose bool        // If set, logs skipped bytes.
	Policy  Policy      // Error policy.
	Context cpu.Context // Base register state; base relative operands stay relative without one.
}

// decode disassembles every byte of window, located at address.
func (dis *Disassembler) decode(window []byte, address int) (code []cpu.Instruction, err error) {
	for pos := 0; pos < len(window); {
		ins, decErr := cpu.Decode(window[pos:], address+pos, dis.Context)
		if decErr != nil {
			if dis.Policy == POLICY_STRICT {
				err = decErr
				return
			}
			if dis.Verbose {
				log.Printf("disasm: %v", decErr)
			}
			pos += 1
			continue
		}
		code = append(code, ins)
		pos += ins.Len()
	}

	return
}

// Disassemble decodes data[offset:offset+length]. Each instruction's
// address is its index in data. In strict mode, the instructions decoded
// before an error are returned along with the error.
func (dis *Disassembler) Disassemble(data []byte, offset int, length int) (code []cpu.Instruction, err error) {
	if offset < 0 || length < 0 || offset+length > len(data) {
		err = ErrWindow
		return
	}

	return dis.decode(data[offset:offset+length], offset)
}

// Binary decodes every segment of an object binary.
func (dis *Disassembler) Binary(bin *object.Binary) (code []cpu.Instruction, err error) {
	for _, seg := range bin.Segments {
		var segCode []cpu.Instruction
		segCode, err = dis.decode(seg.Data, seg.Base)
		code = append(code, segCode...)
		if err != nil {
			return
		}
	}

	return
}

// Memory reads bytes by address.
type Memory interface {
	Read(address int, size int) (data []byte, ok bool)
}

// Write formats decoded instructions as an address, hex bytes if mem is
// not nil, and assembly text per line.
func Write(w io.Writer, code []cpu.Instruction, mem Memory) (err error) {
	for _, ins := range code {
		var hex string
		if mem != nil {
			data, _ := mem.Read(ins.Address, ins.Len())
			hex = fmt.Sprintf("%X", data)
		}
		_, err = fmt.Fprintf(w, "%06X  %-8s  %v\n", ins.Address, hex, ins)
		if err != nil {
			return
		}
	}

	return
}
