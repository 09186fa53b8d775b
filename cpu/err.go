package cpu

import (
	"github.com/ezrec/sicxe/translate"
)

var f = translate.From

var (
	// Decode errors
	ErrOpcodeUnknown = translate.Error("opcode unknown")
	ErrTruncated     = translate.Error("instruction truncated")
	ErrFlagsInvalid  = translate.Error("flags invalid")

	// Encode errors
	ErrUnreachable    = translate.Error("operand unreachable by any addressing mode")
	ErrImmediateRange = translate.Error("immediate value out of range")
	ErrExtendedRange  = translate.Error("extended address out of range")
	ErrLegacyRange    = translate.Error("legacy address out of range")
	ErrDirectRange    = translate.Error("absolute address out of direct range, use extended format")
	ErrFieldRange     = translate.Error("register field out of range")
	ErrFormatInvalid  = translate.Error("format invalid")
	ErrModeInvalid    = translate.Error("addressing mode invalid")
)

// ErrAddressing reports an operand that could not be encoded.
type ErrAddressing struct {
	Mnemonic string
	Target   int
	Err      error
}

func (err *ErrAddressing) Error() string {
	return f("%v target %#x: %v", err.Mnemonic, err.Target, err.Err)
}

func (err *ErrAddressing) Unwrap() error {
	return err.Err
}

// ErrDecode reports undecodable bytes at an address.
type ErrDecode struct {
	Address int
	Byte    byte
	Err     error
}

func (err *ErrDecode) Error() string {
	return f("%06X: byte 0x%02X %v", err.Address, err.Byte, err.Err)
}

func (err *ErrDecode) Unwrap() error {
	return err.Err
}
