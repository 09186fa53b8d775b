package object

import (
	"github.com/ezrec/sicxe/translate"
)

var f = translate.From

var (
	ErrOverlap       = translate.Error("segments overlap")
	ErrFixupAddress  = translate.Error("fixup outside of any segment")
	ErrFixupRange    = translate.Error("fixup value out of range")
	ErrObjectFormat  = translate.Error("object format invalid")
	ErrObjectTrailer = translate.Error("object missing entry point")
)

// ErrLine reports a malformed line of an object file.
type ErrLine struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrLine) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err *ErrLine) Unwrap() error {
	return err.Err
}

// ErrSegment reports a problem with a specific segment.
type ErrSegment struct {
	Segment Segment
	Err     error
}

func (err *ErrSegment) Error() string {
	return f("segment %06X+%d: %v", err.Segment.Base, len(err.Segment.Data), err.Err)
}

func (err *ErrSegment) Unwrap() error {
	return err.Err
}
