package emulator

import (
	"errors"

	"github.com/ezrec/sicxe/cpu"
	"github.com/ezrec/sicxe/translate"
)

var f = translate.From

var (
	ErrIllegalInstruction = errors.New(f("illegal instruction"))
	ErrUnsupported        = errors.New(f("unsupported instruction"))
	ErrMemoryFault        = errors.New(f("memory fault"))
	ErrDivideByZero       = errors.New(f("divide by zero"))
	ErrStepLimit          = errors.New(f("step limit"))
	ErrLoadRange          = errors.New(f("segment outside of memory"))
)

var resultErrors = map[cpu.RunResult]error{
	cpu.RUN_ILLEGAL_INSTRUCTION: ErrIllegalInstruction,
	cpu.RUN_UNSUPPORTED:         ErrUnsupported,
	cpu.RUN_MEMORY_FAULT:        ErrMemoryFault,
	cpu.RUN_DIVIDE_BY_ZERO:      ErrDivideByZero,
	cpu.RUN_STEP_LIMIT:          ErrStepLimit,
}

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	Address int
	LineNo  int
	Result  cpu.RunResult
}

func (err *ErrRuntime) Error() string {
	if err.LineNo == 0 {
		return f("%06X %v", err.Address, err.Result)
	}
	return f("line %d %06X %v", err.LineNo, err.Address, err.Result)
}

func (err *ErrRuntime) Unwrap() error {
	return resultErrors[err.Result]
}
