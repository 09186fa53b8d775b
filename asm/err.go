package asm

import (
	"errors"
	"strings"

	"github.com/ezrec/sicxe/translate"
)

var f = translate.From

var (
	// Parse errors
	ErrLabelInvalid      = errors.New(f("label invalid"))
	ErrMnemonicUnknown   = errors.New(f("mnemonic unknown"))
	ErrOperandMissing    = errors.New(f("operand missing"))
	ErrOperandInvalid    = errors.New(f("operand invalid"))
	ErrRegisterInvalid   = errors.New(f("register invalid"))
	ErrCountInvalid      = errors.New(f("count invalid"))
	ErrLiteralInvalid    = errors.New(f("literal invalid"))
	ErrConstantInvalid   = errors.New(f("constant invalid"))
	ErrExpressionInvalid = errors.New(f("expression invalid"))
	ErrExtendedInvalid   = errors.New(f("extended format invalid for mnemonic"))
	ErrLegacyInvalid     = errors.New(f("legacy format invalid for mnemonic"))

	// Symbol errors
	ErrSymbolDuplicate  = errors.New(f("symbol duplicated"))
	ErrSymbolUndefined  = errors.New(f("symbol undefined"))
	ErrSymbolRedefined  = errors.New(f("symbol address already assigned"))
	ErrSymbolImported   = errors.New(f("imported symbol defined locally"))
	ErrSymbolRelocation = errors.New(f("expression mixes relocatable terms"))

	// Structural errors
	ErrBeforeStart     = errors.New(f("statement before START"))
	ErrAfterEnd        = errors.New(f("statement after END"))
	ErrStartDuplicate  = errors.New(f("START duplicated"))
	ErrStartMissing    = errors.New(f("START missing"))
	ErrLabelRequired   = errors.New(f("label required"))
	ErrLabelProhibited = errors.New(f("label prohibited"))

	// Addressing errors
	ErrExternalFormat     = errors.New(f("external reference requires extended format"))
	ErrExternalExpression = errors.New(f("external reference in expression"))
	ErrWordRange          = errors.New(f("word value out of range"))
)

// ErrSyntax attaches the source line to an error.
type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err *ErrSyntax) Unwrap() error {
	return err.Err
}

// ErrSymbol is a symbol definition or resolution error.
type ErrSymbol struct {
	Name string
	Err  error
}

func (err *ErrSymbol) Error() string {
	return f("symbol %v %v", err.Name, err.Err)
}

func (err *ErrSymbol) Unwrap() error {
	return err.Err
}

// ErrModule attaches a module name to an assembly error.
type ErrModule struct {
	Name string
	Err  error
}

func (err *ErrModule) Error() string {
	return f("%v: %v", err.Name, err.Err)
}

func (err *ErrModule) Unwrap() error {
	return err.Err
}

// ErrList is a set of accumulated errors.
type ErrList []error

func (el ErrList) Error() string {
	var sb strings.Builder
	sb.WriteString(f("%d errors", len(el)))
	for _, err := range el {
		sb.WriteString("\n\t")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

func (el ErrList) Unwrap() []error {
	return el
}

// Err returns nil if the list is empty, or the list itself.
func (el ErrList) Err() error {
	if len(el) == 0 {
		return nil
	}
	return el
}
