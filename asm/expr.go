package asm

import (
	"fmt"
	"regexp"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// locationName is bound to the location counter when '*' appears as an
// operand inside a larger expression.
const locationName = "__locctr__"

// relocationShift is the displacement applied to relative symbols when
// classifying an expression as relocatable or absolute.
const relocationShift = 0x1000000

var (
	exprIdentRegexp = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*`)
	exprDivRegexp   = regexp.MustCompile(`/+`)
)

// exprSymbols returns the symbol names referenced by an expression.
func exprSymbols(expr string) (names []string) {
	if expr == "*" {
		return
	}
	return exprIdentRegexp.FindAllString(expr, -1)
}

// locationRefs rewrites every '*' in operand position (at the start, or
// after an operator or '(') as locationName. Other '*' are multiplication.
func locationRefs(expr string) (text string, found bool) {
	var sb strings.Builder
	operand := true
	for _, c := range expr {
		switch {
		case c == ' ' || c == '\t':
		case c == '*' && operand:
			sb.WriteString(locationName)
			found = true
			operand = false
			continue
		case strings.ContainsRune("+-*/%(", c):
			operand = true
		default:
			operand = false
		}
		sb.WriteRune(c)
	}
	text = sb.String()
	return
}

// evaluate computes an integer expression, with relative symbols displaced
// by shift. The expression '*' is the current location.
func (a *assembly) evaluate(expr string, here int, shift int) (value int, err error) {
	if expr == "*" {
		value = here + shift
		return
	}

	if v, ok := parseNumber(expr); ok {
		value = v
		return
	}

	pred := starlark.StringDict{}
	for _, name := range exprSymbols(expr) {
		sym, ok := a.symbols.Lookup(name)
		switch {
		case ok && sym.Imported:
			err = &ErrSymbol{Name: name, Err: ErrExternalExpression}
			return
		case !ok || !sym.Defined:
			err = &ErrSymbol{Name: name, Err: ErrSymbolUndefined}
			return
		case sym.Absolute:
			pred[name] = starlark.MakeInt(sym.Address)
		default:
			pred[name] = starlark.MakeInt(sym.Address + shift)
		}
	}

	text, found := locationRefs(expr)
	if found {
		pred[locationName] = starlark.MakeInt(here + shift)
	}

	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	prog := "rc=" + exprDivRegexp.ReplaceAllString(text, "//") + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrExpressionInvalid, err)
		return
	}
	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = ErrExpressionInvalid
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrExpressionInvalid
		return
	}
	value = int(st_int64)
	return
}

// resolve computes an expression, and determines if its value moves with
// the load address of the module.
func (a *assembly) resolve(expr string, here int) (value int, relocatable bool, err error) {
	value, err = a.evaluate(expr, here, 0)
	if err != nil {
		return
	}
	shifted, err := a.evaluate(expr, here, relocationShift)
	if err != nil {
		return
	}

	switch shifted - value {
	case 0:
	case relocationShift:
		relocatable = true
	default:
		err = ErrSymbolRelocation
	}
	return
}
