package asm

import (
	"bufio"
	"encoding/hex"
	"io"
	"log"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/ezrec/sicxe/cpu"
)

var identRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// importNames and exportNames are the linkage declaration keywords.
var (
	importNames = map[string]bool{"IMPORT": true, "EXTREF": true}
	exportNames = map[string]bool{"EXPORT": true, "EXTDEF": true}
)

// isIdent returns true if the word is a valid symbol name.
func isIdent(word string) bool {
	return identRegexp.MatchString(word)
}

// isKeyword returns true if the word is a mnemonic, directive, or linkage
// declaration.
func isKeyword(word string) bool {
	word = strings.TrimLeft(word, "+*")
	if _, ok := cpu.Lookup(word); ok {
		return true
	}
	if _, ok := ParseDirective(word); ok {
		return true
	}
	upper := strings.ToUpper(word)
	return importNames[upper] || exportNames[upper]
}

// splitComment separates code from a ';' comment, honoring quotes.
func splitComment(text string) (code, comment string) {
	quoted := false
	for n, r := range text {
		switch {
		case r == '\'':
			quoted = !quoted
		case r == ';' && !quoted:
			return text[:n], strings.TrimSpace(text[n+1:])
		}
	}
	return text, ""
}

// splitFields splits code on whitespace, honoring quotes.
func splitFields(code string) (fields []string, err error) {
	var sb strings.Builder
	quoted := false
	for _, r := range code {
		switch {
		case r == '\'':
			quoted = !quoted
			sb.WriteRune(r)
		case !quoted && unicode.IsSpace(r):
			if sb.Len() > 0 {
				fields = append(fields, sb.String())
				sb.Reset()
			}
		default:
			sb.WriteRune(r)
		}
	}
	if quoted {
		err = ErrConstantInvalid
		return
	}
	if sb.Len() > 0 {
		fields = append(fields, sb.String())
	}
	return
}

// parseConstant converts a C'..' or X'..' constant into bytes.
func parseConstant(text string) (data []byte, err error) {
	if len(text) < 3 || text[1] != '\'' || text[len(text)-1] != '\'' {
		err = ErrConstantInvalid
		return
	}
	body := text[2 : len(text)-1]
	switch text[0] {
	case 'C', 'c':
		if len(body) == 0 {
			err = ErrConstantInvalid
			return
		}
		data = []byte(body)
	case 'X', 'x':
		if len(body) == 0 || len(body)%2 != 0 {
			err = ErrConstantInvalid
			return
		}
		data, err = hex.DecodeString(body)
		if err != nil {
			err = ErrConstantInvalid
			return
		}
	default:
		err = ErrConstantInvalid
	}
	return
}

// parseNumber converts a decimal, or 0x prefixed hexadecimal, number.
// Leading zeros are decimal.
func parseNumber(text string) (value int, ok bool) {
	sign := ""
	if strings.HasPrefix(text, "-") || strings.HasPrefix(text, "+") {
		sign, text = text[:1], text[1:]
	}

	base := 10
	if len(text) > 2 && strings.EqualFold(text[:2], "0x") {
		base = 16
		text = text[2:]
	}

	if len(text) == 0 || strings.ContainsAny(text, "+-_") {
		return
	}

	v64, err := strconv.ParseInt(sign+text, base, 32)
	if err != nil {
		return
	}
	return int(v64), true
}

// parseRegister converts a register operand.
func parseRegister(text string) (opnd Operand, err error) {
	reg, ok := cpu.ParseRegister(text)
	if !ok {
		err = ErrRegisterInvalid
		return
	}
	opnd = Operand{Kind: OPERAND_REGISTER, Value: int(reg), HasValue: true}
	return
}

// parseCount converts a numeric count operand.
func parseCount(text string) (opnd Operand, err error) {
	value, ok := parseNumber(text)
	if !ok {
		err = ErrCountInvalid
		return
	}
	opnd = Operand{Kind: OPERAND_ADDRESS, Value: value, HasValue: true}
	return
}

// parseAddress converts a memory operand.
func parseAddress(text string) (opnd Operand, err error) {
	opnd.Kind = OPERAND_ADDRESS

	if n := len(text); n > 2 && strings.EqualFold(text[n-2:], ",X") {
		opnd.Indexed = true
		text = text[:n-2]
	}

	switch {
	case strings.HasPrefix(text, "#"):
		opnd.Immediate = true
		text = text[1:]
	case strings.HasPrefix(text, "@"):
		opnd.Indirect = true
		text = text[1:]
	case strings.HasPrefix(text, "="):
		opnd.Literal = text
		_, err = parseConstant(text[1:])
		if err != nil {
			err = ErrLiteralInvalid
		}
		return
	}

	switch {
	case len(text) == 0:
		err = ErrOperandInvalid
	case isIdent(text):
		opnd.Symbol = text
	default:
		if value, ok := parseNumber(text); ok {
			opnd.Value = value
			opnd.HasValue = true
			break
		}
		opnd.Expr = text
	}

	return
}

// parseOperands converts the operand field of an instruction.
func parseOperands(op *cpu.Op, text string) (opnds []Operand, err error) {
	var opnd, opnd2 Operand

	switch op.Operand {
	case cpu.OPERAND_NONE:
		return
	case cpu.OPERAND_R1:
		opnd, err = parseRegister(text)
		opnds = []Operand{opnd}
	case cpu.OPERAND_R1R2, cpu.OPERAND_R1N:
		parts := strings.Split(text, ",")
		if len(parts) != 2 {
			err = ErrOperandInvalid
			return
		}
		opnd, err = parseRegister(parts[0])
		if err != nil {
			return
		}
		if op.Operand == cpu.OPERAND_R1N {
			opnd2, err = parseCount(parts[1])
		} else {
			opnd2, err = parseRegister(parts[1])
		}
		opnds = []Operand{opnd, opnd2}
	case cpu.OPERAND_N:
		opnd, err = parseCount(text)
		opnds = []Operand{opnd}
	case cpu.OPERAND_M:
		opnd, err = parseAddress(text)
		opnds = []Operand{opnd}
	}

	if err != nil {
		opnds = nil
	}

	return
}

// parseLine converts a single source line into zero or more program lines.
func parseLine(lineno int, text string) (lines []Line, err error) {
	code, comment := splitComment(text)
	source := strings.TrimSpace(code)
	if len(source) == 0 || strings.HasPrefix(source, ".") {
		return
	}

	fields, err := splitFields(source)
	if err != nil {
		return
	}

	pos := Position{LineNo: lineno, Source: source, Comment: comment}

	var label string
	if !isKeyword(fields[0]) {
		label = fields[0]
		fields = fields[1:]
		if !isIdent(label) {
			err = ErrLabelInvalid
			return
		}
	}

	if len(fields) == 0 || !isKeyword(fields[0]) {
		err = ErrMnemonicUnknown
		return
	}

	mnemonic := fields[0]
	var operand string
	if len(fields) > 1 {
		operand = fields[1]
	}

	// Anything after the operand field is commentary.
	extra := func(from int) {
		if len(fields) > from {
			pos.Comment = strings.TrimSpace(strings.Join(fields[from:], " ") + " " + pos.Comment)
		}
	}

	upper := strings.ToUpper(mnemonic)
	switch {
	case importNames[upper] || exportNames[upper]:
		if len(label) != 0 {
			err = ErrLabelProhibited
			return
		}
		if len(operand) == 0 {
			err = ErrOperandMissing
			return
		}
		extra(2)
		for _, name := range strings.Split(operand, ",") {
			if !isIdent(name) {
				err = ErrLabelInvalid
				return
			}
			if importNames[upper] {
				lines = append(lines, &Import{Position: pos, Label: name})
			} else {
				lines = append(lines, &Export{Position: pos, Label: name})
			}
		}
		return
	}

	if kind, ok := ParseDirective(mnemonic); ok {
		switch kind {
		case DIRECTIVE_LTORG, DIRECTIVE_NOBASE:
			operand = ""
			extra(1)
		case DIRECTIVE_END:
			extra(2)
		default:
			if len(operand) == 0 {
				err = ErrOperandMissing
				return
			}
			extra(2)
		}

		switch kind {
		case DIRECTIVE_EQU:
			if len(label) == 0 {
				err = ErrLabelRequired
				return
			}
		case DIRECTIVE_BYTE:
			_, err = parseConstant(operand)
			if err != nil {
				return
			}
		case DIRECTIVE_START:
			_, err = strconv.ParseUint(operand, 16, 20)
			if err != nil {
				err = ErrOperandInvalid
				return
			}
		}

		lines = append(lines, &Directive{Position: pos, Kind: kind, Label: label, Operand: operand})
		return
	}

	ins := &Instruction{Position: pos, Label: label}
	switch mnemonic[0] {
	case '+':
		ins.Extended = true
		mnemonic = mnemonic[1:]
	case '*':
		ins.Legacy = true
		mnemonic = mnemonic[1:]
	}

	op, ok := cpu.Lookup(mnemonic)
	if !ok {
		err = ErrMnemonicUnknown
		return
	}
	ins.Op = op

	switch {
	case ins.Extended && !op.Extendable():
		err = ErrExtendedInvalid
		return
	case ins.Legacy && !op.Extendable():
		err = ErrLegacyInvalid
		return
	}

	if op.Operand == cpu.OPERAND_NONE {
		extra(1)
	} else {
		if len(operand) == 0 {
			err = ErrOperandMissing
			return
		}
		extra(2)
		ins.Operands, err = parseOperands(op, operand)
		if err != nil {
			return
		}
		if ins.Legacy && (ins.Operands[0].Immediate || ins.Operands[0].Indirect) {
			err = ErrLegacyInvalid
			return
		}
	}

	lines = append(lines, ins)
	return
}

// Parse reads assembly source into a Program.
//
// Parse errors are accumulated; the returned Program holds every line
// that parsed successfully.
func (asm *Assembler) Parse(input io.Reader) (prog Program, err error) {
	scanner := bufio.NewScanner(input)

	var errs ErrList
	var lineno int

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		lines, lineErr := parseLine(lineno, text)
		if lineErr != nil {
			errs = append(errs, &ErrSyntax{LineNo: lineno, Line: strings.TrimSpace(text), Err: lineErr})
			continue
		}

		prog = append(prog, lines...)
	}

	if scanErr := scanner.Err(); scanErr != nil {
		errs = append(errs, scanErr)
	}

	err = errs.Err()
	return
}
