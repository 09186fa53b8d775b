package asm

import (
	"fmt"
)

// literalPool queues literal operands until the next flush point.
type literalPool struct {
	pool    int
	queue   []string
	names   map[string]string // literal text to pending symbol name
	flushed map[string]bool   // symbol names already placed
}

// reference returns the symbol name for a literal, queueing it if new.
func (lp *literalPool) reference(text string) (name string) {
	name, ok := lp.names[text]
	if ok {
		return
	}

	name = text
	if lp.flushed[name] {
		name = fmt.Sprintf("%v#%d", text, lp.pool)
	}

	lp.names[text] = name
	lp.queue = append(lp.queue, text)
	return
}

// flush emits a BYTE directive for every queued literal.
func (lp *literalPool) flush(pos Position) (lines []Line) {
	for _, text := range lp.queue {
		name := lp.names[text]
		lines = append(lines, &Directive{
			Position: Position{LineNo: pos.LineNo, Source: text},
			Kind:     DIRECTIVE_BYTE,
			Label:    name,
			Operand:  text[1:],
			Literal:  true,
		})
		lp.flushed[name] = true
	}

	lp.pool += 1
	lp.queue = lp.queue[:0]
	clear(lp.names)
	return
}

// FlattenLiterals returns a new Program where every literal operand is
// replaced by a reference to a synthetic symbol, and the literal values
// are placed as BYTE directives after each LTORG, or before END.
//
// The input Program is not modified.
func FlattenLiterals(prog Program) (flat Program) {
	lp := &literalPool{
		names:   map[string]string{},
		flushed: map[string]bool{},
	}

	for _, line := range prog.Clone() {
		switch l := line.(type) {
		case *Instruction:
			for n, opnd := range l.Operands {
				if len(opnd.Literal) == 0 {
					continue
				}
				l.Operands[n] = Operand{
					Kind:    OPERAND_ADDRESS,
					Symbol:  lp.reference(opnd.Literal),
					Indexed: opnd.Indexed,
				}
			}
		case *Directive:
			switch l.Kind {
			case DIRECTIVE_LTORG:
				flat = append(flat, l)
				flat = append(flat, lp.flush(l.Position)...)
				continue
			case DIRECTIVE_END:
				flat = append(flat, lp.flush(l.Position)...)
			}
		}
		flat = append(flat, line)
	}

	if len(lp.queue) > 0 {
		var pos Position
		if len(flat) > 0 {
			pos = flat[len(flat)-1].Pos()
		}
		flat = append(flat, lp.flush(pos)...)
	}

	return
}
