package asm

import (
	"fmt"
	"io"
	"strings"
)

// ListingLine is the assembled form of one program line.
type ListingLine struct {
	LineNo  int    // Source line number.
	Address int    // Absolute address of the line.
	Data    []byte // Emitted bytes, if any.
	Source  string // Source text.
	Comment string // Source comment.
}

// Listing is the assembled program, in source order.
type Listing struct {
	Lines []ListingLine
}

// Debug finds the line that emitted the byte at address.
func (lst *Listing) Debug(address int) (line ListingLine, ok bool) {
	for _, ll := range lst.Lines {
		if address >= ll.Address && address < ll.Address+len(ll.Data) {
			line = ll
			ok = true
			break
		}
	}

	return
}

// String formats a single listing line.
func (ll ListingLine) String() string {
	data := fmt.Sprintf("%X", ll.Data)
	if len(data) > 8 {
		data = data[:8] + "+"
	}
	text := fmt.Sprintf("%4d %06X %-9s %v", ll.LineNo, ll.Address, data, ll.Source)
	if len(ll.Comment) > 0 {
		text += " ; " + ll.Comment
	}
	return strings.TrimRight(text, " ")
}

// Write writes the listing as text.
func (lst *Listing) Write(w io.Writer) (err error) {
	for _, ll := range lst.Lines {
		_, err = fmt.Fprintln(w, ll.String())
		if err != nil {
			return
		}
	}
	return
}
