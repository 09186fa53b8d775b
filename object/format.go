package object

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// OBJECT_TERMINATOR ends every block of an object file.
const OBJECT_TERMINATOR = "!"

// Write emits the binary in the object text format.
//
// Each segment is written as a block of three lines: the 6 hex digit base
// address, the uppercase hex data, and a terminating "!". The final block
// carries the entry point in place of a base address, followed by an empty
// data line and the terminator.
func Write(w io.Writer, bin *Binary) (err error) {
	bw := bufio.NewWriter(w)

	bin.Sort()
	for _, seg := range bin.Segments {
		if len(seg.Data) == 0 {
			continue
		}
		_, err = fmt.Fprintf(bw, "%06X\n%s\n%s\n", seg.Base, strings.ToUpper(hex.EncodeToString(seg.Data)), OBJECT_TERMINATOR)
		if err != nil {
			return
		}
	}

	_, err = fmt.Fprintf(bw, "%06X\n\n%s\n", bin.Entry, OBJECT_TERMINATOR)
	if err != nil {
		return
	}

	return bw.Flush()
}

// Read parses an object file written by Write.
func Read(r io.Reader) (bin *Binary, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, 4<<20)

	var lines []string
	var lineno int
	var line string

	defer func() {
		if err != nil {
			err = &ErrLine{LineNo: lineno, Line: line, Err: err}
			bin = nil
		}
	}()

	bin = &Binary{}

	for scanner.Scan() {
		lineno++
		line = strings.TrimSpace(scanner.Text())
		if line != OBJECT_TERMINATOR {
			lines = append(lines, line)
			continue
		}

		if len(lines) != 2 {
			err = ErrObjectFormat
			return
		}

		var address uint64
		address, err = strconv.ParseUint(lines[0], 16, 24)
		if err != nil {
			err = ErrObjectFormat
			return
		}

		var data []byte
		data, err = hex.DecodeString(lines[1])
		if err != nil {
			err = ErrObjectFormat
			return
		}

		bin.Segments = append(bin.Segments, Segment{Base: int(address), Data: data})
		lines = lines[:0]
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if len(lines) != 0 {
		err = ErrObjectFormat
		return
	}

	// The last block holds the entry point.
	count := len(bin.Segments)
	if count == 0 || len(bin.Segments[count-1].Data) != 0 {
		err = ErrObjectTrailer
		return
	}

	bin.Entry = bin.Segments[count-1].Base
	bin.Segments = bin.Segments[:count-1]
	bin.Sort()

	err = bin.Validate()
	return
}
