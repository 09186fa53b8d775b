// Package cpu implements the SIC/XE instruction catalog, the instruction
// codec, and a virtual machine that executes assembled SIC/XE binaries.
//
// The machine has six 24-bit integer registers (A, X, L, B, S, T), a 48-bit
// floating point accumulator (F), a program counter (PC), and a status word
// (SW) holding the three-valued condition code. Memory is byte addressed,
// big-endian, with 3-byte words.
//
// The codec is shared by the assembler, the disassembler and the machine:
// Encode selects among immediate, extended, PC-relative and base-relative
// addressing, and Decode is its inverse.
package cpu
