// Package parse turns the text output of GNU binutils into structured
// reports.
//
// Each parser reads one tool's stdout for one variant:
//
//	Disassembly  objdump -d -C --no-show-raw-insn
//	Symbols      nm -C --size-sort
//	Sections     readelf -S -W
//	Size         size -A (or plain size)
//
// The grammars are the fixed field orders those tools print in the C locale.
// They are deliberately not widened: a line that does not fit is classified
// rather than guessed at. Every report carries LineStats so format drift in
// the toolchain shows up as a growing Malformed count instead of silently
// missing data.
package parse
