// Package toolchain runs the external toolchain utilities the engine depends on.
//
// A Runner never returns an error for a failing tool. Every run produces a
// Result carrying stdout, stderr and the exit status, and the caller decides
// what a failure means for its request. Check turns a failed Result into a
// *Failure error when that is the desired shape.
//
// # Bounded waits
//
// Every Command carries its own timeout. ExecRunner places the child in its
// own process group and kills the whole group when the timeout fires, then
// reaps it, so no orphaned compiler or disassembler outlives the request.
//
// # Output format
//
// Tools are run with LC_ALL=C. The parsers in internal/parse match the
// untranslated GNU binutils output and would silently miss localized text.
package toolchain
