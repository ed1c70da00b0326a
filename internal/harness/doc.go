// Package harness replays recorded toolchain transcripts through the real
// analyzer and comparator and checks the outcome.
//
// A scenario file holds, per optimization level, the captured stdout of
// objdump, nm, readelf and size (or a recorded failure, or a note that the
// artifact is missing). Run feeds those transcripts to a
// toolchain.ReplayRunner, so no binutils are needed, then evaluates the
// scenario's assertions against the comparison report.
//
// Scenarios catch toolchain format drift: capture fresh output from a new
// binutils release into a scenario and `objscope check` tells whether the
// parsers still understand it.
//
// # Assertion types
//
//   - facet_present / facet_absent: a comparison facet is (not) in the report
//   - instruction_reduction: expected instruction delta and/or percentage
//   - size_reduction: expected size delta and/or percentage
//   - missing_artifact: the report lists the level as missing
package harness
