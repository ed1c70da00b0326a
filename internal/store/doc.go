// Package store keeps a SQLite history of builds and analysis reports.
//
// Three tables:
//   - builds: one row per BuildVariants call, with its full JSON result
//   - artifacts: the variants a build published, with their digests
//   - reports: analysis, comparison and disassembly results, tagged with the
//     digest of the artifact they describe
//
// # Ordering
//
// Every row carries a seq assigned by the store at write time. Queries order
// by seq only (newest first for listings), never by timestamps.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - NORMAL synchronous: Balance durability/performance
//   - 5s busy timeout: Handle lock contention gracefully
//   - Foreign keys: Enforced for artifact -> build links
//   - Single connection: SQLite supports one writer at a time
package store
