// Package store houses implementations of core.ResultStore plus query
// helpers over any store. The interface itself lives in core so that the
// runner never depends on a concrete backend.
//
// Backends:
//   - InMemoryStore (this package): process local, for tests and demos
//   - filestore: one JSON record and one summary text file per session
//   - badgerstore: embedded key/value database
//
// Only the wiring layer decides which implementation to instantiate.
package store
