// Package core provides the foundational domain types and interfaces used by
// roundtable. It defines the core abstractions for:
//
//   - Personas (immutable role/personality templates)
//   - Participants (a persona bound to a fixed turn position in a session)
//   - Messages and the append-only Transcript of a discussion
//   - Constraints (length bounds, participant and round counts)
//   - SessionResult (the aggregated outcome of one discussion)
//   - CallBudget (an upper bound on remote generation calls)
//
// The package keeps implementation concerns (prompting, scheduling,
// persistence, remote models) out of scope, exposing small interfaces such as
// PersonaRegistry and ResultStore so that backends can be swapped freely.
package core
