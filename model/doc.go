// Package model defines the provider‑agnostic abstractions and concrete
// helpers for interacting with text generation models inside roundtable.
//
// Core goals:
//   - A single synchronous Generate call (prompt in, text out)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate deterministic testing (StubModel)
//
// Providers (OpenAI, Anthropic, Gemini) implement the Model interface from
// this package so higher layers (turn executor, summarizer) remain decoupled
// from vendor SDKs. Retries and per-call deadlines are applied by the
// callers, not by the providers.
package model
