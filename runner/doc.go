// Package runner orchestrates complete discussion sessions.
//
// A Runner validates a Request, selects participants from a persona
// registry, drives the rounds through the engine scheduler, asks the
// summarizer for a summary, derives statistics and hands the assembled
// core.SessionResult to a result store.
//
// Every Run owns its transcript, participants and call budget, so one
// Runner can serve many sessions at once. Running sessions can be stopped
// with Cancel; their partial results are still summarized (when the context
// allows) and persisted.
package runner
