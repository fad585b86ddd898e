// Package agent contains the turn executor: the component that turns one
// participant's persona plus the discussion so far into a single message.
//
// For every turn the executor:
//
//  1. Renders the turn prompt (persona, topic, recent messages, length bounds)
//  2. Calls the model under a per-call deadline, charging the session CallBudget
//  3. Validates the reply length in characters
//  4. Retries with bounded exponential backoff on remote failures and with an
//     emphasized minimum on too-short replies
//
// Over-long replies are truncated to the maximum instead of retried. When the
// retry budget is exhausted the best non-empty reply is accepted as degraded;
// only a turn without any usable text fails.
//
// Design principles:
//   - No hidden global state; the call budget and logger are injected
//   - Deterministic given the model's replies; randomness never enters here
//   - The executor does not touch the transcript; the scheduler owns it
package agent
