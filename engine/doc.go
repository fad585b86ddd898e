// Package engine implements the round scheduler of roundtable.
//
// The Scheduler drives a discussion through a fixed number of rounds. Within
// every round each participant speaks exactly once, in the fixed order chosen
// at session start. Every accepted message is appended to the session
// Transcript before the next turn begins, so each prompt sees all prior
// messages of the session.
//
// # State Machine
//
//	Idle ──start──▶ RoundInProgress(1) ──▶ … ──▶ RoundInProgress(N) ──▶ Completed
//	                       │                              │
//	                       ├── turn failed ──▶ Aborted    │
//	                       └── ctx done ────▶ Cancelled ◀─┘
//
// Completed, Aborted and Cancelled are terminal. A Scheduler runs once; a new
// session needs a new Scheduler.
//
// # Failure Handling
//
// Turns are produced by a TurnProducer (normally *agent.Executor), which owns
// retries and length enforcement. The scheduler only reacts to the final
// outcome of a turn:
//
//   - Success or Degraded: the message is appended and the next turn starts
//   - Failed: the session transitions to Aborted; messages already appended
//     stay in the Transcript and the report is marked partial
//
// A failed turn whose model did answer (with unusable text) still leaves a
// flagged, empty message in the Transcript so the attempted turn remains
// visible in the record.
//
// # Cancellation
//
// The caller's context is checked before every turn and during the optional
// pause between rounds. A cancelled run reports Cancelled together with every
// message accumulated so far.
//
// # Callback System
//
// Callbacks hook into the scheduler without modifying its logic:
//
//   - BeforeTurn / AfterTurn: around every participant turn
//   - OnRoundComplete: after the last turn of a round
//   - OnStateChange: on every lifecycle transition
//   - OnError: when a turn fails
//
// Callbacks run synchronously on the scheduler goroutine. An error returned
// from a BeforeTurn, AfterTurn or OnRoundComplete callback aborts the session.
//
// # Usage
//
//	exec := agent.NewExecutor(llm)
//	sched := engine.New(exec, func(o *engine.Options) {
//	    o.RoundInterval = time.Second
//	    o.Callbacks.RegisterCallback(engine.NewMessageCallback(func(m core.Message) {
//	        fmt.Printf("%s: %s\n", m.Speaker, m.Text)
//	    }))
//	})
//	report := sched.Run(ctx, engine.Plan{Topic: topic, Participants: ps, Constraints: c})
package engine
