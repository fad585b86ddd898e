package engine

import (
	"context"
	"fmt"

	"github.com/hupe1980/roundtable/core"
)

// CallbackType defines the specific lifecycle points where callbacks can be executed.
type CallbackType string

const (
	// CallbackBeforeTurn is triggered before a participant turn is produced.
	CallbackBeforeTurn CallbackType = "before_turn"

	// CallbackAfterTurn is triggered after a message has been appended.
	CallbackAfterTurn CallbackType = "after_turn"

	// CallbackOnRoundComplete is triggered after the last turn of a round.
	CallbackOnRoundComplete CallbackType = "on_round_complete"

	// CallbackOnStateChange is triggered on every scheduler transition.
	CallbackOnStateChange CallbackType = "on_state_change"

	// CallbackOnError is triggered when a turn fails.
	CallbackOnError CallbackType = "on_error"
)

// CallbackContext carries the information available at a callback point.
// Fields irrelevant to a callback type are left zero.
type CallbackContext struct {
	// Topic of the running session.
	Topic string

	// Round is the current 1-based round.
	Round int

	// Speaker is the participant whose turn is running, if any.
	Speaker *core.Participant

	// Message is the appended message (AfterTurn only).
	Message *core.Message

	// From and To describe a transition (OnStateChange only).
	From core.State
	To   core.State

	// Err is the turn failure (OnError only).
	Err error

	// CallbackType indicates which callback type triggered this execution.
	CallbackType CallbackType
}

// Callback defines the interface for scheduler lifecycle hooks.
//
// Implementations should be fast, since they run synchronously between turns.
type Callback interface {
	// Type returns the callback type this implementation handles.
	Type() CallbackType

	// Execute performs the callback logic with the provided context.
	Execute(ctx context.Context, callbackCtx *CallbackContext) error
}

// FunctionCallback wraps a function as a callback implementation.
//
// Example:
//
//	cb := NewFunctionCallback(CallbackOnRoundComplete, func(ctx context.Context, cc *CallbackContext) error {
//	    log.Printf("round %d done", cc.Round)
//	    return nil
//	})
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, callbackCtx *CallbackContext) error
}

// NewFunctionCallback creates a new function-based callback.
func NewFunctionCallback(
	callbackType CallbackType,
	fn func(ctx context.Context, callbackCtx *CallbackContext) error,
) *FunctionCallback {
	return &FunctionCallback{
		callbackType: callbackType,
		fn:           fn,
	}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() CallbackType {
	return c.callbackType
}

// Execute calls the wrapped function with the provided context.
func (c *FunctionCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	return c.fn(ctx, callbackCtx)
}

// NewMessageCallback returns an AfterTurn callback invoking fn with every
// appended message.
func NewMessageCallback(fn func(core.Message)) *FunctionCallback {
	return NewFunctionCallback(CallbackAfterTurn, func(_ context.Context, cc *CallbackContext) error {
		if cc.Message != nil {
			fn(*cc.Message)
		}
		return nil
	})
}

// CallbackManager holds registered callbacks per type.
//
// Callbacks are executed in registration order, and any callback returning
// an error stops the remaining callbacks of that type.
//
// Registration is not synchronized; register callbacks before the scheduler runs.
type CallbackManager struct {
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates a new callback manager instance.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{
		callbacks: make(map[CallbackType][]Callback),
	}
}

// RegisterCallback adds a callback to the manager for its type.
func (cm *CallbackManager) RegisterCallback(callback Callback) {
	callbackType := callback.Type()
	cm.callbacks[callbackType] = append(cm.callbacks[callbackType], callback)
}

// Clone returns an independent manager holding the same callbacks. A nil
// manager clones to an empty one.
func (cm *CallbackManager) Clone() *CallbackManager {
	out := NewCallbackManager()
	if cm == nil {
		return out
	}
	for t, cbs := range cm.callbacks {
		out.callbacks[t] = append([]Callback(nil), cbs...)
	}
	return out
}

// ExecuteCallbacks executes all registered callbacks for the specified type.
// A nil manager executes nothing.
func (cm *CallbackManager) ExecuteCallbacks(
	ctx context.Context,
	callbackType CallbackType,
	callbackCtx *CallbackContext,
) error {
	if cm == nil {
		return nil
	}
	callbacks, exists := cm.callbacks[callbackType]
	if !exists {
		return nil
	}

	callbackCtx.CallbackType = callbackType
	for _, callback := range callbacks {
		if err := callback.Execute(ctx, callbackCtx); err != nil {
			return fmt.Errorf("%s callback: %w", callbackType, err)
		}
	}

	return nil
}

// LoggingCallback forwards lifecycle events to a logging function.
type LoggingCallback struct {
	callbackType CallbackType
	logger       func(message string)
}

// NewLoggingCallback creates a new logging callback.
func NewLoggingCallback(callbackType CallbackType, logger func(message string)) *LoggingCallback {
	return &LoggingCallback{
		callbackType: callbackType,
		logger:       logger,
	}
}

// Type returns the callback type this logger handles.
func (c *LoggingCallback) Type() CallbackType {
	return c.callbackType
}

// Execute logs the lifecycle event.
func (c *LoggingCallback) Execute(_ context.Context, cc *CallbackContext) error {
	if c.logger == nil {
		return nil
	}
	switch {
	case cc.Message != nil:
		c.logger(fmt.Sprintf("[%s] round %d #%d %s (%d chars)", c.callbackType, cc.Round, cc.Message.Sequence, cc.Message.Speaker, cc.Message.Length()))
	case cc.From != "" || cc.To != "":
		c.logger(fmt.Sprintf("[%s] %s -> %s", c.callbackType, cc.From, cc.To))
	case cc.Speaker != nil:
		c.logger(fmt.Sprintf("[%s] round %d %s", c.callbackType, cc.Round, cc.Speaker.Name()))
	default:
		c.logger(fmt.Sprintf("[%s] round %d", c.callbackType, cc.Round))
	}
	return nil
}
