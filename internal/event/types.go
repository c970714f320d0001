package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a "category.action" identifier, e.g. "bridge.status".
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeStatusChanged         = "bridge.status"
	TypeCommandDetected       = "bridge.command"
	TypeSelfTest              = "bridge.selftest"
	TypeBridgeError           = "bridge.error"
	TypeResponseReceived      = "sender.response"
	TypePromptAttempt         = "runner.attempt"
	TypePromptAttemptFinished = "runner.attempt_finished"
	TypePromptDelay           = "runner.delay"
)

type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{eventType: eventType, timestamp: time.Now()}
}

// -----------------------------------------------------------------------------
// Bridge Events
// -----------------------------------------------------------------------------

// StatusChangedEvent is emitted when the watchdog publishes a status record,
// or when the sender observes a different record than last time.
type StatusChangedEvent struct {
	baseEvent
	Source  string // "watchdog" or "sender"
	Status  string // status wire value, e.g. "response_ready"
	Message string
}

// NewStatusChangedEvent creates a StatusChangedEvent.
func NewStatusChangedEvent(source, status, message string) StatusChangedEvent {
	return StatusChangedEvent{
		baseEvent: newBaseEvent(TypeStatusChanged),
		Source:    source,
		Status:    status,
		Message:   message,
	}
}

// CommandDetectedEvent is emitted when the watchdog consumes a non-empty command.
type CommandDetectedEvent struct {
	baseEvent
	Command string
}

// NewCommandDetectedEvent creates a CommandDetectedEvent.
func NewCommandDetectedEvent(command string) CommandDetectedEvent {
	return CommandDetectedEvent{baseEvent: newBaseEvent(TypeCommandDetected), Command: command}
}

// SelfTestEvent reports the outcome of the watchdog's start-up round trip.
type SelfTestEvent struct {
	baseEvent
	OK      bool
	Command string // agent executable, for the "check your PATH" hint
	Detail  string
}

// NewSelfTestEvent creates a SelfTestEvent.
func NewSelfTestEvent(ok bool, command, detail string) SelfTestEvent {
	return SelfTestEvent{baseEvent: newBaseEvent(TypeSelfTest), OK: ok, Command: command, Detail: detail}
}

// BridgeErrorEvent reports a loop-level failure that the watchdog recovered from.
type BridgeErrorEvent struct {
	baseEvent
	Err string
}

// NewBridgeErrorEvent creates a BridgeErrorEvent.
func NewBridgeErrorEvent(err error) BridgeErrorEvent {
	return BridgeErrorEvent{baseEvent: newBaseEvent(TypeBridgeError), Err: err.Error()}
}

// ResponseReceivedEvent is emitted when the sender reads a response.
type ResponseReceivedEvent struct {
	baseEvent
	Response string
}

// NewResponseReceivedEvent creates a ResponseReceivedEvent.
func NewResponseReceivedEvent(response string) ResponseReceivedEvent {
	return ResponseReceivedEvent{baseEvent: newBaseEvent(TypeResponseReceived), Response: response}
}

// -----------------------------------------------------------------------------
// Runner Events
// -----------------------------------------------------------------------------

// PromptAttemptEvent is emitted before each invocation of a prompt.
type PromptAttemptEvent struct {
	baseEvent
	Index   int // zero-based position in the sorted list
	Total   int
	Ordinal int
	Prompt  string
	Resume  bool
	Attempt int // 1-based
}

// NewPromptAttemptEvent creates a PromptAttemptEvent.
func NewPromptAttemptEvent(index, total, ordinal int, prompt string, resume bool, attempt int) PromptAttemptEvent {
	return PromptAttemptEvent{
		baseEvent: newBaseEvent(TypePromptAttempt),
		Index:     index,
		Total:     total,
		Ordinal:   ordinal,
		Prompt:    prompt,
		Resume:    resume,
		Attempt:   attempt,
	}
}

// PromptAttemptFinishedEvent is emitted after each invocation returns.
type PromptAttemptFinishedEvent struct {
	baseEvent
	Index       int
	Ordinal     int
	Attempt     int
	MaxAttempts int
	Stdout      string
	Stderr      string
	ExitCode    int
	TimedOut    bool
	WillRetry   bool
	GaveUp      bool
}

// NewPromptAttemptFinishedEvent creates a PromptAttemptFinishedEvent.
func NewPromptAttemptFinishedEvent(e PromptAttemptFinishedEvent) PromptAttemptFinishedEvent {
	e.baseEvent = newBaseEvent(TypePromptAttemptFinished)
	return e
}

// PromptDelayEvent is emitted when the runner pauses between prompts.
type PromptDelayEvent struct {
	baseEvent
	Delay time.Duration
}

// NewPromptDelayEvent creates a PromptDelayEvent.
func NewPromptDelayEvent(delay time.Duration) PromptDelayEvent {
	return PromptDelayEvent{baseEvent: newBaseEvent(TypePromptDelay), Delay: delay}
}
