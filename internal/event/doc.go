// Package event provides a synchronous pub-sub bus that carries bridge and
// runner transitions to observers.
//
// The watchdog, sender and session runner publish events as they move
// through their state machines; the console printer and the metrics
// collector subscribe to them. Publishers never know who is listening, and a
// nil *Bus is a valid no-op bus so components can run without observers.
//
// # Main Types
//
//   - [Event]: Interface that all events implement (EventType, Timestamp)
//   - [Bus]: Synchronous dispatcher, safe for concurrent use
//   - [Handler]: Function type for event handlers
//
// # Event Categories
//
// Bridge:
//   - [StatusChangedEvent]: a status record was published or observed
//   - [CommandDetectedEvent]: the watchdog picked up a new command
//   - [SelfTestEvent]: the start-up greeting round trip finished
//   - [BridgeErrorEvent]: a loop-level I/O failure
//   - [ResponseReceivedEvent]: the sender obtained a response
//
// Runner:
//   - [PromptAttemptEvent]: an attempt for a prompt is about to be sent
//   - [PromptAttemptFinishedEvent]: an attempt returned, with its outcome
//   - [PromptDelayEvent]: the runner is pausing before the next prompt
package event
