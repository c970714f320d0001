// Package bridge connects a controlling process to an external agent CLI
// through three files: a command slot, a response slot and a status ledger.
//
// A [Watchdog] runs next to the agent. It polls the command slot, hands each
// new command to the agent on stdin, writes the reply to the response slot
// and publishes its progress in the ledger. A [Sender] runs on the other
// side: it deposits a command and polls the ledger until a response is ready
// or its wait budget runs out. The two never talk directly and may live in
// different processes.
//
// Every state transition is also published on an [event.Bus] so the console
// and the Prometheus [Metrics] can observe it.
//
// Lifecycle:
//
//	w := bridge.NewWatchdog(invoker, backend, channel, ledger, trigger, opts...)
//	w.SelfTest(ctx)  // optional greeting round trip
//	w.Run(ctx)       // blocks until Stop or ctx is done
package bridge
