// Package mailbox provides the one-slot command and response mailboxes that
// carry text between a sender and the watchdog.
//
// # Architecture
//
// Each bridge instance owns two plain UTF-8 text files:
//
//	<dir>/<agent>_command.txt  -- written by the sender, consumed by the watchdog
//	<dir>/<agent>_response.txt -- written by the watchdog, read by the sender
//
// A slot holds at most one message. A second deposit before consumption
// overwrites the first (last write wins). A missing file reads as empty.
//
// # Main Types
//
//   - [Slot]: one mailbox file, with a [FileSlot] and an in-process [MemorySlot]
//   - [Channel]: the command/response pair used by the watchdog and sender
//
// # Basic Usage
//
//	ch := mailbox.NewFileChannel("codex_command.txt", "codex_response.txt")
//	_ = ch.DepositCommand("list the files in this repo")
//
//	// watchdog side
//	cmd, _ := ch.ConsumeCommand()
//	_ = ch.DepositResponse(mailbox.FormatResponse(cmd, output, time.Now()))
//
// # Thread Safety
//
// [MemorySlot] is safe for concurrent use. [FileSlot] is not locked: the
// bridge assumes a single writer per file and tolerates torn reads.
package mailbox
