package mailbox

import (
	"fmt"
	"time"
)

// Channel pairs the command slot and the response slot of one bridge.
type Channel struct {
	command  Slot
	response Slot
}

// NewChannel creates a Channel over two slots.
func NewChannel(command, response Slot) *Channel {
	return &Channel{command: command, response: response}
}

// NewFileChannel creates a Channel over two text files.
func NewFileChannel(commandPath, responsePath string) *Channel {
	return NewChannel(NewFileSlot(commandPath), NewFileSlot(responsePath))
}

// NewMemoryChannel creates an in-process Channel.
func NewMemoryChannel() *Channel {
	return NewChannel(NewMemorySlot(), NewMemorySlot())
}

// DepositCommand overwrites any pending command.
func (c *Channel) DepositCommand(text string) error {
	return c.command.Deposit(text)
}

// ConsumeCommand returns the pending command and clears it. Consuming twice
// without a deposit in between returns "".
func (c *Channel) ConsumeCommand() (string, error) {
	return c.command.Take()
}

// CommandModTime reports when the command slot was last written.
func (c *Channel) CommandModTime() (time.Time, error) {
	return c.command.ModTime()
}

// EnsureCommand creates an empty command slot if none exists.
func (c *Channel) EnsureCommand() error {
	return c.command.Ensure()
}

// DepositResponse overwrites the response slot.
func (c *Channel) DepositResponse(text string) error {
	return c.response.Deposit(text)
}

// ReadResponse returns the response slot contents without clearing them.
func (c *Channel) ReadResponse() (string, error) {
	return c.response.Read()
}

// FormatResponse renders a watchdog reply:
//
//	[HH:MM:SS] QUESTION: <question>
//
//	RESPONSE:
//	<output>
func FormatResponse(question, output string, at time.Time) string {
	return fmt.Sprintf("[%s] QUESTION: %s\n\nRESPONSE:\n%s\n", at.Format("15:04:05"), question, output)
}
