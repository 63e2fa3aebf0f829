package core

import (
	"errors"

	"picostep/protocol"
)

// ErrUnknownCommand is returned when no handler is registered for a command kind
var ErrUnknownCommand = errors.New("unknown command")

// CommandHandler handles one decoded command
type CommandHandler func(cmd protocol.Command) error

// CommandRegistry maps command kinds to handlers.
// Handlers are registered before the control loop starts; dispatch happens
// only from the control loop, so no locking is needed.
type CommandRegistry struct {
	handlers [protocol.NumKinds]CommandHandler
}

// NewCommandRegistry creates an empty registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{}
}

// Register sets the handler for kind, replacing any earlier one
func (r *CommandRegistry) Register(kind protocol.CommandKind, handler CommandHandler) {
	if int(kind) <= 0 || int(kind) >= len(r.handlers) {
		panic("invalid command kind")
	}
	r.handlers[kind] = handler
}

// Dispatch calls the handler registered for cmd.Kind
func (r *CommandRegistry) Dispatch(cmd protocol.Command) error {
	if int(cmd.Kind) <= 0 || int(cmd.Kind) >= len(r.handlers) || r.handlers[cmd.Kind] == nil {
		return ErrUnknownCommand
	}
	return r.handlers[cmd.Kind](cmd)
}
