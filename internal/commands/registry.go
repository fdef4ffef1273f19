package commands

import command "github.com/goliatone/go-command"

// CommandRegistry is the registration contract used when wiring handlers.
type CommandRegistry interface {
	RegisterCommand(handler any) error
}

// CronRegistrar schedules a handler func() error under cfg.Expression.
type CronRegistrar func(cfg command.HandlerConfig, handler any) error
