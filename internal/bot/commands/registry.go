package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

// Request carries what a command needs from an interaction.
type Request struct {
	ChannelID snowflake.ID
	UserID    snowflake.ID
	// Options holds the string options given to the command by name.
	Options map[string]string
}

// Option returns a named option and whether it was given.
func (r Request) Option(name string) (string, bool) {
	value, ok := r.Options[name]
	return value, ok
}

// Response is the message sent back for an interaction.
type Response struct {
	Content   string
	Ephemeral bool
}

// Command is a slash command.
type Command interface {
	// Definition returns the command as registered with Discord.
	Definition() discord.SlashCommandCreate
	// Execute runs the command.
	Execute(ctx context.Context, req Request) (Response, error)
}

// Registry dispatches interactions to commands by name.
type Registry struct {
	commands map[string]Command
	order    []string
	logger   *zap.Logger
}

// NewRegistry creates a registry holding the given commands.
func NewRegistry(logger *zap.Logger, commands ...Command) *Registry {
	r := &Registry{
		commands: make(map[string]Command, len(commands)),
		logger:   logger.Named("commands"),
	}
	for _, cmd := range commands {
		name := cmd.Definition().Name
		r.commands[name] = cmd
		r.order = append(r.order, name)
	}
	return r
}

// Definitions returns all commands for registration with Discord.
func (r *Registry) Definitions() []discord.ApplicationCommandCreate {
	definitions := make([]discord.ApplicationCommandCreate, 0, len(r.order))
	for _, name := range r.order {
		definitions = append(definitions, r.commands[name].Definition())
	}
	return definitions
}

// Dispatch runs the named command. Unknown commands and command errors are
// turned into responses so the interaction is always answered.
func (r *Registry) Dispatch(ctx context.Context, name string, req Request) Response {
	cmd, ok := r.commands[name]
	if !ok {
		r.logger.Warn("Unknown command", zap.String("command", name))
		return Response{Content: "Unknown command :("}
	}

	start := time.Now()
	resp, err := cmd.Execute(ctx, req)
	if err != nil {
		r.logger.Error("Command failed",
			zap.Error(err),
			zap.String("command", name),
			zap.Uint64("channelID", uint64(req.ChannelID)),
			zap.Uint64("userID", uint64(req.UserID)))

		return Response{
			Content:   fmt.Sprintf("Encountered an error while executing command:\n```\n%s\n```", err),
			Ephemeral: true,
		}
	}

	r.logger.Debug("Command handled",
		zap.String("command", name),
		zap.Duration("duration", time.Since(start)))

	return resp
}
