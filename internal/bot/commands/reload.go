package commands

import (
	"context"

	"github.com/disgoorg/disgo/discord"
)

// Reloader reloads the configuration from disk.
type Reloader interface {
	Reload() error
}

// Reload re-reads the configuration files.
type Reload struct {
	reloader Reloader
}

// NewReload creates the reload command.
func NewReload(reloader Reloader) *Reload {
	return &Reload{reloader: reloader}
}

// Definition implements Command.
func (c *Reload) Definition() discord.SlashCommandCreate {
	return discord.SlashCommandCreate{
		Name:        "reload",
		Description: "Reload Lumi's config file",
	}
}

// Execute implements Command.
func (c *Reload) Execute(_ context.Context, _ Request) (Response, error) {
	if err := c.reloader.Reload(); err != nil {
		return Response{}, err
	}
	return Response{Content: "Reloaded config!", Ephemeral: true}, nil
}
