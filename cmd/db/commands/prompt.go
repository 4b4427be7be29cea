package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// PromptCommands returns the system prompt management commands.
func PromptCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "prompt",
			Usage: "Manage system prompts",
			Commands: []*cli.Command{
				{
					Name:   "list",
					Usage:  "List all system prompts",
					Action: handlePromptList(deps),
				},
				{
					Name:      "show",
					Usage:     "Print the contents of a system prompt",
					ArgsUsage: "NAME",
					Action:    handlePromptShow(deps),
				},
				{
					Name:      "set",
					Usage:     "Create or replace a system prompt",
					ArgsUsage: "NAME",
					Description: `Create a system prompt or replace the contents of an existing one.
Channels using the prompt pick up the new contents on their next reply.

Examples:
  db prompt set pirate --file prompts/pirate.md   # Read contents from a file
  cat prompt.md | db prompt set pirate --file -   # Read contents from stdin`,
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:     "file",
							Aliases:  []string{"f"},
							Usage:    "File containing the prompt contents, or - for stdin",
							Required: true,
						},
					},
					Action: handlePromptSet(deps),
				},
			},
		},
	}
}

// handlePromptList handles the 'prompt list' command.
func handlePromptList(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		prompts, err := deps.Prompts.List(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(deps.Out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPREVIEW")
		for _, prompt := range prompts {
			fmt.Fprintf(w, "%d\t%s\t%s\n", prompt.ID, prompt.Name, previewLine(prompt.Contents, 60))
		}
		return w.Flush()
	}
}

// handlePromptShow handles the 'prompt show' command.
func handlePromptShow(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() != 1 {
			return ErrNameRequired
		}
		name := c.Args().First()

		prompt, err := deps.Prompts.GetByName(ctx, name)
		if err != nil {
			return err
		}
		if prompt == nil {
			return fmt.Errorf("%w: %q", ErrNoPrompt, name)
		}

		_, err = fmt.Fprintln(deps.Out, prompt.Contents)
		return err
	}
}

// handlePromptSet handles the 'prompt set' command.
func handlePromptSet(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() != 1 {
			return ErrNameRequired
		}
		name := c.Args().First()

		contents, err := readPromptFile(c.String("file"))
		if err != nil {
			return err
		}

		prompt, err := deps.Prompts.Upsert(ctx, name, contents)
		if err != nil {
			return err
		}

		deps.Logger.Info("Saved system prompt",
			zap.Int64("id", prompt.ID),
			zap.String("name", prompt.Name),
			zap.Int("length", len(contents)))
		return nil
	}
}

// readPromptFile reads prompt contents from a path, or stdin for "-".
func readPromptFile(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read prompt: %w", err)
	}

	contents := strings.TrimSpace(string(data))
	if contents == "" {
		return "", ErrEmptyPrompt
	}
	return contents, nil
}

// previewLine returns the first line of s cut to n runes.
func previewLine(s string, n int) string {
	line, _, cut := strings.Cut(s, "\n")
	runes := []rune(line)
	if len(runes) > n {
		return string(runes[:n]) + "..."
	}
	if cut {
		return line + "..."
	}
	return line
}
