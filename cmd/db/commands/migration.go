package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// MigrationCommands returns the schema migration commands.
func MigrationCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:   "init",
			Usage:  "Create the migration bookkeeping tables",
			Action: handleInit(deps),
		},
		{
			Name:  "migrate",
			Usage: "Apply pending migrations",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "mark-only",
					Usage: "Record pending migrations as applied without running them",
				},
			},
			Action: handleMigrate(deps),
		},
		{
			Name:   "rollback",
			Usage:  "Roll back the most recent migration group",
			Action: handleRollback(deps),
		},
		{
			Name:   "status",
			Usage:  "List migrations and whether they are applied",
			Action: handleStatus(deps),
		},
		{
			Name:   "unlock",
			Usage:  "Release a migration lock left by an interrupted run",
			Action: handleUnlock(deps),
		},
		{
			Name:      "create",
			Usage:     "Create a new Go migration file",
			ArgsUsage: "NAME",
			Action:    handleCreate(deps),
		},
	}
}

// handleInit handles the 'init' command.
func handleInit(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		if err := deps.Migrator.Init(ctx); err != nil {
			return err
		}
		fmt.Fprintln(deps.Out, "Migration tables ready")
		return nil
	}
}

// handleMigrate handles the 'migrate' command.
func handleMigrate(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		var opts []migrate.MigrationOption
		if c.Bool("mark-only") {
			opts = append(opts, migrate.WithNopMigration())
		}

		group, err := withLock(ctx, deps.Migrator, func() (*migrate.MigrationGroup, error) {
			return deps.Migrator.Migrate(ctx, opts...)
		})
		if err != nil {
			return err
		}

		if group.IsZero() {
			fmt.Fprintln(deps.Out, "Database is up to date")
			return nil
		}

		deps.Logger.Info("Applied migrations",
			zap.String("group", group.String()),
			zap.Bool("markOnly", c.Bool("mark-only")))
		fmt.Fprintf(deps.Out, "Applied %s\n", group)
		return nil
	}
}

// handleRollback handles the 'rollback' command.
func handleRollback(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		group, err := withLock(ctx, deps.Migrator, func() (*migrate.MigrationGroup, error) {
			return deps.Migrator.Rollback(ctx)
		})
		if err != nil {
			return err
		}

		if group.IsZero() {
			fmt.Fprintln(deps.Out, "Nothing to roll back")
			return nil
		}

		deps.Logger.Info("Rolled back migrations", zap.String("group", group.String()))
		fmt.Fprintf(deps.Out, "Rolled back %s\n", group)
		return nil
	}
}

// handleStatus handles the 'status' command.
func handleStatus(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		ms, err := deps.Migrator.MigrationsWithStatus(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(deps.Out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MIGRATION\tGROUP\tAPPLIED AT")
		for _, m := range ms {
			if !m.IsApplied() {
				fmt.Fprintf(w, "%s\t-\tpending\n", m.Name)
				continue
			}
			fmt.Fprintf(w, "%s\t%d\t%s\n", m.Name, m.GroupID, m.MigratedAt.Format("2006-01-02 15:04:05"))
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Fprintf(deps.Out, "\n%d applied, %d pending\n", len(ms.Applied()), len(ms.Unapplied()))
		return nil
	}
}

// handleUnlock handles the 'unlock' command.
func handleUnlock(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		if err := deps.Migrator.Unlock(ctx); err != nil {
			return err
		}
		deps.Logger.Warn("Released migration lock")
		fmt.Fprintln(deps.Out, "Migration lock released")
		return nil
	}
}

// handleCreate handles the 'create' command.
func handleCreate(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() != 1 {
			return ErrNameRequired
		}

		mf, err := deps.Migrator.CreateGoMigration(ctx, c.Args().First())
		if err != nil {
			return err
		}

		fmt.Fprintf(deps.Out, "Created %s\n", mf.Path)
		return nil
	}
}

// withLock runs fn while holding the migration lock.
func withLock(
	ctx context.Context, m Migrator, fn func() (*migrate.MigrationGroup, error),
) (*migrate.MigrationGroup, error) {
	if err := m.Lock(ctx); err != nil {
		return nil, fmt.Errorf("failed to lock migrations: %w", err)
	}
	defer m.Unlock(ctx) //nolint:errcheck // lock expires with the session

	return fn()
}
