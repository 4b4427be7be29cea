package commands

import (
	"context"
	"errors"
	"io"

	"github.com/robalyx/lumi/internal/database"
	"github.com/robalyx/lumi/internal/database/types"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

var (
	ErrNameRequired = errors.New("NAME argument required")
	ErrEmptyPrompt  = errors.New("prompt contents are empty")
	ErrNoPrompt     = errors.New("no system prompt with that name")
)

// CLIDependencies holds the common dependencies needed by CLI commands.
type CLIDependencies struct {
	DB       database.Client
	Migrator Migrator
	Prompts  PromptStore
	Logger   *zap.Logger
	Out      io.Writer
}

// Migrator is the subset of *migrate.Migrator used by the commands.
type Migrator interface {
	Init(ctx context.Context) error
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
	Migrate(ctx context.Context, opts ...migrate.MigrationOption) (*migrate.MigrationGroup, error)
	Rollback(ctx context.Context, opts ...migrate.MigrationOption) (*migrate.MigrationGroup, error)
	MigrationsWithStatus(ctx context.Context) (migrate.MigrationSlice, error)
	CreateGoMigration(ctx context.Context, name string, opts ...migrate.GoMigrationOption) (*migrate.MigrationFile, error)
}

// PromptStore reads and writes system prompts.
type PromptStore interface {
	List(ctx context.Context) ([]*types.SystemPrompt, error)
	GetByName(ctx context.Context, name string) (*types.SystemPrompt, error)
	Upsert(ctx context.Context, name, contents string) (*types.SystemPrompt, error)
}
