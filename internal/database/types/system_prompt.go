package types

import "github.com/uptrace/bun"

// SystemPrompt is a named system message used to steer a model.
type SystemPrompt struct {
	bun.BaseModel `bun:"table:system_prompts,alias:sp"`

	ID       int64  `bun:",pk,autoincrement"`
	Name     string `bun:",notnull,unique"`
	Contents string `bun:",notnull"`
}
