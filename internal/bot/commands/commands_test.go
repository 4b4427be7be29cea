package commands_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/lumi/internal/bot/commands"
	"github.com/robalyx/lumi/internal/database/service"
	"github.com/robalyx/lumi/internal/database/types"
	"github.com/robalyx/lumi/internal/database/types/enum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const channelID = snowflake.ID(42)

// memorySettings stores channel settings in memory.
type memorySettings struct {
	mu      sync.Mutex
	modes   map[snowflake.ID]enum.ChatMode
	prompts map[snowflake.ID]*types.SystemPrompt
	known   map[string]*types.SystemPrompt
	resets  int
	err     error
}

func newMemorySettings() *memorySettings {
	return &memorySettings{
		modes:   make(map[snowflake.ID]enum.ChatMode),
		prompts: make(map[snowflake.ID]*types.SystemPrompt),
		known: map[string]*types.SystemPrompt{
			"default": {ID: types.DefaultSystemPromptID, Name: "default"},
			"pirate":  {ID: 3, Name: "pirate"},
		},
	}
}

func (m *memorySettings) GetChatMode(_ context.Context, id snowflake.ID) (*enum.ChatMode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	mode, ok := m.modes[id]
	if !ok {
		return nil, nil
	}
	return &mode, nil
}

func (m *memorySettings) SetChatMode(_ context.Context, id snowflake.ID, mode enum.ChatMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modes[id] = mode
	return m.err
}

func (m *memorySettings) GetSystemPrompt(_ context.Context, id snowflake.ID) (*types.SystemPrompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prompt, ok := m.prompts[id]; ok {
		return prompt, nil
	}
	return m.known["default"], nil
}

func (m *memorySettings) SetSystemPrompt(_ context.Context, id snowflake.ID, name string) (*types.SystemPrompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prompt, ok := m.known[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", service.ErrPromptNotFound, name)
	}
	m.prompts[id] = prompt
	return prompt, nil
}

func (m *memorySettings) ResetContext(context.Context, snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
	return m.err
}

type fakeReloader struct {
	calls int
	err   error
}

func (r *fakeReloader) Reload() error {
	r.calls++
	return r.err
}

func newRegistry(settings *memorySettings, reloader *fakeReloader) *commands.Registry {
	return commands.NewRegistry(zap.NewNop(),
		commands.NewChatMode(settings),
		commands.NewSystemPrompt(settings),
		commands.NewResetContext(settings),
		commands.NewReload(reloader),
	)
}

func request(options map[string]string) commands.Request {
	return commands.Request{ChannelID: channelID, UserID: 7, Options: options}
}

func TestRegistryDefinitions(t *testing.T) {
	t.Parallel()

	registry := newRegistry(newMemorySettings(), &fakeReloader{})
	definitions := registry.Definitions()
	require.Len(t, definitions, 4)

	names := make([]string, 0, len(definitions))
	for _, definition := range definitions {
		slash, ok := definition.(discord.SlashCommandCreate)
		require.True(t, ok)
		names = append(names, slash.Name)
	}
	assert.Equal(t, []string{"chat_mode", "system_prompt", "reset_context", "reload"}, names)

	chatMode, ok := definitions[0].(discord.SlashCommandCreate)
	require.True(t, ok)
	require.Len(t, chatMode.Options, 1)
	option, ok := chatMode.Options[0].(discord.ApplicationCommandOptionString)
	require.True(t, ok)
	assert.Equal(t, "mode", option.Name)
	assert.Equal(t, []discord.ApplicationCommandOptionChoiceString{
		{Name: "Free Response", Value: "free_response"},
		{Name: "Mentions Only", Value: "mentions_only"},
		{Name: "Mentions Only All Context", Value: "mentions_only_all_context"},
	}, option.Choices)
}

func TestChatModeCommand(t *testing.T) {
	t.Parallel()

	settings := newMemorySettings()
	registry := newRegistry(settings, &fakeReloader{})
	ctx := t.Context()

	resp := registry.Dispatch(ctx, "chat_mode", request(nil))
	assert.Equal(t, commands.Response{Content: "Lumi does not have a chat mode set for this channel"}, resp)

	resp = registry.Dispatch(ctx, "chat_mode", request(map[string]string{"mode": "free_response"}))
	assert.Equal(t, commands.Response{Content: "Updated Lumi's chat mode to Free Response"}, resp)
	assert.Equal(t, enum.ChatModeFreeResponse, settings.modes[channelID])

	resp = registry.Dispatch(ctx, "chat_mode", request(nil))
	assert.Equal(t, commands.Response{Content: "Lumi's current chat mode is Free Response"}, resp)

	resp = registry.Dispatch(ctx, "chat_mode", request(map[string]string{"mode": "sometimes"}))
	assert.True(t, resp.Ephemeral)
	assert.Contains(t, resp.Content, "Encountered an error while executing command:\n```\n")
	assert.Equal(t, enum.ChatModeFreeResponse, settings.modes[channelID], "invalid modes are not stored")
}

func TestSystemPromptCommand(t *testing.T) {
	t.Parallel()

	settings := newMemorySettings()
	registry := newRegistry(settings, &fakeReloader{})
	ctx := t.Context()

	resp := registry.Dispatch(ctx, "system_prompt", request(nil))
	assert.Equal(t, commands.Response{Content: "Lumi's current system prompt is '`default`'"}, resp)

	resp = registry.Dispatch(ctx, "system_prompt", request(map[string]string{"prompt": "pirate"}))
	assert.Equal(t, commands.Response{Content: "Set Lumi's system prompt to '`pirate`'"}, resp)

	resp = registry.Dispatch(ctx, "system_prompt", request(nil))
	assert.Equal(t, commands.Response{Content: "Lumi's current system prompt is '`pirate`'"}, resp)

	resp = registry.Dispatch(ctx, "system_prompt", request(map[string]string{"prompt": "missing"}))
	assert.True(t, resp.Ephemeral)
	assert.Contains(t, resp.Content, service.ErrPromptNotFound.Error())
}

func TestResetContextCommand(t *testing.T) {
	t.Parallel()

	settings := newMemorySettings()
	registry := newRegistry(settings, &fakeReloader{})

	resp := registry.Dispatch(t.Context(), "reset_context", request(nil))
	assert.Equal(t, commands.Response{Content: "Reset context!"}, resp)
	assert.Equal(t, 1, settings.resets)
}

func TestReloadCommand(t *testing.T) {
	t.Parallel()

	reloader := &fakeReloader{}
	registry := newRegistry(newMemorySettings(), reloader)

	resp := registry.Dispatch(t.Context(), "reload", request(nil))
	assert.Equal(t, commands.Response{Content: "Reloaded config!", Ephemeral: true}, resp)
	assert.Equal(t, 1, reloader.calls)

	reloader.err = errors.New("bad toml")
	resp = registry.Dispatch(t.Context(), "reload", request(nil))
	assert.Equal(t, commands.Response{
		Content:   "Encountered an error while executing command:\n```\nbad toml\n```",
		Ephemeral: true,
	}, resp)
}

func TestUnknownCommand(t *testing.T) {
	t.Parallel()

	registry := newRegistry(newMemorySettings(), &fakeReloader{})
	resp := registry.Dispatch(t.Context(), "dance", request(nil))
	assert.Equal(t, commands.Response{Content: "Unknown command :("}, resp)
}
