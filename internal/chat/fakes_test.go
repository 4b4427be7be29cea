package chat_test

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/lumi/internal/ai"
	"github.com/robalyx/lumi/internal/chat"
	"github.com/robalyx/lumi/internal/database/types"
	"github.com/robalyx/lumi/internal/database/types/enum"
	"github.com/robalyx/lumi/internal/setup/config"
)

var (
	errSend      = errors.New("missing permissions")
	errProvider  = errors.New("provider unavailable")
	errStatement = errors.New("duplicate key value violates unique constraint")
	errAborted   = errors.New("current transaction is aborted, commands ignored until end of transaction block")
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// memoryStore is an in-memory conversation store with commit and rollback.
type memoryStore struct {
	mu       sync.Mutex
	channels map[snowflake.ID]*types.Channel
	messages []*types.Message
	clock    time.Time
	begins   int
	commits  int
	advances []time.Time

	// Statements failing with these errors abort the transaction the way
	// Postgres does until it is rolled back to a savepoint.
	failReplyInsert    error
	failPrompts        error
	savepointRollbacks int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		channels: make(map[snowflake.ID]*types.Channel),
		clock:    baseTime,
	}
}

func (s *memoryStore) setMode(channelID snowflake.ID, mode enum.ChatMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(channelID).ChatMode = mode
}

func (s *memoryStore) ensure(channelID snowflake.ID) *types.Channel {
	channel, ok := s.channels[channelID]
	if !ok {
		channel = &types.Channel{
			ID:           channelID,
			ChatMode:     enum.DefaultChatMode,
			SystemPrompt: types.DefaultSystemPromptID,
		}
		s.channels[channelID] = channel
	}
	return channel
}

// seed stores messages as if they were committed earlier.
func (s *memoryStore) seed(messages ...*types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range messages {
		s.ensure(m.Channel)
		s.clock = s.clock.Add(time.Second)
		m.Time = s.clock
		s.messages = append(s.messages, m)
	}
}

func (s *memoryStore) stored() []*types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

func (s *memoryStore) window(channelID snowflake.ID) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensure(channelID).ContextWindow
}

func (s *memoryStore) Begin(_ context.Context, channelID snowflake.ID) (chat.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.begins++
	channel := *s.ensure(channelID)
	return &memoryTx{store: s, channel: &channel}, nil
}

type memoryTx struct {
	store     *memoryStore
	channel   *types.Channel
	inserted  []*types.Message
	reset     bool
	done      bool
	aborted   bool
	savepoint *txSnapshot
}

type txSnapshot struct {
	inserted int
	window   time.Time
	reset    bool
}

// fail marks the transaction aborted and returns err.
func (t *memoryTx) fail(err error) error {
	t.aborted = true
	return err
}

func (t *memoryTx) Channel() *types.Channel {
	return t.channel
}

func (t *memoryTx) InsertMessage(_ context.Context, message *types.Message) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if t.aborted {
		return errAborted
	}
	if message.IsSelf && t.store.failReplyInsert != nil {
		return t.fail(t.store.failReplyInsert)
	}

	t.store.clock = t.store.clock.Add(time.Second)
	message.Time = t.store.clock
	t.inserted = append(t.inserted, message)
	return nil
}

func (t *memoryTx) WindowMessages(_ context.Context, allContext bool) ([]*types.Message, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if t.aborted {
		return nil, errAborted
	}

	all := append(slices.Clone(t.store.messages), t.inserted...)
	byID := make(map[snowflake.ID]*types.Message, len(all))
	for _, m := range all {
		byID[m.ID] = m
	}

	var result []*types.Message
	for _, m := range all {
		if m.Channel != t.channel.ID || !m.Time.After(t.channel.ContextWindow) {
			continue
		}
		if !allContext && !m.MentionsSelf {
			continue
		}

		row := *m
		if m.Reply != nil {
			if ref, ok := byID[*m.Reply]; ok {
				row.ReplySenderName = &ref.SenderName
				row.ReplyContents = &ref.Contents
			}
		}
		result = append(result, &row)
	}

	slices.SortFunc(result, func(a, b *types.Message) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return result, nil
}

func (t *memoryTx) AdvanceWindow(_ context.Context, cutoff time.Time) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	t.store.advances = append(t.store.advances, cutoff)
	if cutoff.After(t.channel.ContextWindow) {
		t.channel.ContextWindow = cutoff
	}
	return nil
}

func (t *memoryTx) Prompts(context.Context) (*types.SystemPrompt, *types.SystemPrompt, error) {
	if t.aborted {
		return nil, nil, errAborted
	}
	if t.store.failPrompts != nil {
		return nil, nil, t.fail(t.store.failPrompts)
	}
	return &types.SystemPrompt{ID: t.channel.SystemPrompt, Name: "default", Contents: "chat prompt"},
		&types.SystemPrompt{ID: types.JudgeSystemPromptID, Name: "judge", Contents: "judge prompt"},
		nil
}

func (t *memoryTx) ResetContext(context.Context) error {
	t.reset = true
	return nil
}

func (t *memoryTx) Savepoint(context.Context) error {
	if t.aborted {
		return errAborted
	}
	t.savepoint = &txSnapshot{inserted: len(t.inserted), window: t.channel.ContextWindow, reset: t.reset}
	return nil
}

func (t *memoryTx) RollbackToSavepoint(context.Context) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if t.savepoint == nil {
		return errors.New("savepoint does not exist")
	}
	t.inserted = t.inserted[:t.savepoint.inserted]
	t.channel.ContextWindow = t.savepoint.window
	t.reset = t.savepoint.reset
	t.aborted = false
	t.store.savepointRollbacks++
	return nil
}

func (t *memoryTx) Commit() error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if t.done {
		return errors.New("transaction already closed")
	}
	t.done = true

	// Committing an aborted transaction rolls it back.
	if t.aborted {
		return errAborted
	}
	t.store.commits++

	t.store.messages = append(t.store.messages, t.inserted...)
	channel := t.store.ensure(t.channel.ID)
	channel.ContextWindow = t.channel.ContextWindow
	if t.reset {
		t.store.clock = t.store.clock.Add(time.Second)
		channel.ContextWindow = t.store.clock
	}
	return nil
}

func (t *memoryTx) Rollback() error {
	t.done = true
	return nil
}

// fakeDecider answers with a fixed decision.
type fakeDecider struct {
	mu       sync.Mutex
	answer   bool
	err      error
	contexts [][]ai.Message
}

func (d *fakeDecider) ShouldReply(_ context.Context, messages []ai.Message) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.contexts = append(d.contexts, messages)
	return d.answer, d.err
}

func (d *fakeDecider) calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.contexts)
}

// fakeGenerator returns a fixed reply.
type fakeGenerator struct {
	mu       sync.Mutex
	reply    string
	err      error
	contexts [][]ai.Message
}

func (g *fakeGenerator) Generate(_ context.Context, messages []ai.Message) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.contexts = append(g.contexts, messages)
	return g.reply, g.err
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.contexts)
}

type sentReply struct {
	channelID snowflake.ID
	replyTo   snowflake.ID
	content   string
}

// fakeSender records outgoing messages.
type fakeSender struct {
	mu       sync.Mutex
	nextID   snowflake.ID
	replyErr error
	attempts int
	replies  []sentReply
}

func (s *fakeSender) Reply(_ context.Context, channelID, replyTo snowflake.ID, content string) (*chat.SentMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts++
	if s.replyErr != nil {
		return nil, s.replyErr
	}
	s.replies = append(s.replies, sentReply{channelID: channelID, replyTo: replyTo, content: content})
	s.nextID++
	return &chat.SentMessage{
		ID:      s.nextID,
		Author:  chat.Author{ID: botID, Name: "lumi", DisplayName: "Lumi"},
		Content: content,
	}, nil
}

func (s *fakeSender) Typing(context.Context, snowflake.ID) error {
	return nil
}

func (s *fakeSender) sentReplies() []sentReply {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.replies)
}

func (s *fakeSender) replyAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

type staticConfig struct {
	cfg *config.Config
}

func (s staticConfig) Get() *config.Config {
	return s.cfg
}

func newConfig(threshold int) staticConfig {
	return staticConfig{cfg: &config.Config{
		Bot: config.BotConfig{Chat: config.Chat{WindowThreshold: threshold, MaxAttempts: 3}},
	}}
}
