package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/lumi/internal/ai"
	"github.com/robalyx/lumi/internal/bot/commands"
	"github.com/robalyx/lumi/internal/bot/dedupe"
	"github.com/robalyx/lumi/internal/chat"
	"github.com/robalyx/lumi/internal/redis"
	"github.com/robalyx/lumi/internal/setup"
	"github.com/robalyx/lumi/internal/setup/config"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Bot connects the Discord gateway to the conversation engine.
type Bot struct {
	ctx      context.Context //nolint:containedctx // lifetime of the gateway connection
	client   bot.Client
	config   *config.Holder
	engine   *chat.Engine
	sender   chat.Sender
	lookup   nameLookup
	commands *commands.Registry
	claimer  dedupe.Claimer
	pool     *pool.Pool
	logger   *zap.Logger
}

// New initializes a Bot from the application dependencies.
func New(ctx context.Context, app *setup.App) (*Bot, error) {
	cfg := app.Config.Get()

	b := &Bot{
		ctx:    ctx,
		config: app.Config,
		pool:   pool.New().WithMaxGoroutines(max(cfg.Bot.Chat.MaxConcurrentEvents, 1)),
		logger: app.Logger.Named("bot"),
	}

	client, err := disgo.New(cfg.Bot.Discord.Token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMessages,
				gateway.IntentGuildMessageReactions,
				gateway.IntentDirectMessages,
				gateway.IntentDirectMessageReactions,
				gateway.IntentMessageContent,
			),
		),
		bot.WithCacheConfigOpts(
			cache.WithCaches(cache.FlagGuilds, cache.FlagChannels, cache.FlagRoles),
		),
		bot.WithEventListeners(&events.ListenerAdapter{
			OnMessageCreate:                 b.handleMessageCreate,
			OnMessageReactionAdd:            b.handleReactionAdd,
			OnApplicationCommandInteraction: b.handleApplicationCommandInteraction,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord client: %w", err)
	}
	b.client = client
	b.lookup = cacheLookup{client: client}
	b.sender = &discordSender{client: client, lookup: b.lookup}

	b.claimer, err = newClaimer(ctx, app, cfg)
	if err != nil {
		return nil, err
	}

	conversations := app.DB.Service().Conversation()
	store := chat.StoreFunc(func(ctx context.Context, channelID snowflake.ID) (chat.Tx, error) {
		tx, err := conversations.Begin(ctx, channelID)
		if err != nil {
			return nil, err
		}
		return tx, nil
	})

	completions := app.AIClient.Chat()
	b.engine = chat.NewEngine(
		store,
		ai.NewJudge(completions, app.Config, app.Logger),
		ai.NewChatGenerator(completions, app.Config, app.Logger),
		b.sender,
		app.Config,
		app.Logger,
	)

	settings := app.DB.Service().Channel()
	b.commands = commands.NewRegistry(app.Logger,
		commands.NewChatMode(settings),
		commands.NewSystemPrompt(settings),
		commands.NewResetContext(settings),
		commands.NewReload(app.Config),
	)

	return b, nil
}

// newClaimer returns a Redis backed claimer, or a no-op one when Redis is disabled.
func newClaimer(ctx context.Context, app *setup.App, cfg *config.Config) (dedupe.Claimer, error) {
	if app.RedisManager == nil {
		return dedupe.Noop{}, nil
	}

	client, err := app.RedisManager.GetClient(ctx, redis.DedupeDBIndex)
	if err != nil {
		return nil, err
	}

	return dedupe.New(client, cfg.Bot.Chat.DedupeTTLDuration(), app.Logger), nil
}

// Start registers global commands with Discord and opens the gateway connection.
func (b *Bot) Start() error {
	b.logger.Info("Registering commands")

	_, err := b.client.Rest().SetGlobalCommands(b.client.ApplicationID(), b.commands.Definitions())
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	if b.config.Get().Bot.WatchConfig {
		if err := b.config.Watch(); err != nil {
			b.logger.Warn("Failed to watch config files", zap.Error(err))
		}
	}

	b.logger.Info("Starting bot")
	return b.client.OpenGateway(b.ctx)
}

// Close shuts down the gateway connection and waits for in-flight events.
func (b *Bot) Close() {
	b.logger.Info("Closing bot")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	b.client.Close(ctx)
	b.pool.Wait()
}

// submit runs an event handler on the bounded worker pool.
func (b *Bot) submit(kind string, fn func(ctx context.Context)) {
	b.pool.Go(func() {
		b.run(kind, fn)
	})
}

// run executes an event handler, recovering and logging panics.
func (b *Bot) run(kind string, fn func(ctx context.Context)) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Panic in event handler",
				zap.String("event", kind),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
		b.logger.Debug("Event handled",
			zap.String("event", kind),
			zap.Duration("duration", time.Since(start)))
	}()

	fn(b.ctx)
}
