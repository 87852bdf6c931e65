package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"sd-prompt-enhancer/backend/internal/adapter"
	"sd-prompt-enhancer/backend/internal/catalog"
	"sd-prompt-enhancer/backend/internal/discord"
	"sd-prompt-enhancer/backend/internal/enhancer"
	"sd-prompt-enhancer/backend/internal/journal"
	"sd-prompt-enhancer/backend/internal/prompt"
	"sd-prompt-enhancer/backend/pkg/config"
	apperrors "sd-prompt-enhancer/backend/pkg/errors"
	"sd-prompt-enhancer/backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize logger
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting Discord bot...")

	if cfg.DiscordBotToken == "" {
		log.Fatal("DISCORD_BOT_TOKEN is required")
	}

	// Create Discord session
	dg, err := discordgo.New("Bot " + cfg.DiscordBotToken)
	if err != nil {
		log.Fatal("Failed to create Discord session", zap.Error(err))
	}

	messageHandler := setup(context.Background(), cfg, discord.SessionSender{Session: dg}, log)

	dg.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		messageHandler.HandleMessage(s, m)
	})

	// Message content is needed to read prefixed commands
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent

	if err := dg.Open(); err != nil {
		log.Fatal("Failed to open Discord connection", zap.Error(err))
	}
	defer dg.Close()

	log.Info("Discord bot is running. Press CTRL-C to exit.",
		zap.String("prefix", cfg.DiscordCommandPrefix),
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.ModelID),
	)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-shutdownChan

	log.Info("Shutting down Discord bot...")
}

// setup wires the catalog, backend adapter, enhancer and journal into a
// message handler. Catalog problems and missing credentials are logged, not fatal.
func setup(ctx context.Context, cfg *config.Config, sender discord.Sender, log *zap.Logger) *discord.Handler {
	cat := catalog.New(catalog.Paths{
		CheckpointDir:   cfg.CheckpointDir,
		LoraDir:         cfg.LoraDir,
		StyleDir:        cfg.StyleDir,
		LoraTriggerFile: cfg.LoraTriggerFile,
	}, log)
	cat.Refresh(ctx)

	styles, err := prompt.LoadStyleTable(cfg.StylesFile)
	if err != nil {
		log.Warn("Using built-in style table", zap.String("path", cfg.StylesFile), zap.Error(err))
	}

	credErr := cfg.CredentialsError()
	if credErr != nil {
		log.Error("Submission disabled", zap.String("reason", apperrors.UserMessage(credErr)))
	}

	e := enhancer.New(enhancer.Options{
		Styles:   styles,
		Triggers: cat,
		LLM: adapter.NewLLMAdapter(adapter.Options{
			BaseURL:     cfg.LLMBaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.ModelID,
			Timeout:     cfg.LLMTimeout,
			Temperature: float32(cfg.LLMTemperature),
			Logger:      log,
		}),
		Disabled: credErr,
		Logger:   log,
	})

	return discord.NewHandler(discord.Options{
		Catalog:  cat,
		Enhancer: e,
		Sessions: enhancer.NewRegistry(e),
		Journal:  journal.New(cfg.OutputFile, log),
		Sender:   sender,
		Prefix:   cfg.DiscordCommandPrefix,
		Logger:   log,
	})
}
