package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/diamondburned/arikawa/v3/state"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/emojistats/emojistats/internal/bot"
	"github.com/emojistats/emojistats/internal/config"
	"github.com/emojistats/emojistats/internal/emoji"
	"github.com/emojistats/emojistats/internal/ranking"
	"github.com/emojistats/emojistats/internal/recorder"
	"github.com/emojistats/emojistats/internal/roster"
	"github.com/emojistats/emojistats/internal/store"
	"github.com/emojistats/emojistats/internal/telemetry"
)

// restartExitCode tells a supervising process to start the bot again.
const restartExitCode = 10

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	// A .env file is optional; real environments set variables directly.
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}
	if cfg.Discord.Token == "" {
		log.Fatal("DISCORD_CLIENT_TOKEN is required")
	}

	var st store.Store
	if cfg.Database.UseInMemory {
		st = store.NewMemory()
	} else {
		st, err = store.NewSQLite(cfg.Database.Path)
		if err != nil {
			log.Fatal("failed to open database", zap.Error(err), zap.String("path", cfg.Database.Path))
		}
	}
	defer st.Close()

	tracked := make([]emoji.Unicode, 0, len(emoji.Builtin)+len(cfg.Emoji.ExtraUnicode))
	tracked = append(tracked, emoji.Builtin...)
	for _, glyph := range cfg.Emoji.ExtraUnicode {
		tracked = append(tracked, emoji.Unicode(glyph))
	}
	for _, u := range tracked {
		if err := st.UpsertEmoji(u); err != nil {
			log.Fatal("failed to seed unicode emoji", zap.Error(err))
		}
	}
	log.Info("tracking unicode emoji", zap.Int("count", len(tracked)))

	s := state.NewWithIntents("Bot "+cfg.Discord.Token,
		gateway.IntentGuilds|
			gateway.IntentGuildEmojis|
			gateway.IntentGuildMessages|
			gateway.IntentGuildMessageReactions|
			gateway.IntentDirectMessages|
			gateway.IntentMessageContent)

	ro := roster.New(st, s, log.Named("roster"))
	rec := recorder.New(st, ro, tracked, log.Named("recorder"))
	eng := ranking.New(st, ro)

	b := bot.New(s, st, ro, rec, eng, tracked, bot.Options{
		AdminPassword: cfg.Bot.AdminPassword,
		HelpText:      cfg.Bot.HelpText,
		AboutText:     cfg.Bot.AboutText,
		FeedbackFile:  cfg.Bot.FeedbackFile,
	}, log.Named("bot"))

	go telemetry.Serve(cfg.Metrics.Addr, log.Named("metrics"))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	disposition, err := b.Run(ctx)
	if err != nil {
		log.Fatal("gateway connection failed", zap.Error(err))
	}

	log.Info("shutting down")
	if disposition == bot.DispositionRestart {
		log.Sync()
		st.Close()
		os.Exit(restartExitCode)
	}
}
