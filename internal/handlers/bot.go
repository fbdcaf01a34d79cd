package handlers

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/pianonics/pianobot/internal/audio"
	"github.com/pianonics/pianobot/internal/config"
	"github.com/pianonics/pianobot/internal/player"
	"github.com/pianonics/pianobot/internal/repository"
	"github.com/pianonics/pianobot/internal/resolver"
	"github.com/pianonics/pianobot/internal/stream"
)

type Bot struct {
	cfg  *config.Config
	repo *repository.Repo
}

func NewBot(cfg *config.Config, repo *repository.Repo) *Bot {
	return &Bot{cfg: cfg, repo: repo}
}

func (b *Bot) Run(ctx context.Context) error {
	dg, err := discordgo.New("Bot " + b.cfg.DiscordToken)
	if err != nil {
		return err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	registry := audio.NewLiveRegistry()
	params := audio.NewController(registry)
	streamer := stream.NewStreamer(registry)
	res := resolver.New(b.cfg)
	mgr := player.NewManager(
		b.repo,
		player.NewSelector(b.repo),
		params,
		res,
		streamer,
		stream.NewVoiceGateway(dg),
	)
	cmd := NewCommandHandler(b.cfg, b.repo, res, mgr, params, streamer)

	dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		slog.Info("connected", "user", s.State.User.Username)

		if err := s.UpdateStatusComplex(discordgo.UpdateStatusData{
			Status: b.cfg.BotStatus,
			Activities: []*discordgo.Activity{
				{Name: b.cfg.BotActivity, Type: discordgo.ActivityTypeListening},
			},
		}); err != nil {
			slog.Warn("set presence", "err", err)
		}

		appID := s.State.User.ID
		if err := cmd.RegisterCommands(s, appID); err != nil {
			slog.Error("register application commands", "err", err)
		} else {
			slog.Info("registered application commands")
		}
	})

	dg.AddHandler(cmd.HandleInteraction)

	if err := dg.Open(); err != nil {
		return err
	}
	defer dg.Close()

	<-ctx.Done()
	return nil
}
