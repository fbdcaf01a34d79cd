package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pianonics/pianobot/internal/audio"
	"github.com/pianonics/pianobot/internal/config"
	"github.com/pianonics/pianobot/internal/player"
	"github.com/pianonics/pianobot/internal/repository"
	"github.com/pianonics/pianobot/internal/resolver"
	"github.com/pianonics/pianobot/internal/stream"
	"github.com/pianonics/pianobot/internal/ui"
)

type CommandHandler struct {
	cfg      *config.Config
	repo     *repository.Repo
	res      *resolver.Resolver
	mgr      *player.Manager
	params   *audio.Controller
	streamer *stream.Streamer
}

func NewCommandHandler(
	cfg *config.Config,
	repo *repository.Repo,
	res *resolver.Resolver,
	mgr *player.Manager,
	params *audio.Controller,
	streamer *stream.Streamer,
) *CommandHandler {
	return &CommandHandler{cfg: cfg, repo: repo, res: res, mgr: mgr, params: params, streamer: streamer}
}

func (h *CommandHandler) RegisterCommands(s *discordgo.Session, appID string) error {
	start := time.Now()

	levelOpt := func(name, desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Name: name, Description: desc,
			Type: discordgo.ApplicationCommandOptionNumber, Required: true,
		}
	}
	deltaOpt := &discordgo.ApplicationCommandOption{
		Name: "amount", Description: "how much to change (default 0.1)",
		Type: discordgo.ApplicationCommandOptionNumber,
	}

	cmds := []*discordgo.ApplicationCommand{
		{
			Name:        "play",
			Description: "Queue a song (URL, playlist, spotify link, or search)",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "query", Description: "query or URL", Type: discordgo.ApplicationCommandOptionString, Required: true},
			},
		},
		{
			Name:        "force-play",
			Description: "Queue a song to play next, skipping the current one",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "query", Description: "query or URL", Type: discordgo.ApplicationCommandOptionString, Required: true},
			},
		},
		{Name: "skip", Description: "Skip the currently playing song"},
		{Name: "pause", Description: "Pause the current song"},
		{Name: "resume", Description: "Resume playback"},
		{Name: "loop", Description: "Toggle looping of the queue"},
		{Name: "shuffle", Description: "Toggle shuffled playback"},
		{
			Name:        "queue",
			Description: "Show the current queue",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "page", Description: "page to show [default: 1]", Type: discordgo.ApplicationCommandOptionInteger},
			},
		},
		{
			Name:        "volume",
			Description: "Show or change playback volume",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "show", Description: "show current volume"},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "set", Description: "set volume", Options: []*discordgo.ApplicationCommandOption{
					levelOpt("level", "0.0 to 1.0"),
				}},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "up", Description: "raise volume", Options: []*discordgo.ApplicationCommandOption{deltaOpt}},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "down", Description: "lower volume", Options: []*discordgo.ApplicationCommandOption{deltaOpt}},
			},
		},
		{
			Name:        "bass-boost",
			Description: "Show or change the bass boost level",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "show", Description: "show current level"},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "set", Description: "set level", Options: []*discordgo.ApplicationCommandOption{
					levelOpt("level", "0.0 to 2.0 (1.0 is neutral)"),
				}},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "up", Description: "more bass", Options: []*discordgo.ApplicationCommandOption{deltaOpt}},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "down", Description: "less bass", Options: []*discordgo.ApplicationCommandOption{deltaOpt}},
			},
		},
		{Name: "earrape", Description: "Toggle the distortion effect"},
		{Name: "leave", Description: "Leave the voice channel and clear the queue"},
		{Name: "ping", Description: "Check the bot's latency"},
	}

	for _, c := range cmds {
		if _, err := s.ApplicationCommandCreate(appID, "", c); err != nil {
			slog.Error("failed to create application command", "command", c.Name, "err", err)
			return err
		}
	}

	slog.Info("finished registering commands", "count", len(cmds), "took", time.Since(start))
	return nil
}

func (h *CommandHandler) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	slog.Debug("interaction: application command", "guildID", i.GuildID, "userID", userIDOf(i), "command", data.Name)

	switch data.Name {
	case "play":
		h.cmdPlay(s, i, false)
	case "force-play":
		h.cmdPlay(s, i, true)
	case "skip":
		h.cmdSkip(s, i)
	case "pause":
		h.cmdPause(s, i)
	case "resume":
		h.cmdResume(s, i)
	case "loop":
		h.cmdLoop(s, i)
	case "shuffle":
		h.cmdShuffle(s, i)
	case "queue":
		h.cmdQueue(s, i)
	case "volume":
		h.cmdVolume(s, i)
	case "bass-boost":
		h.cmdBassBoost(s, i)
	case "earrape":
		h.cmdEarrape(s, i)
	case "leave":
		h.cmdLeave(s, i)
	case "ping":
		h.cmdPing(s, i)
	default:
		slog.Debug("unknown command", "name", data.Name, "guildID", i.GuildID)
	}
}

func (h *CommandHandler) cmdPlay(s *discordgo.Session, i *discordgo.InteractionCreate, force bool) {
	guildID := i.GuildID
	query := i.ApplicationCommandData().Options[0].StringValue()

	chID, ok := userInVoice(s, guildID, userIDOf(i))
	if !ok {
		h.reply(s, i, "❗ You need to be in a voice channel", true)
		return
	}

	ctx := context.Background()
	if err := h.repo.CreateGuild(ctx, guildID); err != nil {
		slog.Error("create guild failed", "guildID", guildID, "err", err)
		h.reply(s, i, "internal error", true)
		return
	}

	h.deferReply(s, i)

	urls, err := h.res.Resolve(ctx, query)
	if err != nil {
		var rerr *resolver.ResolutionError
		if errors.As(err, &rerr) {
			slog.Warn("resolution failed", "guildID", guildID, "query", query, "err", err)
			h.editEmbed(s, i, ui.Error(rerr.Reason))
		} else {
			slog.Error("resolution failed", "guildID", guildID, "query", query, "err", err)
			h.editEmbed(s, i, ui.Error("Failed to look up that query"))
		}
		return
	}

	var added int
	if force {
		if err := h.repo.EnqueueForceNext(ctx, guildID, urls[0]); err == nil {
			added = 1
		} else {
			slog.Error("force enqueue failed", "guildID", guildID, "err", err)
		}
	} else {
		var eerr error
		added, eerr = h.repo.Enqueue(ctx, guildID, urls)
		if eerr != nil {
			slog.Error("enqueue failed", "guildID", guildID, "added", added, "err", eerr)
		}
	}
	if added == 0 {
		h.editEmbed(s, i, ui.Error("Couldn't add anything to the queue"))
		return
	}

	if _, err := h.mgr.Ensure(ctx, guildID, chID); err != nil {
		slog.Warn("voice connect failed", "guildID", guildID, "channelID", chID, "err", err)
		if errors.Is(err, player.ErrAlreadyConnected) {
			h.editEmbed(s, i, ui.Error("Already playing in another voice channel"))
			return
		}
		h.editEmbed(s, i, ui.Error("Couldn't connect to your voice channel"))
		return
	}

	if force {
		// jump the line: stop the current track so the loop picks the
		// force entry immediately
		h.mgr.Skip(guildID)
		h.editEmbed(s, i, ui.OK("⏭️ Force Playing", "Playing your song next"))
	} else if added > 1 {
		h.editEmbed(s, i, ui.OK("📋 Queue", fmt.Sprintf("Added **%d** songs to the queue", added)))
	} else {
		h.editEmbed(s, i, ui.OK("📥 Queue", "Added to the queue"))
	}

	go h.mgr.PlayLoop(context.Background(), guildID)
}

func (h *CommandHandler) cmdSkip(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !h.mgr.Skip(i.GuildID) {
		h.reply(s, i, "❗ Nothing is playing", true)
		return
	}
	h.reply(s, i, "Skipped ⏭️", false)
}

func (h *CommandHandler) cmdPause(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !h.streamer.Pause(i.GuildID) {
		h.reply(s, i, "❗ Nothing is playing", true)
		return
	}
	h.reply(s, i, "Paused ⏸️", false)
}

func (h *CommandHandler) cmdResume(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !h.streamer.Resume(i.GuildID) {
		h.reply(s, i, "❗ Nothing is paused", true)
		return
	}
	h.reply(s, i, "Resumed ▶️", false)
}

func (h *CommandHandler) cmdLoop(s *discordgo.Session, i *discordgo.InteractionCreate) {
	on, err := h.repo.ToggleLoop(context.Background(), i.GuildID)
	if err != nil {
		h.replyStoreErr(s, i, err)
		return
	}
	if on {
		h.reply(s, i, "Now looping the queue 🔄", false)
	} else {
		h.reply(s, i, "Stopped looping the queue ⏹️", false)
	}
}

func (h *CommandHandler) cmdShuffle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	on, err := h.repo.ToggleShuffle(context.Background(), i.GuildID)
	if err != nil {
		h.replyStoreErr(s, i, err)
		return
	}
	if on {
		h.reply(s, i, "Now shuffling 🔀", false)
	} else {
		h.reply(s, i, "Back to playing in order ➡️", false)
	}
}

func (h *CommandHandler) cmdQueue(s *discordgo.Session, i *discordgo.InteractionCreate) {
	page := 1
	for _, o := range i.ApplicationCommandData().Options {
		if o.Name == "page" {
			page = int(o.IntValue())
		}
	}
	entries, err := h.repo.ListQueue(context.Background(), i.GuildID)
	if err != nil {
		h.replyStoreErr(s, i, err)
		return
	}
	h.replyEmbed(s, i, ui.Queue(entries, page, 10))
}

func (h *CommandHandler) cmdVolume(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	guildID := i.GuildID
	sub := i.ApplicationCommandData().Options[0]

	switch sub.Name {
	case "show":
		set, err := h.repo.GetGuildSettings(ctx, guildID)
		if err != nil {
			h.replyStoreErr(s, i, err)
			return
		}
		cfg := h.params.Effective(guildID, set)
		h.reply(s, i, fmt.Sprintf("🔊 Volume: **%.0f%%**", cfg.Volume*100), false)
	case "set":
		level := sub.Options[0].FloatValue()
		v, err := h.repo.SetVolume(ctx, guildID, level)
		if err != nil {
			h.replyStoreErr(s, i, err)
			return
		}
		h.params.SetLiveVolume(guildID, v)
		h.reply(s, i, fmt.Sprintf("🔊 Volume set to **%.0f%%**", v*100), false)
	case "up", "down":
		delta := 0.1
		if len(sub.Options) > 0 {
			delta = sub.Options[0].FloatValue()
		}
		if sub.Name == "down" {
			delta = -delta
		}
		v, err := h.repo.AdjustVolume(ctx, guildID, delta)
		if err != nil {
			h.replyStoreErr(s, i, err)
			return
		}
		h.params.AdjustLiveVolume(guildID, delta)
		h.reply(s, i, fmt.Sprintf("🔊 Volume now **%.0f%%**", v*100), false)
	}
}

func (h *CommandHandler) cmdBassBoost(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	guildID := i.GuildID
	sub := i.ApplicationCommandData().Options[0]

	switch sub.Name {
	case "show":
		set, err := h.repo.GetGuildSettings(ctx, guildID)
		if err != nil {
			h.replyStoreErr(s, i, err)
			return
		}
		cfg := h.params.Effective(guildID, set)
		h.reply(s, i, fmt.Sprintf("🎸 Bass boost: **%+.1f dB**", cfg.BassGainDB), false)
	case "set":
		level := sub.Options[0].FloatValue()
		v, err := h.repo.SetBassBoost(ctx, guildID, level)
		if err != nil {
			h.replyStoreErr(s, i, err)
			return
		}
		h.params.SetLiveBassBoost(guildID, v)
		h.reply(s, i, fmt.Sprintf("🎸 Bass boost set to **%+.1f dB** (from the next track)", audio.BassGainDB(v)), false)
	case "up", "down":
		delta := 0.1
		if len(sub.Options) > 0 {
			delta = sub.Options[0].FloatValue()
		}
		if sub.Name == "down" {
			delta = -delta
		}
		v, err := h.repo.AdjustBassBoost(ctx, guildID, delta)
		if err != nil {
			h.replyStoreErr(s, i, err)
			return
		}
		h.params.AdjustLiveBassBoost(guildID, delta)
		h.reply(s, i, fmt.Sprintf("🎸 Bass boost now **%+.1f dB** (from the next track)", audio.BassGainDB(v)), false)
	}
}

func (h *CommandHandler) cmdEarrape(s *discordgo.Session, i *discordgo.InteractionCreate) {
	on, err := h.repo.ToggleEarrape(context.Background(), i.GuildID)
	if err != nil {
		h.replyStoreErr(s, i, err)
		return
	}
	h.params.SetLiveEarrape(i.GuildID, on)
	if on {
		h.reply(s, i, "📢 Earrape enabled (from the next track)", false)
	} else {
		h.reply(s, i, "🔇 Earrape disabled (from the next track)", false)
	}
}

func (h *CommandHandler) cmdLeave(s *discordgo.Session, i *discordgo.InteractionCreate) {
	err := h.mgr.Teardown(context.Background(), i.GuildID)
	if errors.Is(err, player.ErrNoSession) {
		h.reply(s, i, "❗ Bot is not connected to a voice channel", true)
		return
	}
	h.reply(s, i, "Left the channel 👋", false)
}

func (h *CommandHandler) cmdPing(s *discordgo.Session, i *discordgo.InteractionCreate) {
	latency := s.HeartbeatLatency().Round(time.Millisecond)
	h.reply(s, i, fmt.Sprintf("Pong! Latency is %s", latency), false)
}

func (h *CommandHandler) replyStoreErr(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		h.reply(s, i, "❗ Nothing has been queued here yet", true)
		return
	}
	slog.Error("store operation failed", "guildID", i.GuildID, "err", err)
	h.reply(s, i, "internal error", true)
}

func (h *CommandHandler) reply(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Flags: flags},
	}); err != nil {
		slog.Warn("reply failed", "guildID", i.GuildID, "err", err)
	}
}

func (h *CommandHandler) replyEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
	}); err != nil {
		slog.Warn("reply failed", "guildID", i.GuildID, "err", err)
	}
}

func (h *CommandHandler) deferReply(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		slog.Warn("defer reply failed", "guildID", i.GuildID, "err", err)
	}
}

func (h *CommandHandler) editEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	embeds := []*discordgo.MessageEmbed{embed}
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &embeds,
	}); err != nil {
		slog.Warn("edit reply failed", "guildID", i.GuildID, "err", err)
	}
}

func userIDOf(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func userInVoice(s *discordgo.Session, guildID, userID string) (channelID string, ok bool) {
	g, _ := s.State.Guild(guildID)
	if g == nil {
		g, _ = s.Guild(guildID)
	}
	if g == nil {
		return "", false
	}
	for _, vs := range g.VoiceStates {
		if vs.UserID == userID && vs.ChannelID != "" {
			return vs.ChannelID, true
		}
	}
	return "", false
}
