package ui

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/pianonics/pianobot/internal/repository"
	"github.com/pianonics/pianobot/internal/utils"
)

const (
	colorInfo  = 0x282841
	colorOK    = 0x006400
	colorError = 0x8B0000
)

func Info(title, desc string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: title, Description: desc, Color: colorInfo}
}

func OK(title, desc string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: title, Description: desc, Color: colorOK}
}

func Error(desc string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: "Error", Description: desc, Color: colorError}
}

// Queue renders one page of the guild's queue: entry order, played markers,
// force-play markers.
func Queue(entries []repository.QueueEntry, page, pageSize int) *discordgo.MessageEmbed {
	if pageSize <= 0 {
		pageSize = 10
	}
	if page <= 0 {
		page = 1
	}
	total := len(entries)
	if total == 0 {
		return Info("Queue", "The queue is empty")
	}

	start := (page - 1) * pageSize
	if start >= total {
		return Error("the queue isn't that big")
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	unplayed := 0
	for _, e := range entries {
		if !e.AlreadyPlayed {
			unplayed++
		}
	}

	var sb strings.Builder
	for idx, e := range entries[start:end] {
		marker := "▫️"
		if e.AlreadyPlayed {
			marker = "✅"
		}
		if e.ForcePlay && !e.AlreadyPlayed {
			marker = "⏭️"
		}
		fmt.Fprintf(&sb, "%d. %s %s\n", start+idx+1, marker, utils.EscapeMd(utils.Truncate(e.URL, 70)))
	}

	maxPage := (total + pageSize - 1) / pageSize
	return &discordgo.MessageEmbed{
		Title:       "Queue",
		Description: sb.String(),
		Color:       colorInfo,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Page %d/%d • %d tracks, %d unplayed", page, maxPage, total, unplayed),
		},
	}
}
