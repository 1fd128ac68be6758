package paginator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/wikiguide/pkg/theme"
)

// Discord embed limits.
const (
	maxTitleLength       = 256
	maxDescriptionLength = 4096
)

// Reaction controls, added in this order when there is more than one page.
const (
	EmojiBackward = "\u25c0\ufe0f"
	EmojiForward  = "\u25b6\ufe0f"
	EmojiJump     = "\U0001f522"
)

var controls = []string{EmojiBackward, EmojiForward, EmojiJump}

// eventForEmoji maps a reaction to a navigation event. Variation selectors are
// ignored since clients do not always send them back.
func eventForEmoji(name string) (EventKind, bool) {
	switch stripVariation(name) {
	case stripVariation(EmojiBackward):
		return EventBackward, true
	case stripVariation(EmojiForward):
		return EventForward, true
	case stripVariation(EmojiJump):
		return EventJumpRequest, true
	}
	return 0, false
}

func stripVariation(s string) string {
	return strings.ReplaceAll(s, "\ufe0f", "")
}

// page describes everything needed to draw one page of a session.
type page struct {
	query      string
	url        string
	ownerName  string
	ownerIcon  string
	sourceName string
	body       string
	index      int
	total      int
}

func renderEmbed(p page) *discordgo.MessageEmbed {
	footer := fmt.Sprintf("Page %d/%d", p.index+1, p.total)
	if p.sourceName != "" {
		footer += " | Source: " + p.sourceName
	}
	embed := &discordgo.MessageEmbed{
		Title:       clamp(fmt.Sprintf("Q. %s (Page %d/%d)", p.query, p.index+1, p.total), maxTitleLength),
		URL:         p.url,
		Description: clamp(p.body, maxDescriptionLength),
		Color:       theme.Article(),
		Footer:      &discordgo.MessageEmbedFooter{Text: footer},
	}
	if p.ownerName != "" {
		embed.Author = &discordgo.MessageEmbedAuthor{Name: p.ownerName, IconURL: p.ownerIcon}
	}
	return embed
}

func renderMessage(p page) *discordgo.MessageSend {
	msg := &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{renderEmbed(p)}}
	if p.url != "" {
		label := "Read on " + p.sourceName
		if p.sourceName == "" {
			label = "Read the full article"
		}
		msg.Components = []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: label, Style: discordgo.LinkButton, URL: p.url},
			}},
		}
	}
	return msg
}

// clamp cuts s to at most n runes, marking the cut with an ellipsis.
func clamp(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
