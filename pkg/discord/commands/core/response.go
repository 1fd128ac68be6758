package core

import (
	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/wikiguide/pkg/errutil"
	"github.com/small-frappuccino/wikiguide/pkg/theme"
)

// InteractionResponder is the slice of discordgo used to answer interactions.
type InteractionResponder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

// Responder sends the single reply an interaction is allowed.
type Responder struct {
	session InteractionResponder
}

func NewResponder(session InteractionResponder) *Responder {
	return &Responder{session: session}
}

// Reply answers with plain text.
func (r *Responder) Reply(i *discordgo.InteractionCreate, content string, ephemeral bool) error {
	return r.respond(i, &discordgo.InteractionResponseData{Content: content}, ephemeral)
}

// Embed answers with a single embed.
func (r *Responder) Embed(i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) error {
	return r.respond(i, &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}}, ephemeral)
}

// Error answers ephemerally with an error-colored embed.
func (r *Responder) Error(i *discordgo.InteractionCreate, message string) error {
	return r.Embed(i, &discordgo.MessageEmbed{Description: message, Color: theme.Error()}, true)
}

func (r *Responder) respond(i *discordgo.InteractionCreate, data *discordgo.InteractionResponseData, ephemeral bool) error {
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return errutil.HandleDiscordError("InteractionRespond", func() error {
		return r.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: data,
		})
	})
}
