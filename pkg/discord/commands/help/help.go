// Package help implements /help.
package help

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/wikiguide/pkg/discord/commands/core"
	"github.com/small-frappuccino/wikiguide/pkg/discord/paginator"
	"github.com/small-frappuccino/wikiguide/pkg/theme"
)

// Lister returns the commands to describe.
type Lister interface {
	All() []core.Command
}

type HelpCommand struct {
	commands   Lister
	sourceName string
}

func NewHelpCommand(commands Lister, sourceName string) *HelpCommand {
	if sourceName == "" {
		sourceName = paginator.DefaultSourceName
	}
	return &HelpCommand{commands: commands, sourceName: sourceName}
}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Show what the bot can do" }
func (c *HelpCommand) RequiresGuild() bool { return false }
func (c *HelpCommand) Options() []*discordgo.ApplicationCommandOption {
	return nil
}

func (c *HelpCommand) Handle(ctx *core.Context) error {
	return ctx.Responder.Embed(ctx.Interaction, c.Embed(), true)
}

// Embed builds the help text from the registered commands.
func (c *HelpCommand) Embed() *discordgo.MessageEmbed {
	var b strings.Builder
	for _, cmd := range c.commands.All() {
		fmt.Fprintf(&b, "**/%s**: %s\n", cmd.Name(), cmd.Description())
	}

	usage := fmt.Sprintf("Post a topic in the bound channel and I will look it up on %s.\n"+
		"%s and %s turn the page, %s asks for a page number by direct message.",
		c.sourceName, paginator.EmojiBackward, paginator.EmojiForward, paginator.EmojiJump)

	return &discordgo.MessageEmbed{
		Title:       "Help",
		Description: usage,
		Color:       theme.Help(),
		Fields: []*discordgo.MessageEmbedField{{
			Name:  "Commands",
			Value: strings.TrimSpace(b.String()),
		}},
	}
}
