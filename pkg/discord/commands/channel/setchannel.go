// Package channel implements /setchannel, which binds a guild to the channel
// the bot answers queries in.
package channel

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/wikiguide/pkg/discord/commands/core"
	"github.com/small-frappuccino/wikiguide/pkg/registry"
)

const (
	optionChannel = "channel"

	PermissionDeniedNotice = `You need to have the "Manage Channels" permission to set the channel.`
)

// Binder persists a guild's channel binding.
type Binder interface {
	Set(ctx context.Context, guildID, channelID string, perms int64) error
}

type SetChannelCommand struct {
	binder Binder
}

func NewSetChannelCommand(binder Binder) *SetChannelCommand {
	return &SetChannelCommand{binder: binder}
}

func (c *SetChannelCommand) Name() string { return "setchannel" }
func (c *SetChannelCommand) Description() string {
	return "Set the channel where the bot listens for queries"
}
func (c *SetChannelCommand) RequiresGuild() bool { return true }

func (c *SetChannelCommand) DefaultMemberPermissions() int64 {
	return discordgo.PermissionManageChannels
}

func (c *SetChannelCommand) Options() []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{{
		Type:         discordgo.ApplicationCommandOptionChannel,
		Name:         optionChannel,
		Description:  "Text channel to listen in",
		Required:     true,
		ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
	}}
}

func (c *SetChannelCommand) Handle(ctx *core.Context) error {
	channelID := core.OptionString(ctx.Interaction.ApplicationCommandData().Options, optionChannel)

	err := c.binder.Set(ctx, ctx.GuildID, channelID, ctx.Permissions)
	switch {
	case errors.Is(err, registry.ErrPermissionDenied):
		return core.NewCommandError(PermissionDeniedNotice, true)
	case errors.Is(err, registry.ErrInvalidID):
		return core.NewCommandError("That is not a channel I can listen in.", true)
	case err != nil:
		return fmt.Errorf("bind channel: %w", err)
	}

	ctx.Logger.Info("Channel binding updated", "channelID", channelID)
	return ctx.Responder.Reply(ctx.Interaction, fmt.Sprintf("Listening for messages in <#%s>", channelID), false)
}
