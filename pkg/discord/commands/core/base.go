package core

import (
	"context"
	"fmt"
	"slices"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/wikiguide/pkg/log"
)

// BuildContext extracts the caller and guild from an interaction. With a
// state holding the guild, Permissions are the member's guild-level bits;
// otherwise the channel-scoped bits Discord sent with the interaction are used.
func BuildContext(parent context.Context, i *discordgo.InteractionCreate, responder *Responder, state *discordgo.State) *Context {
	ctx := &Context{
		Context:     parent,
		Interaction: i,
		Responder:   responder,
		GuildID:     i.GuildID,
		UserID:      extractUserID(i),
	}
	if i.Member != nil {
		if perms, ok := GuildPermissions(state, i.GuildID, i.Member); ok {
			ctx.Permissions = perms
		} else {
			ctx.Permissions = i.Member.Permissions
		}
	}
	ctx.Logger = log.DiscordLogger().With(
		"command", i.ApplicationCommandData().Name,
		"guildID", ctx.GuildID,
		"userID", ctx.UserID,
	)
	return ctx
}

// GuildPermissions computes a member's guild-wide permission bits from the
// @everyone role and the member's roles, ignoring channel overwrites.
// The owner and administrators hold every permission.
func GuildPermissions(state *discordgo.State, guildID string, m *discordgo.Member) (int64, bool) {
	if state == nil || m == nil || m.User == nil || guildID == "" {
		return 0, false
	}
	g, err := state.Guild(guildID)
	if err != nil {
		return 0, false
	}
	if g.OwnerID == m.User.ID {
		return discordgo.PermissionAll, true
	}
	var perms int64
	for _, r := range g.Roles {
		if r.ID == guildID || slices.Contains(m.Roles, r.ID) {
			perms |= r.Permissions
		}
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		return discordgo.PermissionAll, true
	}
	return perms, true
}

func extractUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// OptionString returns the named option's value as a string. Channel, user
// and role options carry their snowflake here.
func OptionString(options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range options {
		if opt.Name != name || opt.Value == nil {
			continue
		}
		if s, ok := opt.Value.(string); ok {
			return s
		}
		return fmt.Sprint(opt.Value)
	}
	return ""
}

func IsSlashCommandInteraction(i *discordgo.InteractionCreate) bool {
	return i != nil && i.Interaction != nil && i.Type == discordgo.InteractionApplicationCommand
}
