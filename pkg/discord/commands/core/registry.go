package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/wikiguide/pkg/log"
)

const genericFailure = "An error occurred while executing the command."

// CommandRouter dispatches slash command interactions by name.
type CommandRouter struct {
	registry  *CommandRegistry
	responder *Responder
}

func NewCommandRouter(session InteractionResponder) *CommandRouter {
	return &CommandRouter{
		registry:  NewCommandRegistry(),
		responder: NewResponder(session),
	}
}

func (cr *CommandRouter) RegisterCommand(cmd Command) {
	cr.registry.Register(cmd)
}

func (cr *CommandRouter) Registry() *CommandRegistry {
	return cr.registry
}

// HandleInteraction is the discordgo handler for InteractionCreate events.
func (cr *CommandRouter) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var state *discordgo.State
	if s != nil {
		state = s.State
	}
	cr.dispatch(context.Background(), i, state)
}

// Dispatch runs the named command. A *CommandError becomes its own message;
// any other error is logged and answered with a generic reply.
func (cr *CommandRouter) Dispatch(parent context.Context, i *discordgo.InteractionCreate) {
	cr.dispatch(parent, i, nil)
}

func (cr *CommandRouter) dispatch(parent context.Context, i *discordgo.InteractionCreate, state *discordgo.State) {
	if !IsSlashCommandInteraction(i) {
		return
	}
	ctx := BuildContext(parent, i, cr.responder, state)
	name := i.ApplicationCommandData().Name

	cmd, ok := cr.registry.GetCommand(name)
	if !ok {
		ctx.Logger.Error("Command not found")
		_ = cr.responder.Error(i, "Command not found")
		return
	}
	if cmd.RequiresGuild() && ctx.GuildID == "" {
		ctx.Logger.Warn("Command used outside of guild")
		_ = cr.responder.Error(i, "This command can only be used in a server")
		return
	}

	ctx.Logger.Info("Executing command")
	err := cmd.Handle(ctx)
	if err == nil {
		return
	}

	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		ctx.Logger.Warn("Command rejected", "reason", cmdErr.Message)
		if cmdErr.Ephemeral {
			_ = cr.responder.Reply(i, cmdErr.Message, true)
		} else {
			_ = cr.responder.Error(i, cmdErr.Message)
		}
		return
	}
	ctx.Logger.Error("Command execution failed", "error", err)
	_ = cr.responder.Error(i, genericFailure)
}

// CommandSyncer publishes the application's command set.
type CommandSyncer interface {
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// SyncCommands replaces every global command with the registered set, so
// commands removed from the code disappear from Discord too.
func (cr *CommandRouter) SyncCommands(syncer CommandSyncer, appID string) error {
	cmds := cr.registry.All()
	desired := make([]*discordgo.ApplicationCommand, 0, len(cmds))
	for _, cmd := range cmds {
		ac := &discordgo.ApplicationCommand{
			Name:        cmd.Name(),
			Description: cmd.Description(),
			Options:     cmd.Options(),
		}
		if pc, ok := cmd.(PermissionedCommand); ok {
			perms := pc.DefaultMemberPermissions()
			ac.DefaultMemberPermissions = &perms
		}
		if cmd.RequiresGuild() {
			dm := false
			ac.DMPermission = &dm
		}
		desired = append(desired, ac)
	}

	registered, err := syncer.ApplicationCommandBulkOverwrite(appID, "", desired)
	if err != nil {
		return fmt.Errorf("overwrite application commands: %w", err)
	}
	log.ApplicationLogger().Info("Command synchronization completed", "registered", len(registered), "total", len(desired))
	return nil
}
