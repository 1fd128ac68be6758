package commands

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/wikiguide/pkg/discord/commands/channel"
	"github.com/small-frappuccino/wikiguide/pkg/discord/commands/core"
	"github.com/small-frappuccino/wikiguide/pkg/discord/commands/help"
	"github.com/small-frappuccino/wikiguide/pkg/log"
)

// Session is the slice of discordgo the command handler needs.
type Session interface {
	core.InteractionResponder
	core.CommandSyncer
	AddHandler(handler interface{}) func()
}

// CommandHandler is the main handler that coordinates all bot commands
type CommandHandler struct {
	session    Session
	binder     channel.Binder
	sourceName string
	router     *core.CommandRouter
	removeFn   func()
}

// NewCommandHandler creates a new CommandHandler instance
func NewCommandHandler(session Session, binder channel.Binder, sourceName string) *CommandHandler {
	return &CommandHandler{
		session:    session,
		binder:     binder,
		sourceName: sourceName,
	}
}

// SetupCommands registers every command locally, attaches the interaction
// handler and publishes the command set for appID.
func (ch *CommandHandler) SetupCommands(appID string) error {
	log.ApplicationLogger().Info("Setting up bot commands...")

	ch.router = core.NewCommandRouter(ch.session)
	ch.router.RegisterCommand(channel.NewSetChannelCommand(ch.binder))
	ch.router.RegisterCommand(help.NewHelpCommand(ch.router.Registry(), ch.sourceName))

	ch.removeFn = ch.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		ch.router.HandleInteraction(s, i)
	})

	if err := ch.router.SyncCommands(ch.session, appID); err != nil {
		return fmt.Errorf("failed to setup commands: %w", err)
	}

	log.ApplicationLogger().Info("Bot commands setup completed successfully")
	return nil
}

// Shutdown detaches the interaction handler.
func (ch *CommandHandler) Shutdown() error {
	log.ApplicationLogger().Info("Shutting down command handler...")
	if ch.removeFn != nil {
		ch.removeFn()
		ch.removeFn = nil
	}
	return nil
}
