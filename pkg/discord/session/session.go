// Package session opens the gateway connection the bot runs on.
package session

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/wikiguide/pkg/errutil"
	"github.com/small-frappuccino/wikiguide/pkg/log"
)

// Error messages
const (
	ErrSessionCreationFailed   = "failed to create Discord session: %w"
	ErrSessionConnectionFailed = "failed to connect to Discord: %w"
)

// Intents covers bound-channel messages, navigation reactions and the
// direct-message page replies.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsDirectMessages |
	discordgo.IntentMessageContent

// Stubbable for tests.
var (
	newSession   = func(token string) (*discordgo.Session, error) { return discordgo.New("Bot " + token) }
	openSession  = func(s *discordgo.Session) error { return s.Open() }
	closeSession = func(s *discordgo.Session) error { return s.Close() }
)

// NewDiscordSession creates a session with the bot's intents and connects it.
func NewDiscordSession(token string) (*discordgo.Session, error) {
	if token == "" {
		log.ErrorLoggerRaw().Error("Discord bot token is empty. Please set the token before starting the bot.")
		return nil, fmt.Errorf("discord bot token is empty")
	}

	var s *discordgo.Session
	if err := errutil.HandleDiscordError("create_session", func() error {
		var sessionErr error
		s, sessionErr = newSession(token)
		return sessionErr
	}); err != nil {
		return nil, fmt.Errorf(ErrSessionCreationFailed, err)
	}

	s.Identify.Intents = Intents

	log.DiscordLogger().Info("Connecting to Discord...")
	if err := errutil.HandleDiscordError("connect", func() error {
		return openSession(s)
	}); err != nil {
		if closeErr := closeSession(s); closeErr != nil {
			log.DiscordLogger().Warn("Failed to close session after connect error", "error", closeErr)
		}
		return nil, fmt.Errorf(ErrSessionConnectionFailed, err)
	}

	log.DiscordLogger().Info("Connected to Discord successfully")
	return s, nil
}

// Close disconnects the gateway.
func Close(s *discordgo.Session) error {
	if s == nil {
		return nil
	}
	return closeSession(s)
}
