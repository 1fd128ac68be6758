package commands

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	handlers  []interface{}
	removed   int
	published []*discordgo.ApplicationCommand
	responses []*discordgo.InteractionResponse
}

func (f *fakeSession) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeSession) ApplicationCommandBulkOverwrite(appID string, guildID string, cmds []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	f.published = cmds
	return cmds, nil
}

func (f *fakeSession) AddHandler(handler interface{}) func() {
	f.handlers = append(f.handlers, handler)
	return func() { f.removed++ }
}

type nopBinder struct{}

func (nopBinder) Set(context.Context, string, string, int64) error { return nil }

func TestSetupCommandsPublishesAndAttaches(t *testing.T) {
	session := &fakeSession{}
	h := NewCommandHandler(session, nopBinder{}, "Wikipedia")

	require.NoError(t, h.SetupCommands("app"))
	require.Len(t, session.handlers, 1)

	names := make([]string, 0, len(session.published))
	for _, c := range session.published {
		names = append(names, c.Name)
	}
	require.Equal(t, []string{"help", "setchannel"}, names)

	handler := session.handlers[0].(func(*discordgo.Session, *discordgo.InteractionCreate))
	handler(nil, &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionApplicationCommand,
		User: &discordgo.User{ID: "u1"},
		Data: discordgo.ApplicationCommandInteractionData{Name: "help"},
	}})
	require.Len(t, session.responses, 1)
	require.Equal(t, "Help", session.responses[0].Data.Embeds[0].Title)

	require.NoError(t, h.Shutdown())
	require.Equal(t, 1, session.removed)
}
