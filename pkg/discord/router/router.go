// Package router turns messages posted in a guild's bound channel into
// paginated article lookups.
package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/wikiguide/pkg/content"
	"github.com/small-frappuccino/wikiguide/pkg/discord/paginator"
	"github.com/small-frappuccino/wikiguide/pkg/discord/perf"
	"github.com/small-frappuccino/wikiguide/pkg/log"
)

const (
	NotFoundNotice = "No information found on Wikipedia."
	ErrorNotice    = "An error occurred while fetching information."

	DefaultLookupTimeout = 15 * time.Second
)

// Bindings resolves the channel a guild listens in.
type Bindings interface {
	Get(guildID string) (string, bool)
}

// Fetcher returns cached or freshly fetched content for a query.
type Fetcher interface {
	GetOrFetch(ctx context.Context, query string) (content.Entry, error)
}

// Pages starts paginated responses and consumes page-number replies.
type Pages interface {
	Start(ctx context.Context, req paginator.StartRequest) (*paginator.Session, error)
	HandleDirectMessage(userID, text string) bool
}

// Surface is the slice of the Discord REST API the router needs.
type Surface interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
}

type Config struct {
	LookupTimeout time.Duration
	// NotFoundNotice overrides the reply used when no article exists.
	NotFoundNotice string
}

type Router struct {
	bindings Bindings
	fetcher  Fetcher
	pages    Pages
	surface  Surface
	cfg      Config
}

func New(bindings Bindings, fetcher Fetcher, pages Pages, surface Surface, cfg Config) *Router {
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = DefaultLookupTimeout
	}
	if cfg.NotFoundNotice == "" {
		cfg.NotFoundNotice = NotFoundNotice
	}
	return &Router{bindings: bindings, fetcher: fetcher, pages: pages, surface: surface, cfg: cfg}
}

// OnMessageCreate is the discordgo handler. discordgo runs it on its own
// goroutine per event, so a slow lookup never blocks other messages.
func (r *Router) OnMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m == nil || m.Message == nil {
		return
	}
	done := perf.StartGatewayEvent("message_create",
		slog.String("guildID", m.GuildID), slog.String("channelID", m.ChannelID))
	defer done()

	selfID := ""
	if s != nil && s.State != nil && s.State.User != nil {
		selfID = s.State.User.ID
	}
	r.HandleMessage(context.Background(), selfID, m.Message)
}

// HandleMessage routes one inbound message. Direct messages are offered to
// the paginator as page-number replies; guild messages in the bound channel
// become lookups.
func (r *Router) HandleMessage(ctx context.Context, selfID string, m *discordgo.Message) {
	if m == nil || m.Author == nil {
		return
	}
	if m.Author.ID == selfID || m.Author.Bot {
		return
	}
	if m.GuildID == "" {
		r.pages.HandleDirectMessage(m.Author.ID, m.Content)
		return
	}

	bound, ok := r.bindings.Get(m.GuildID)
	if !ok || bound != m.ChannelID {
		return
	}
	query := content.NormalizeQuery(m.Content)
	if query == "" {
		return
	}

	if err := r.surface.ChannelTyping(m.ChannelID); err != nil {
		log.DiscordLogger().Debug("Failed to send typing indicator", "channelID", m.ChannelID, "error", err)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.cfg.LookupTimeout)
	entry, err := r.fetcher.GetOrFetch(lookupCtx, query)
	cancel()
	if err != nil {
		log.ErrorLoggerRaw().Error("Content lookup failed",
			"guildID", m.GuildID, "channelID", m.ChannelID, "query", query, "error", err)
		r.notify(m.ChannelID, ErrorNotice)
		return
	}
	if !entry.Content.Exists || len(entry.Pages) == 0 {
		r.notify(m.ChannelID, r.cfg.NotFoundNotice)
		return
	}

	_, err = r.pages.Start(ctx, paginator.StartRequest{
		ChannelID:      m.ChannelID,
		OwnerID:        m.Author.ID,
		OwnerName:      displayName(m),
		OwnerAvatarURL: m.Author.AvatarURL(""),
		Query:          query,
		URL:            entry.Content.URL,
		Pages:          entry.Pages,
	})
	if err != nil {
		log.ErrorLoggerRaw().Error("Failed to start paginated response",
			"guildID", m.GuildID, "channelID", m.ChannelID, "query", query, "error", err)
		r.notify(m.ChannelID, ErrorNotice)
	}
}

func (r *Router) notify(channelID, text string) {
	if _, err := r.surface.ChannelMessageSend(channelID, text); err != nil {
		log.DiscordLogger().Warn("Failed to send notice", "channelID", channelID, "error", err)
	}
}

func displayName(m *discordgo.Message) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}
