// Package paginator turns a list of pages into a reaction-driven Discord
// message. Each message is owned by one session goroutine that consumes its
// events in arrival order; the Paginator only routes events to sessions.
package paginator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/small-frappuccino/wikiguide/pkg/errutil"
	"github.com/small-frappuccino/wikiguide/pkg/log"
	"github.com/small-frappuccino/wikiguide/pkg/metrics"
)

const (
	DefaultIdleTimeout  = 60 * time.Second
	DefaultReplyTimeout = 30 * time.Second
	DefaultSourceName   = "Wikipedia"
)

var (
	ErrNoPages = errors.New("paginator: no pages to show")
	ErrClosed  = errors.New("paginator: closed")
)

// Surface is the slice of the Discord REST API the paginator needs.
// *discordgo.Session satisfies it.
type Surface interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
	MessageReactionRemove(channelID, messageID, emojiID, userID string, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

type Options struct {
	IdleTimeout  time.Duration
	ReplyTimeout time.Duration
	// SourceName is credited in the footer and the link button.
	SourceName string
	Metrics    *metrics.Metrics
}

// StartRequest describes a new paginated message.
type StartRequest struct {
	ChannelID      string
	OwnerID        string
	OwnerName      string
	OwnerAvatarURL string
	Query          string
	URL            string
	Pages          []string
}

// Paginator owns every live session and routes reactions and direct-message
// replies to them.
type Paginator struct {
	surface Surface
	opts    Options

	mu        sync.Mutex
	byMessage map[string]*Session
	// awaiting maps a user to the session waiting for their page number.
	// The most recent jump request wins.
	awaiting map[string]*Session
	closed   bool

	wg sync.WaitGroup
}

func New(surface Surface, opts Options) *Paginator {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = DefaultReplyTimeout
	}
	if opts.SourceName == "" {
		opts.SourceName = DefaultSourceName
	}
	return &Paginator{
		surface:   surface,
		opts:      opts,
		byMessage: make(map[string]*Session),
		awaiting:  make(map[string]*Session),
	}
}

// Start posts the first page and starts a session for it. Navigation
// reactions are only added when there is more than one page.
func (p *Paginator) Start(ctx context.Context, req StartRequest) (*Session, error) {
	if len(req.Pages) == 0 {
		return nil, ErrNoPages
	}
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	view := page{
		query:      req.Query,
		url:        req.URL,
		ownerName:  req.OwnerName,
		ownerIcon:  req.OwnerAvatarURL,
		sourceName: p.opts.SourceName,
		body:       req.Pages[0],
		total:      len(req.Pages),
	}

	var msg *discordgo.Message
	err := errutil.HandleDiscordError("ChannelMessageSendComplex", func() error {
		var sendErr error
		msg, sendErr = p.surface.ChannelMessageSendComplex(req.ChannelID, renderMessage(view), discordgo.WithContext(ctx))
		return sendErr
	})
	if err != nil {
		return nil, fmt.Errorf("send first page: %w", err)
	}

	s := newSession(p, req, view, msg.ID)
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		s.markExpired()
		close(s.done)
		return s, nil
	}
	p.byMessage[s.messageID] = s
	p.wg.Add(1)
	p.mu.Unlock()

	p.opts.Metrics.SessionStarted()
	go s.run()

	if len(req.Pages) > 1 {
		for _, emoji := range controls {
			if err := p.surface.MessageReactionAdd(req.ChannelID, s.messageID, emoji, discordgo.WithContext(ctx)); err != nil {
				log.DiscordLogger().Warn("Failed to add navigation reaction",
					"channelID", req.ChannelID, "messageID", s.messageID, "emoji", emoji, "error", err)
			}
		}
	}

	log.DiscordLogger().Debug("Pagination session started",
		"session", s.id, "messageID", s.messageID, "pages", len(req.Pages), "owner", req.OwnerID)
	return s, nil
}

// HandleReaction routes a reaction on a paginated message. Unknown messages,
// unknown emoji and non-owners are ignored.
func (p *Paginator) HandleReaction(messageID, userID, emoji string) {
	kind, ok := eventForEmoji(emoji)
	if !ok {
		return
	}
	p.mu.Lock()
	s := p.byMessage[messageID]
	p.mu.Unlock()
	if s == nil {
		return
	}
	s.deliver(envelope{ev: Event{Kind: kind, UserID: userID}, emoji: emoji})
}

// HandleDirectMessage routes a direct-message reply to the session awaiting a
// page number from userID. It reports whether the reply was consumed.
func (p *Paginator) HandleDirectMessage(userID, text string) bool {
	p.mu.Lock()
	s := p.awaiting[userID]
	p.mu.Unlock()
	if s == nil {
		return false
	}
	return s.deliver(envelope{ev: Event{Kind: EventPageReply, UserID: userID, Text: text}})
}

// OnReactionAdd is a discordgo handler for MessageReactionAdd events.
func (p *Paginator) OnReactionAdd(ds *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r == nil || r.MessageReaction == nil {
		return
	}
	if ds != nil && ds.State != nil && ds.State.User != nil && r.UserID == ds.State.User.ID {
		return
	}
	p.HandleReaction(r.MessageID, r.UserID, r.Emoji.Name)
}

// Active reports how many sessions are still listening.
func (p *Paginator) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byMessage)
}

// Close stops every session and waits for their goroutines to exit.
func (p *Paginator) Close() {
	p.mu.Lock()
	p.closed = true
	sessions := make([]*Session, 0, len(p.byMessage))
	for _, s := range p.byMessage {
		sessions = append(sessions, s)
	}
	p.mu.Unlock()

	for _, s := range sessions {
		s.stopOnce.Do(func() { close(s.stop) })
	}
	p.wg.Wait()
}

func (p *Paginator) setAwaiting(userID string, s *Session) {
	p.mu.Lock()
	p.awaiting[userID] = s
	p.mu.Unlock()
}

func (p *Paginator) clearAwaiting(userID string, s *Session) {
	p.mu.Lock()
	if p.awaiting[userID] == s {
		delete(p.awaiting, userID)
	}
	p.mu.Unlock()
}

func (p *Paginator) release(s *Session) {
	p.mu.Lock()
	if p.byMessage[s.messageID] == s {
		delete(p.byMessage, s.messageID)
	}
	if p.awaiting[s.owner] == s {
		delete(p.awaiting, s.owner)
	}
	p.mu.Unlock()
	p.opts.Metrics.SessionEnded()
	log.DiscordLogger().Debug("Pagination session ended", "session", s.id, "messageID", s.messageID)
}

func newSessionID() string { return uuid.NewString() }
