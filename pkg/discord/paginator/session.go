package paginator

import (
	"fmt"
	"sync"
	"time"

	"github.com/small-frappuccino/wikiguide/pkg/errutil"
	"github.com/small-frappuccino/wikiguide/pkg/log"
)

const inboxSize = 16

type envelope struct {
	ev Event
	// emoji is set for reaction events so the reaction can be cleared.
	emoji string
}

// Session is one paginated message. All state changes happen on its own
// goroutine; the exported accessors are safe from any goroutine.
type Session struct {
	id        string
	p         *Paginator
	channelID string
	messageID string
	owner     string
	view      page
	pages     []string

	inbox    chan envelope
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	mu      sync.Mutex
	machine *Machine

	// dmChannelID is only touched by the session goroutine.
	dmChannelID string
}

func newSession(p *Paginator, req StartRequest, view page, messageID string) *Session {
	return &Session{
		id:        newSessionID(),
		p:         p,
		channelID: req.ChannelID,
		messageID: messageID,
		owner:     req.OwnerID,
		view:      view,
		pages:     req.Pages,
		inbox:     make(chan envelope, inboxSize),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		machine:   NewMachine(len(req.Pages), req.OwnerID),
	}
}

func (s *Session) ID() string        { return s.id }
func (s *Session) MessageID() string { return s.messageID }
func (s *Session) ChannelID() string { return s.channelID }

// Done is closed once the session stops listening.
func (s *Session) Done() <-chan struct{} { return s.done }

// Snapshot returns the current state and zero-based page index.
func (s *Session) Snapshot() (State, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.State(), s.machine.Index()
}

func (s *Session) markExpired() {
	s.mu.Lock()
	s.machine.state = StateExpired
	s.mu.Unlock()
}

func (s *Session) deliver(env envelope) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.inbox <- env:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) run() {
	defer s.p.wg.Done()
	defer close(s.done)
	defer s.p.release(s)

	idle := time.NewTimer(s.p.opts.IdleTimeout)
	defer idle.Stop()
	reply := time.NewTimer(s.p.opts.ReplyTimeout)
	reply.Stop()
	defer reply.Stop()

	for {
		before, _ := s.Snapshot()
		var out Outcome
		var ev Event

		select {
		case <-s.stop:
			s.markExpired()
			return
		case env := <-s.inbox:
			ev = env.ev
			out = s.apply(ev)
			if out.Accepted && env.emoji != "" {
				s.clearReaction(env.emoji, ev.UserID)
			}
		case <-idle.C:
			ev = Event{Kind: EventIdleTimeout}
			out = s.apply(ev)
		case <-reply.C:
			ev = Event{Kind: EventReplyTimeout}
			out = s.apply(ev)
		}

		if out.Accepted || out.Effect != EffectNone {
			s.p.opts.Metrics.Event(ev.Kind.String())
		}
		s.perform(out)

		after, _ := s.Snapshot()
		if after != StateAwaitingPage {
			s.p.clearAwaiting(s.owner, s)
		}
		switch {
		case after == StateExpired:
			return
		case before == StateActive && after == StateAwaitingPage:
			idle.Stop()
			reply.Reset(s.p.opts.ReplyTimeout)
		case before == StateAwaitingPage && after == StateActive:
			reply.Stop()
			idle.Reset(s.p.opts.IdleTimeout)
		case after == StateActive && out.Accepted:
			idle.Reset(s.p.opts.IdleTimeout)
		}
	}
}

func (s *Session) apply(ev Event) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Apply(ev)
}

func (s *Session) perform(out Outcome) {
	switch out.Effect {
	case EffectRender:
		s.render()
	case EffectPrompt:
		s.prompt()
	case EffectRejectReply:
		_, index := s.Snapshot()
		s.notify(fmt.Sprintf("That is not a page between 1 and %d. Staying on page %d.", len(s.pages), index+1))
	case EffectReplyTimedOut:
		_, index := s.Snapshot()
		s.notify(fmt.Sprintf("No page number received in time. Staying on page %d.", index+1))
	case EffectExpire:
		log.DiscordLogger().Debug("Pagination session idle", "session", s.id)
	}
}

func (s *Session) render() {
	_, index := s.Snapshot()
	view := s.view
	view.index = index
	view.body = s.pages[index]

	_, err := s.p.surface.ChannelMessageEditEmbed(s.channelID, s.messageID, renderEmbed(view))
	if err == nil {
		return
	}
	if errutil.IsNotFound(err) {
		log.DiscordLogger().Info("Paginated message is gone; ending session", "session", s.id, "messageID", s.messageID)
		s.markExpired()
		return
	}
	log.DiscordLogger().Warn("Failed to edit paginated message", "session", s.id, "messageID", s.messageID, "error", err)
}

// prompt asks the owner for a page number in a direct message. If the DM
// cannot be opened the session falls straight back to Active.
func (s *Session) prompt() {
	s.p.setAwaiting(s.owner, s)

	err := errutil.HandleDiscordError("UserChannelCreate", func() error {
		if s.dmChannelID != "" {
			return nil
		}
		ch, err := s.p.surface.UserChannelCreate(s.owner)
		if err != nil {
			return err
		}
		s.dmChannelID = ch.ID
		return nil
	})
	if err == nil {
		text := fmt.Sprintf("Which page of **%s** do you want to see? Reply with a number from 1 to %d within %d seconds.",
			s.view.query, len(s.pages), int(s.p.opts.ReplyTimeout/time.Second))
		_, err = s.p.surface.ChannelMessageSend(s.dmChannelID, text)
	}
	if err != nil {
		log.DiscordLogger().Warn("Could not prompt for a page number; staying on current page",
			"session", s.id, "userID", s.owner, "error", err)
		s.p.clearAwaiting(s.owner, s)
		s.apply(Event{Kind: EventReplyTimeout})
	}
}

func (s *Session) notify(text string) {
	if s.dmChannelID == "" {
		return
	}
	if _, err := s.p.surface.ChannelMessageSend(s.dmChannelID, text); err != nil {
		log.DiscordLogger().Warn("Failed to send page prompt notice", "session", s.id, "error", err)
	}
}

func (s *Session) clearReaction(emoji, userID string) {
	if err := s.p.surface.MessageReactionRemove(s.channelID, s.messageID, emoji, userID); err != nil {
		log.DiscordLogger().Debug("Could not remove navigation reaction", "session", s.id, "error", err)
	}
}
