package router

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/wikiguide/pkg/content"
	"github.com/small-frappuccino/wikiguide/pkg/discord/paginator"
	"github.com/stretchr/testify/require"
)

type staticBindings map[string]string

func (b staticBindings) Get(guildID string) (string, bool) {
	c, ok := b[guildID]
	return c, ok
}

type fakeFetcher struct {
	entry   content.Entry
	err     error
	queries []string
}

func (f *fakeFetcher) GetOrFetch(ctx context.Context, query string) (content.Entry, error) {
	f.queries = append(f.queries, query)
	if _, ok := ctx.Deadline(); !ok {
		return content.Entry{}, errors.New("lookup without deadline")
	}
	return f.entry, f.err
}

type fakePages struct {
	started []paginator.StartRequest
	replies []string
	err     error
}

func (f *fakePages) Start(ctx context.Context, req paginator.StartRequest) (*paginator.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.started = append(f.started, req)
	return nil, nil
}

func (f *fakePages) HandleDirectMessage(userID, text string) bool {
	f.replies = append(f.replies, userID+":"+text)
	return true
}

type fakeSurface struct {
	mu     sync.Mutex
	sent   []string
	typing int
}

func (f *fakeSurface) ChannelMessageSend(channelID string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, content)
	return &discordgo.Message{}, nil
}

func (f *fakeSurface) ChannelTyping(channelID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing++
	return nil
}

func guildMessage(channelID, text string) *discordgo.Message {
	return &discordgo.Message{
		ID:        "msg",
		GuildID:   "g1",
		ChannelID: channelID,
		Content:   text,
		Author:    &discordgo.User{ID: "u1", Username: "alice"},
	}
}

func found() content.Entry {
	return content.Entry{
		Content: content.Content{Exists: true, Title: "Go", Text: "Go is a language.", URL: "https://en.wikipedia.org/wiki/Go"},
		Pages:   []string{"Go is a language."},
	}
}

func newTestRouter(fetcher *fakeFetcher, pages *fakePages, surface *fakeSurface) *Router {
	return New(staticBindings{"g1": "c1"}, fetcher, pages, surface, Config{})
}

func TestHandleMessageStartsPagination(t *testing.T) {
	fetcher := &fakeFetcher{entry: found()}
	pages := &fakePages{}
	surface := &fakeSurface{}

	newTestRouter(fetcher, pages, surface).HandleMessage(context.Background(), "bot", guildMessage("c1", "  Go  "))

	require.Equal(t, []string{"Go"}, fetcher.queries)
	require.Len(t, pages.started, 1)
	req := pages.started[0]
	require.Equal(t, "c1", req.ChannelID)
	require.Equal(t, "u1", req.OwnerID)
	require.Equal(t, "alice", req.OwnerName)
	require.Equal(t, "Go", req.Query)
	require.Equal(t, "https://en.wikipedia.org/wiki/Go", req.URL)
	require.Equal(t, 1, surface.typing)
	require.Empty(t, surface.sent)
}

func TestHandleMessageIgnoresUnboundAndOtherChannels(t *testing.T) {
	fetcher := &fakeFetcher{entry: found()}
	pages := &fakePages{}
	r := New(staticBindings{"g1": "c1"}, fetcher, pages, &fakeSurface{}, Config{})

	r.HandleMessage(context.Background(), "bot", guildMessage("c2", "Go"))
	other := guildMessage("c1", "Go")
	other.GuildID = "g2"
	r.HandleMessage(context.Background(), "bot", other)

	require.Empty(t, fetcher.queries)
	require.Empty(t, pages.started)
}

func TestHandleMessageIgnoresSelfAndBots(t *testing.T) {
	fetcher := &fakeFetcher{entry: found()}
	r := newTestRouter(fetcher, &fakePages{}, &fakeSurface{})

	self := guildMessage("c1", "Go")
	self.Author.ID = "bot"
	r.HandleMessage(context.Background(), "bot", self)

	other := guildMessage("c1", "Go")
	other.Author.Bot = true
	r.HandleMessage(context.Background(), "bot", other)

	require.Empty(t, fetcher.queries)
}

func TestHandleMessageRoutesDirectMessagesToPaginator(t *testing.T) {
	fetcher := &fakeFetcher{entry: found()}
	pages := &fakePages{}
	r := newTestRouter(fetcher, pages, &fakeSurface{})

	dm := guildMessage("dm", "2")
	dm.GuildID = ""
	r.HandleMessage(context.Background(), "bot", dm)

	require.Equal(t, []string{"u1:2"}, pages.replies)
	require.Empty(t, fetcher.queries)
}

func TestHandleMessageNotFound(t *testing.T) {
	surface := &fakeSurface{}
	pages := &fakePages{}
	r := newTestRouter(&fakeFetcher{entry: content.Entry{}}, pages, surface)

	r.HandleMessage(context.Background(), "bot", guildMessage("c1", "Nothing here"))

	require.Equal(t, []string{NotFoundNotice}, surface.sent)
	require.Empty(t, pages.started)
}

func TestHandleMessageLookupErrorSendsGenericNotice(t *testing.T) {
	surface := &fakeSurface{}
	r := newTestRouter(&fakeFetcher{err: errors.New("dial tcp 10.0.0.1:443: secret detail")}, &fakePages{}, surface)

	r.HandleMessage(context.Background(), "bot", guildMessage("c1", "Go"))

	require.Equal(t, []string{ErrorNotice}, surface.sent)
}

func TestHandleMessageStartFailureSendsGenericNotice(t *testing.T) {
	surface := &fakeSurface{}
	r := newTestRouter(&fakeFetcher{entry: found()}, &fakePages{err: errors.New("missing access")}, surface)

	r.HandleMessage(context.Background(), "bot", guildMessage("c1", "Go"))

	require.Equal(t, []string{ErrorNotice}, surface.sent)
}

func TestHandleMessageBlankContentIgnored(t *testing.T) {
	fetcher := &fakeFetcher{entry: found()}
	r := newTestRouter(fetcher, &fakePages{}, &fakeSurface{})

	r.HandleMessage(context.Background(), "bot", guildMessage("c1", "   \n "))

	require.Empty(t, fetcher.queries)
}

func TestDisplayNamePrefersNickname(t *testing.T) {
	m := guildMessage("c1", "Go")
	m.Author.GlobalName = "Alice"
	require.Equal(t, "Alice", displayName(m))

	m.Member = &discordgo.Member{Nick: "ali"}
	require.Equal(t, "ali", displayName(m))
}
