// Package registry maps each guild to the one channel the bot answers queries in.
package registry

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/wikiguide/pkg/log"
)

var (
	// ErrPermissionDenied is returned by Set when the requester cannot manage channels.
	ErrPermissionDenied = errors.New("permission denied: manage channels required")
	// ErrCorruptState marks persisted bindings that could not be read or validated.
	ErrCorruptState = errors.New("corrupt registry state")
	// ErrInvalidID is returned for guild or channel ids that are not Discord snowflakes.
	ErrInvalidID = errors.New("invalid snowflake id")
)

// Store persists the full mapping. SaveBindings always receives every binding.
type Store interface {
	LoadBindings(ctx context.Context) (map[string]string, error)
	SaveBindings(ctx context.Context, bindings map[string]string) error
	Close() error
}

// ChannelBinding is one guild → channel entry.
type ChannelBinding struct {
	GuildID   string
	ChannelID string
}

// Registry is the in-memory view of the bindings, written through to a Store.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]string
	store    Store
}

// New returns an empty registry backed by store. Call Load before serving.
func New(store Store) *Registry {
	return &Registry{bindings: make(map[string]string), store: store}
}

// Load replaces the in-memory mapping with the persisted one. Missing storage
// yields an empty mapping; unreadable or invalid storage is logged as corrupt
// state and also yields an empty mapping.
func (r *Registry) Load(ctx context.Context) {
	loaded, err := r.store.LoadBindings(ctx)
	if err == nil {
		err = validate(loaded)
	}
	if err != nil {
		log.DatabaseLogger().Error("Registry storage unreadable; starting with no channel bindings",
			"error", fmt.Errorf("%w: %w", ErrCorruptState, err))
		loaded = map[string]string{}
	}

	r.mu.Lock()
	r.bindings = loaded
	r.mu.Unlock()

	log.DatabaseLogger().Info("Channel registry loaded", "bindings", len(loaded))
}

// Get returns the channel bound to guildID.
func (r *Registry) Get(guildID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.bindings[guildID]
	return c, ok
}

// Set binds guildID to channelID when perms include Manage Channels or
// Administrator. The whole mapping is persisted before Set returns; if that
// write fails the in-memory mapping is left as it was.
func (r *Registry) Set(ctx context.Context, guildID, channelID string, perms int64) error {
	if !CanManageChannels(perms) {
		return ErrPermissionDenied
	}
	if !isSnowflake(guildID) || !isSnowflake(channelID) {
		return fmt.Errorf("%w: guild=%q channel=%q", ErrInvalidID, guildID, channelID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := maps.Clone(r.bindings)
	if next == nil {
		next = make(map[string]string, 1)
	}
	next[guildID] = channelID

	if err := r.store.SaveBindings(ctx, next); err != nil {
		return fmt.Errorf("persist channel bindings: %w", err)
	}
	r.bindings = next
	return nil
}

// Bindings returns a snapshot sorted by guild id.
func (r *Registry) Bindings() []ChannelBinding {
	r.mu.RLock()
	out := make([]ChannelBinding, 0, len(r.bindings))
	for g, c := range r.bindings {
		out = append(out, ChannelBinding{GuildID: g, ChannelID: c})
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].GuildID < out[j].GuildID })
	return out
}

// Len reports the number of bound guilds.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}

// Close closes the store. Set persists synchronously, so nothing is flushed
// here; a mapping that failed to load is never written back over storage.
func (r *Registry) Close(ctx context.Context) error {
	if err := r.store.Close(); err != nil {
		return fmt.Errorf("close registry store: %w", err)
	}
	return nil
}

// CanManageChannels reports whether a permission bit set allows rebinding.
func CanManageChannels(perms int64) bool {
	return perms&discordgo.PermissionAdministrator != 0 || perms&discordgo.PermissionManageChannels != 0
}

func validate(bindings map[string]string) error {
	for g, c := range bindings {
		if !isSnowflake(g) || !isSnowflake(c) {
			return fmt.Errorf("%w: guild=%q channel=%q", ErrInvalidID, g, c)
		}
	}
	return nil
}

func isSnowflake(id string) bool {
	if id == "" || len(id) > 20 {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
