package core

import (
	"context"
	"log/slog"
	"sort"

	"github.com/bwmarrin/discordgo"
)

// Command is a top-level slash command.
type Command interface {
	Name() string
	Description() string
	Options() []*discordgo.ApplicationCommandOption
	Handle(ctx *Context) error
	RequiresGuild() bool
}

// PermissionedCommand is implemented by commands that Discord should hide
// from members lacking the given permission bits.
type PermissionedCommand interface {
	DefaultMemberPermissions() int64
}

// Context carries everything a command needs for one interaction.
type Context struct {
	context.Context
	Interaction *discordgo.InteractionCreate
	Responder   *Responder
	Logger      *slog.Logger
	GuildID     string
	UserID      string
	// Permissions are the invoking member's guild-level permission bits when
	// the guild is in state, else the channel-scoped bits. Zero outside guilds.
	Permissions int64
}

// CommandRegistry holds the commands by name.
type CommandRegistry struct {
	commands map[string]Command
}

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{commands: make(map[string]Command)}
}

// Register adds cmd, replacing any command with the same name.
func (r *CommandRegistry) Register(cmd Command) {
	r.commands[cmd.Name()] = cmd
}

func (r *CommandRegistry) GetCommand(name string) (Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

// All returns the commands sorted by name.
func (r *CommandRegistry) All() []Command {
	out := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// CommandError is a failure whose message is safe to show to the user.
type CommandError struct {
	Message   string
	Ephemeral bool
}

func (e *CommandError) Error() string {
	return e.Message
}

func NewCommandError(message string, ephemeral bool) *CommandError {
	return &CommandError{Message: message, Ephemeral: ephemeral}
}
