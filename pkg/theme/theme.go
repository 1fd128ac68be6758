// Package theme holds the embed colors used by the bot's replies.
package theme

import (
	"fmt"
	"sync"
)

// Color is the int value used by discordgo.MessageEmbed.Color
type Color = int

// Theme holds the color roles used across the bot.
type Theme struct {
	// Human-friendly name for the theme (unique within the registry).
	Name string

	Article Color // Paginated article pages
	Help    Color
	Notice  Color // "not found" and similar informational replies
	Error   Color
}

// Clone returns a deep copy of the theme.
func (t *Theme) Clone() *Theme {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

func (t *Theme) ensureDefaults() {
	if t.Article == 0 {
		t.Article = 0x3498DB
	}
	if t.Help == 0 {
		t.Help = 0x5865F2
	}
	if t.Notice == 0 {
		t.Notice = 0x99AAB5
	}
	if t.Error == 0 {
		t.Error = 0xED4245
	}
}

func defaultTheme() *Theme {
	th := &Theme{Name: "default"}
	th.ensureDefaults()
	return th
}

var (
	mu        sync.RWMutex
	registry  = map[string]*Theme{}
	currentTh = defaultTheme()
)

func init() {
	MustRegister(&Theme{
		Name:    "dark",
		Article: 0x2C3E50,
		Help:    0x34495E,
		Notice:  0x7F8C8D,
	})
}

// Register adds a theme to the registry. It returns an error if the name is empty or already registered.
func Register(t *Theme) error {
	if t == nil {
		return fmt.Errorf("theme: cannot register nil theme")
	}
	if t.Name == "" {
		return fmt.Errorf("theme: name is required")
	}
	cp := t.Clone()
	cp.ensureDefaults()

	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[cp.Name]; exists || cp.Name == "default" {
		return fmt.Errorf("theme: theme %q already registered", cp.Name)
	}
	registry[cp.Name] = cp
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(t *Theme) {
	if err := Register(t); err != nil {
		panic(err)
	}
}

// SetCurrent switches the active theme by name. Empty or "default" restores the built-in theme.
func SetCurrent(name string) error {
	mu.Lock()
	defer mu.Unlock()
	if name == "" || name == "default" {
		currentTh = defaultTheme()
		return nil
	}
	th, ok := registry[name]
	if !ok {
		return fmt.Errorf("theme: theme %q not found", name)
	}
	currentTh = th.Clone()
	return nil
}

// Current returns a copy of the current theme.
func Current() *Theme {
	mu.RLock()
	defer mu.RUnlock()
	return currentTh.Clone()
}

func Article() Color { return Current().Article }
func Help() Color    { return Current().Help }
func Notice() Color  { return Current().Notice }
func Error() Color   { return Current().Error }
