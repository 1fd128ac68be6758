package errutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/wikiguide/pkg/log"
)

// HandleDiscordError executes fn and logs any error it returns as a Discord API failure.
// The error is returned unmodified so callers can still inspect it.
func HandleDiscordError(operation string, fn func() error) error {
	if fn == nil {
		return fmt.Errorf("nil function provided")
	}

	err := fn()
	if err == nil {
		return nil
	}

	log.DiscordLogger().Error("Discord operation failed", "operation", operation, "error", err)
	return err
}

// HandleConfigError executes fn and wraps any error with the operation and path.
func HandleConfigError(operation, path string, fn func() error) error {
	if fn == nil {
		return fmt.Errorf("nil function provided")
	}

	err := fn()
	if err == nil {
		return nil
	}

	log.ApplicationLogger().Error("Config operation failed", "operation", operation, "path", path, "error", err)
	return fmt.Errorf("config %s %s: %w", operation, path, err)
}

// IsNotFound reports whether err is a Discord REST 404 (deleted message, unknown channel).
func IsNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode == http.StatusNotFound
	}
	return false
}
