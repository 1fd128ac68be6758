package perf

import (
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/small-frappuccino/wikiguide/pkg/log"
)

// DefaultSlowThreshold is used until SetSlowThreshold is called.
const DefaultSlowThreshold = 200 * time.Millisecond

var slowThreshold atomic.Int64

func init() {
	slowThreshold.Store(int64(DefaultSlowThreshold))
}

// SetSlowThreshold changes when a handler counts as slow. Zero or negative disables tracking.
func SetSlowThreshold(d time.Duration) {
	slowThreshold.Store(int64(d))
}

// StartGatewayEvent tracks how long a gateway handler takes and logs only when slow.
func StartGatewayEvent(event string, attrs ...slog.Attr) func() {
	threshold := time.Duration(slowThreshold.Load())
	if threshold <= 0 {
		return func() {}
	}

	start := time.Now()
	return func() {
		duration := time.Since(start)
		if duration < threshold {
			return
		}
		name := strings.TrimSpace(event)
		if name == "" {
			name = "unknown"
		}
		args := make([]any, 0, len(attrs)+3)
		args = append(args, slog.String("event", name), slog.Duration("duration", duration), slog.Int64("duration_ms", duration.Milliseconds()))
		for _, attr := range attrs {
			args = append(args, attr)
		}
		log.DiscordLogger().Warn("slow gateway event handler", args...)
	}
}
