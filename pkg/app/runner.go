package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/small-frappuccino/wikiguide/pkg/config"
	"github.com/small-frappuccino/wikiguide/pkg/content"
	"github.com/small-frappuccino/wikiguide/pkg/control"
	"github.com/small-frappuccino/wikiguide/pkg/discord/commands"
	"github.com/small-frappuccino/wikiguide/pkg/discord/paginator"
	"github.com/small-frappuccino/wikiguide/pkg/discord/perf"
	"github.com/small-frappuccino/wikiguide/pkg/discord/router"
	"github.com/small-frappuccino/wikiguide/pkg/discord/session"
	"github.com/small-frappuccino/wikiguide/pkg/log"
	"github.com/small-frappuccino/wikiguide/pkg/metrics"
	"github.com/small-frappuccino/wikiguide/pkg/registry"
	"github.com/small-frappuccino/wikiguide/pkg/service"
	"github.com/small-frappuccino/wikiguide/pkg/storage"
	"github.com/small-frappuccino/wikiguide/pkg/theme"
	"github.com/small-frappuccino/wikiguide/pkg/util"
)

const (
	AppName = "wikiguide"

	shutdownTimeout = 10 * time.Second
)

// Run bootstraps the bot from the configuration at configPath (empty searches
// the default locations) and blocks until an interrupt arrives.
func Run(configPath string) error {
	started := time.Now()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Logger first so subsequent steps can log meaningfully
	if err := log.SetupLogger(log.Options{
		Dir:       cfg.Log.Dir,
		Level:     cfg.Log.Level,
		MaxSizeMB: cfg.Log.MaxSizeMB,
		Console:   cfg.Log.Console,
	}); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}
	defer func() {
		if log.GlobalLogger != nil {
			_ = log.GlobalLogger.Close()
		}
	}()

	if err := theme.SetCurrent(cfg.Theme); err != nil {
		log.ApplicationLogger().Warn("Unknown theme; using default", "theme", cfg.Theme, "error", err)
	}
	perf.SetSlowThreshold(cfg.Gateway.SlowThreshold)

	log.ApplicationLogger().Info(formatStartupMessage(AppName, AppVersion()))

	if err := cfg.RequireToken(); err != nil {
		return err
	}

	store, err := OpenStore(cfg.Registry)
	if err != nil {
		return err
	}
	channels := registry.New(store)

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promRegistry)

	source, closeSource, err := buildSource(cfg)
	if err != nil {
		_ = store.Close()
		return err
	}
	cache, err := content.NewCache(source, content.CacheConfig{
		Capacity:     cfg.Cache.Capacity,
		PageSize:     cfg.Pagination.PageSize,
		FetchTimeout: cfg.Content.LookupTimeout,
		Metrics:      m,
	})
	if err != nil {
		_ = store.Close()
		closeSource()
		return fmt.Errorf("create content cache: %w", err)
	}

	log.DiscordLogger().Info("🔑 Attempting to authenticate with Discord API...")
	discordSession, err := session.NewDiscordSession(cfg.DiscordToken)
	if err != nil {
		_ = store.Close()
		closeSource()
		return fmt.Errorf("create discord session: %w", err)
	}
	defer func() {
		if err := session.Close(discordSession); err != nil {
			log.ErrorLoggerRaw().Error("Failed to close Discord session", "error", err)
		}
	}()
	log.DiscordLogger().Info("Connected to Discord", "user", discordSession.State.User.Username)

	pages := paginator.New(discordSession, paginator.Options{
		IdleTimeout:  cfg.Pagination.IdleTimeout,
		ReplyTimeout: cfg.Pagination.ReplyTimeout,
		Metrics:      m,
	})
	messages := router.New(channels, cache, pages, discordSession, router.Config{
		LookupTimeout: cfg.Content.LookupTimeout,
	})
	commandHandler := commands.NewCommandHandler(discordSession, channels, paginator.DefaultSourceName)
	controlServer := control.NewServer(cfg.Control.Addr, statusView{pages: pages, cache: cache, channels: channels}, promRegistry)

	manager := service.NewServiceManager()
	var removeHandlers []func()
	services := []service.Service{
		service.NewServiceWrapper("registry", service.PriorityHigh,
			func(ctx context.Context) error {
				channels.Load(ctx)
				return nil
			},
			channels.Close),
		service.NewServiceWrapper("content", service.PriorityHigh, nil,
			func(context.Context) error {
				cache.Purge()
				closeSource()
				return nil
			}),
		service.NewServiceWrapper("gateway", service.PriorityNormal,
			func(context.Context) error {
				removeHandlers = append(removeHandlers,
					discordSession.AddHandler(messages.OnMessageCreate),
					discordSession.AddHandler(pages.OnReactionAdd))
				return nil
			},
			func(context.Context) error {
				for _, remove := range removeHandlers {
					remove()
				}
				pages.Close()
				return nil
			}),
		service.NewServiceWrapper("commands", service.PriorityNormal,
			func(context.Context) error {
				return commandHandler.SetupCommands(discordSession.State.User.ID)
			},
			func(context.Context) error {
				return commandHandler.Shutdown()
			}),
	}
	if controlServer != nil {
		services = append(services, service.NewServiceWrapper("control", service.PriorityLow,
			func(context.Context) error { return controlServer.Start() },
			controlServer.Stop))
	}
	for _, svc := range services {
		if err := manager.Register(svc); err != nil {
			return err
		}
	}

	log.ApplicationLogger().Info("🚀 Starting all services...")
	startCtx, cancelStart := context.WithTimeout(context.Background(), shutdownTimeout)
	err = manager.StartAll(startCtx)
	cancelStart()
	if err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	log.ApplicationLogger().Info("🔗 Bot is running", "startup", time.Since(started).Round(time.Millisecond).String())

	util.WaitForInterruptWithCallback(context.Background(), func() {
		log.ApplicationLogger().Info("🛑 Shutting down...")
	})

	stopCtx, cancelStop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelStop()
	if err := manager.StopAll(stopCtx); err != nil {
		log.ErrorLoggerRaw().Error("Some services failed to stop cleanly", "error", err)
	}
	log.ApplicationLogger().Info("👋 Shutdown complete")
	return nil
}

// OpenStore opens the persistence backend selected by cfg.
func OpenStore(cfg config.RegistryConfig) (registry.Store, error) {
	switch cfg.Backend {
	case config.BackendYAML:
		return storage.NewFileStore(cfg.Path), nil
	case config.BackendSQLite, "":
		store := storage.NewStore(cfg.Path)
		if err := store.Init(); err != nil {
			return nil, fmt.Errorf("open registry database: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown registry backend %q", cfg.Backend)
	}
}

// buildSource returns the Wikipedia source, fronted by Redis when configured,
// and a function releasing whatever it opened.
func buildSource(cfg *config.Config) (content.Source, func(), error) {
	var source content.Source = content.NewWikipediaSource(content.WikipediaConfig{
		Language:  cfg.Content.Language,
		UserAgent: cfg.Content.UserAgent,
		Endpoint:  cfg.Content.Endpoint,
		Timeout:   cfg.Content.Timeout,
	})
	if cfg.Redis.URL == "" {
		return source, func() {}, nil
	}

	client, err := content.NewRedisClient(cfg.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	closeClient := func() {
		if err := client.Close(); err != nil {
			log.ErrorLoggerRaw().Error("Failed to close redis client", "error", err)
		}
	}
	return content.NewRedisSource(source, client, cfg.Redis.TTL), closeClient, nil
}

func formatStartupMessage(appName, appVersion string) string {
	appName = strings.TrimSpace(appName)
	appVersion = strings.TrimSpace(appVersion)
	if appVersion == "" || appVersion == "dev" {
		return fmt.Sprintf("🚀 Starting %s...", appName)
	}
	return fmt.Sprintf("🚀 Starting %s %s...", appName, appVersion)
}

type statusView struct {
	pages    *paginator.Paginator
	cache    *content.Cache
	channels *registry.Registry
}

func (s statusView) ActiveSessions() int                 { return s.pages.Active() }
func (s statusView) CachedEntries() int                  { return s.cache.Len() }
func (s statusView) Bindings() []registry.ChannelBinding { return s.channels.Bindings() }
