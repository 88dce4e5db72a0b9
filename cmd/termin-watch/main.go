package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/maltedev/termin-watch/internal/alert"
	"github.com/maltedev/termin-watch/internal/api"
	"github.com/maltedev/termin-watch/internal/browser"
	"github.com/maltedev/termin-watch/internal/config"
	"github.com/maltedev/termin-watch/internal/history"
	"github.com/maltedev/termin-watch/internal/logger"
	"github.com/maltedev/termin-watch/internal/portal"
	"github.com/maltedev/termin-watch/internal/storage"
	"github.com/maltedev/termin-watch/internal/watch"
)

func main() {
	envFile := flag.String("env", "", "Optional .env file to load")
	once := flag.Bool("once", false, "Run a single cycle and exit")
	replay := flag.String("replay", "", "Alert on a saved page (HTML) instead of polling")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)
	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Info("shutdown requested, finishing current cycle")
		cancel()
	}()

	if err := run(ctx, cfg, log, *once, *replay); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("termin-watch failed", "error", err)
		os.Exit(1)
	}
	log.Info("termin-watch stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger, once bool, replay string) error {
	dispatcher := alert.NewDispatcher(cfg.Alert.Title, log, channels(ctx, cfg, log)...)

	var opener watch.Opener
	if replay == "" {
		launcher, err := browser.NewLauncher(browserOptions(cfg), log)
		if err != nil {
			return err
		}
		defer func() {
			if err := launcher.Close(); err != nil {
				log.Warn("failed to stop browser driver", "error", err)
			}
		}()
		opener = watch.OpenerFunc(func(ctx context.Context) (watch.Session, error) {
			sess, err := launcher.Open(ctx)
			if err != nil {
				return nil, err
			}
			return sess, nil
		})
	}

	orch := watch.New(opener, dispatcher, watchOptions(cfg), log)

	if cfg.Debug.Enabled {
		artifacts, err := storage.NewArtifacts(cfg.Debug.Dir)
		if err != nil {
			return err
		}
		orch.WithArtifacts(artifacts)
	}

	if cfg.Database.Enabled {
		db, err := history.New(ctx, history.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.Name,
			MaxConns: int32(cfg.Database.MaxConns),
		})
		if err != nil {
			return fmt.Errorf("failed to connect to history database: %w", err)
		}
		defer db.Close()

		rec := history.NewRecorder(db, log)
		if err := rec.EnsureSchema(ctx); err != nil {
			return err
		}
		orch.WithRecorder(rec)
	}

	if cfg.Server.Addr != "" {
		board := api.NewBoard()
		orch.WithObserver(board)
		stop := serveStatus(cfg, board, log)
		defer stop()
	}

	switch {
	case replay != "":
		f, err := os.Open(replay)
		if err != nil {
			return fmt.Errorf("failed to open replay file: %w", err)
		}
		defer f.Close()
		return orch.Replay(ctx, f).Err
	case once:
		return orch.Cycle(ctx).Err
	default:
		return orch.Run(ctx)
	}
}

func channels(ctx context.Context, cfg *config.Config, log *slog.Logger) []alert.Channel {
	var out []alert.Channel

	if cfg.Alert.EnableToast {
		out = append(out, alert.NewToast(log))
	}
	if cfg.Alert.EnableSound {
		out = append(out, alert.NewSound(cfg.Alert.CustomSound, cfg.Alert.FallbackSound, log))
	}
	if cfg.Alert.EnableTelegram {
		out = append(out, alert.NewTelegram(cfg.Alert.TelegramToken, cfg.Alert.TelegramChatID, log))
	}
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		// An unreachable Redis only loses stream events; alerts still go out
		// on the other channels.
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("redis not reachable, stream events will fail", "addr", cfg.Redis.Addr, "error", err)
		}
		out = append(out, alert.NewStream(client, cfg.Redis.Stream, cfg.Portal.SiteName, log))
	}

	return out
}

func browserOptions(cfg *config.Config) *browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = cfg.Browser.Headless
	opts.Timeout = cfg.Browser.Timeout
	opts.AcceptLanguage = cfg.Browser.AcceptLanguage
	opts.TimezoneID = cfg.Browser.TimezoneID
	opts.Locale = cfg.Browser.Locale
	opts.ProxyServer = cfg.Browser.ProxyServer
	opts.InstallBrowsers = cfg.Browser.InstallBrowsers
	if cfg.Browser.UserAgent != "" {
		opts.UserAgent = cfg.Browser.UserAgent
	}
	return opts
}

func watchOptions(cfg *config.Config) watch.Options {
	popts := portal.DefaultOptions()
	popts.SubmitSelector = cfg.Portal.SubmitSelector
	popts.HeaderSelector = cfg.Portal.HeaderSelector

	opts := watch.DefaultOptions()
	opts.StartURL = cfg.Portal.StartURL
	opts.ServiceLabel = cfg.Portal.ServiceLabel
	opts.TargetCount = cfg.Portal.TargetCount
	opts.SiteName = cfg.Portal.SiteName
	opts.Interval = cfg.Portal.CheckInterval
	opts.Portal = popts
	return opts
}

// serveStatus starts the status server and returns a func that shuts it
// down.
func serveStatus(cfg *config.Config, board *api.Board, log *slog.Logger) func() {
	handlers := api.NewHandlers(board, api.DefaultMaxFailures, log)
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handlers.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("status server starting", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("status server failed", "error", err)
		}
	}()

	return func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("status server shutdown failed", "error", err)
		}
	}
}
