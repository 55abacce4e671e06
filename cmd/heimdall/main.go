package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	"heimdall/api"
	"heimdall/config"
	"heimdall/handlers"
	"heimdall/internal/logging"
	"heimdall/services/accounts"
	"heimdall/services/capability"
	"heimdall/services/music"
	"heimdall/services/profiles"
	"heimdall/services/sessions"
	"heimdall/services/watchlist"
	"heimdall/services/watchparty"
)

const shutdownTimeout = 10 * time.Second

func main() {
	app := &cli.Command{
		Name:    "heimdall",
		Usage:   "Media browsing backend with TMDB metadata, music streaming and lyrics",
		Version: handlers.BackendVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML or YAML configuration file",
			},
			&cli.StringFlag{Name: "addr", Usage: "Listen address"},
			&cli.StringFlag{Name: "data-dir", Usage: "Directory holding users, profiles and watchlists"},
			&cli.BoolFlag{Name: "portable", Usage: "Keep data next to the executable"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "frontend-dir", Usage: "Directory with the web UI"},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:      "init",
				Usage:     "Write an example config file",
				ArgsUsage: "[path]",
				Action:    initConfig,
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "heimdall: %v\n", err)
		os.Exit(1)
	}
}

func initConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		path = "config.toml"
	}
	if err := config.CreateConfigFile(path); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

// loadSettings applies file, environment and flags in that order.
func loadSettings(cmd *cli.Command) (config.Settings, error) {
	path := cmd.String("config")
	if path == "" {
		path = config.FindConfigFile(os.Getenv(config.EnvDataDir))
	}
	settings, err := config.Load(path)
	if err != nil {
		return settings, err
	}
	config.ApplyEnv(&settings, os.Getenv)

	if cmd.IsSet("addr") {
		settings.Server.Addr = cmd.String("addr")
	}
	if cmd.IsSet("data-dir") {
		settings.Data.Dir = cmd.String("data-dir")
	}
	if cmd.IsSet("portable") {
		settings.Data.Portable = cmd.Bool("portable")
	}
	if cmd.IsSet("log-level") {
		settings.Log.Level = cmd.String("log-level")
	}
	if cmd.IsSet("frontend-dir") {
		settings.Server.FrontendDir = cmd.String("frontend-dir")
	}
	return settings, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	fs := afero.NewOsFs()
	paths := config.HostPaths()
	dataDir := config.ChooseDataDir(settings, paths)
	if err := fs.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	logger, closer := logging.Setup(settings.Log, dataDir)
	defer closer.Close()

	if settings.Data.MigrateLegacy {
		if _, err := config.MigrateLegacyData(fs, paths.LegacyDir(), dataDir, logging.Component(logger, "migrate")); err != nil {
			logger.Warn().Err(err).Msg("legacy data migration failed")
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := buildDeps(ctx, settings, fs, dataDir, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              settings.Server.Addr,
		Handler:           newRouter(settings, deps, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("data_dir", dataDir).
			Str("version", handlers.BackendVersion()).
			Msg("heimdall listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}
	return nil
}

// deps holds the long-lived services behind the HTTP routes.
type deps struct {
	accounts  *accounts.Service
	sessions  *sessions.Service
	profiles  *profiles.Service
	watchlist *watchlist.Service
	hub       *watchparty.Hub
	router    *capability.Router
	limiter   *api.IPRateLimiter
}

func buildDeps(ctx context.Context, s config.Settings, fs afero.Fs, dataDir string, logger zerolog.Logger) (*deps, error) {
	accountsSvc, err := accounts.NewService(fs, dataDir)
	if err != nil {
		return nil, fmt.Errorf("accounts: %w", err)
	}
	sessionsSvc, err := sessions.NewService(fs, dataDir, s.Auth.SessionTTL.Duration)
	if err != nil {
		return nil, fmt.Errorf("sessions: %w", err)
	}
	sessionsSvc.StartCleanup(ctx)

	profilesSvc, err := profiles.NewService(fs, dataDir)
	if err != nil {
		return nil, fmt.Errorf("profiles: %w", err)
	}
	watchlistSvc, err := watchlist.NewService(fs, dataDir, logging.Component(logger, "watchlist"))
	if err != nil {
		return nil, fmt.Errorf("watchlist: %w", err)
	}

	binary := s.Extractor.Binary
	if binary != "" && !filepath.IsAbs(binary) {
		if _, err := os.Stat(filepath.Join(dataDir, binary)); err == nil {
			binary = filepath.Join(dataDir, binary)
		}
	}
	table, err := capability.BuildTable(s, &http.Client{}, music.NewExecRunner(binary), logger)
	if err != nil {
		return nil, err
	}
	if s.TMDB.APIKey == "" {
		logger.Warn().Msgf("no TMDB API key configured; set %s or tmdb.api_key", config.EnvTMDBKey)
	}

	hub := watchparty.NewHub(logging.Component(logger, "watchparty"))
	hub.StartCleanup(ctx)

	limiter := api.NewLoginLimiter(s.Auth.LoginRatePerMinute, s.Auth.LoginBurst)
	limiter.StartCleanup(ctx)

	logger.Debug().Int("accounts", accountsSvc.Count()).Int("sessions", sessionsSvc.Count()).Msg("state loaded")

	return &deps{
		accounts:  accountsSvc,
		sessions:  sessionsSvc,
		profiles:  profilesSvc,
		watchlist: watchlistSvc,
		hub:       hub,
		router:    capability.NewRouter(table, logging.Component(logger, "capability")),
		limiter:   limiter,
	}, nil
}
