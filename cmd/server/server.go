package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dfryer1193/micropub/blog/application"
	"github.com/dfryer1193/micropub/blog/persistence"
	"github.com/dfryer1193/micropub/internal/middleware"
	"github.com/dfryer1193/micropub/internal/rest"
	"github.com/dfryer1193/micropub/shared/config"
	"github.com/dfryer1193/micropub/shared/db/sqlite"
	gh "github.com/dfryer1193/micropub/shared/github"
	"github.com/dfryer1193/micropub/shared/indieauth"
	"github.com/dfryer1193/micropub/shared/mf2"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

type server struct {
	http     *http.Server
	database *sqlite.SQLiteDB
}

func setupLogging(cfg *config.Config) error {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log_level %q: %w", cfg.LogLevel, err)
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return nil
}

func newServer(cfg *config.Config) (*server, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	article, note, err := cfg.Templates()
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout.Duration}

	database := sqlite.NewSQLiteDB(sqlite.NewSQLiteConfig(cfg.JournalPath))
	if err := database.Connect(); err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	store := gh.NewGithubPostStore(
		gh.NewClient(httpClient, cfg.GithubToken),
		cfg.GithubUser,
		cfg.GithubRepo,
		gh.WithBranch(cfg.GithubBranch),
		gh.WithCommitAuthor(cfg.CommitName, cfg.CommitEmail),
	)

	paths, err := application.NewPathDeriver(cfg.SiteURL, loc, article, note, mf2.NewPageKindDetector(httpClient))
	if err != nil {
		database.Close()
		return nil, err
	}

	service := application.NewMicropubService(store, paths, cfg.SiteURL, cfg.MediaDir,
		application.WithJournal(persistence.NewCommitJournal(database.DB())),
	)

	if cfg.MediaEndpoint == "" {
		log.Warn().Msg("media_endpoint is not set; q=config will not advertise the media endpoint")
	}
	info := application.ServerInfo{
		Me:            cfg.Me,
		TokenEndpoint: cfg.TokenEndpoint,
		MediaEndpoint: cfg.MediaEndpoint,
		SyndicateTo:   cfg.SyndicateTo,
	}
	verifier := indieauth.NewVerifier(httpClient, cfg.TokenEndpoint, cfg.Me)

	var home *rest.HomeHandler
	if cfg.ReadmePath != "" || cfg.StaticDir != "" {
		home = rest.NewHomeHandler(application.NewPageRenderer(rest.StaticPrefix), cfg.ReadmePath, cfg.StaticDir)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.LoggingMiddleware())
	router.Use(gin.CustomRecovery(middleware.HandlePanics()))
	rest.NewApi(router, rest.NewMicropubHandler(service, info, verifier), home)

	log.Info().
		Str("repo", store.GetRepoFullName()).
		Str("site_url", cfg.SiteURL).
		Str("media_dir", strings.Trim(cfg.MediaDir, "/")).
		Msg("Micropub endpoint configured")

	return &server{
		http: &http.Server{
			Addr:    cfg.Addr,
			Handler: router,
		},
		database: database,
	}, nil
}

// Run serves until ctx is cancelled or the process receives SIGINT or SIGTERM.
func (s *server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msg("Starting server on " + s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	log.Info().Msg("Server stopped")
	return nil
}

func (s *server) Close() error {
	return s.database.Close()
}
