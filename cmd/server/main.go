// Command server runs the local todo client: it resolves the remote session,
// fetches the signed-in user's todos, and serves the UI on a local address.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/diewo77/go-todos/internal/api"
	"github.com/diewo77/go-todos/internal/config"
	"github.com/diewo77/go-todos/internal/server"
	"github.com/diewo77/go-todos/internal/session"
	"github.com/diewo77/go-todos/internal/state"
	"github.com/diewo77/go-todos/internal/todos"
)

func main() {
	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()
	log := newLogger(cfg)

	st, err := state.Open(cfg.StateDBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.StateDBPath).Msg("could not open state database")
	}

	client, err := api.New(cfg.APIBaseURL, cfg.APITimeout, log)
	if err != nil {
		log.Fatal().Err(err).Msg("could not build API client")
	}
	// A session cookie persisted by a previous run lets the startup fetch
	// resolve straight to Authenticated.
	if cookies, err := st.LoadCookies(); err == nil && len(cookies) > 0 {
		client.SetCookies(cookies)
	}

	sessions := session.New(client, log)
	cache := todos.NewCache(client, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The cache reacts to session transitions; the dependent todo fetch can
	// therefore never start before the profile fetch has resolved.
	go cache.Run(ctx, sessions)
	go sessions.Initialize(ctx)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      server.New(server.Deps{API: client, Sessions: sessions, Cache: cache, State: st, Log: log}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Str("api", cfg.APIBaseURL).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("server stopped gracefully")
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if cfg.Dev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}
