package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/cardduel/apps/go-server/internal/auth"
	"github.com/robalobadob/cardduel/apps/go-server/internal/config"
	"github.com/robalobadob/cardduel/apps/go-server/internal/engine"
	"github.com/robalobadob/cardduel/apps/go-server/internal/httpserver"
	"github.com/robalobadob/cardduel/apps/go-server/internal/store"
)

func main() {
	cfg := config.Load()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := httpserver.NewHub()
	opts := httpserver.Options{
		Hub:          hub,
		CookieName:   cfg.CookieName,
		ClientOrigin: cfg.ClientOrigin,
		Production:   cfg.Production,
	}

	var engOpts []engine.Option
	var db *store.SQLite
	recCtx, stopRecorder := context.WithCancel(context.Background())
	recDone := make(chan struct{})
	if cfg.DBPath != "" {
		var err error
		db, err = store.OpenSQLite(cfg.DBPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open database")
		}
		rec := store.NewRecorder(db, 256)
		go func() {
			rec.Run(recCtx)
			close(recDone)
		}()
		engOpts = append(engOpts, engine.WithRecorder(rec))
		opts.Results = db
		opts.Auth = auth.NewService(db, cfg.JWTSecret, time.Duration(cfg.JWTExpiresDays)*24*time.Hour)
	} else {
		close(recDone)
		log.Warn().Msg("DB_PATH empty: accounts and match history disabled")
	}

	svc := engine.NewService(cfg.Engine, hub, engOpts...)
	opts.Game = svc
	engCtx, stopEngine := context.WithCancel(context.Background())
	engDone := make(chan struct{})
	go func() {
		_ = svc.Run(engCtx)
		close(engDone)
	}()

	srv := httpserver.New(opts)
	go func() {
		log.Info().Str("port", cfg.Port).
			Int("initialHP", cfg.Engine.Rules.InitialHP).
			Int("handSize", cfg.Engine.Rules.HandSize).
			Msg("starting go-server")
		if err := srv.Start(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("server exited")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	// Every socket's disconnect is queued by now; stopping the loop runs the
	// queue (and records the forfeits) before Run returns.
	stopEngine()
	<-engDone
	stopRecorder()
	<-recDone
	if db != nil {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Msg("close database")
		}
	}
}
