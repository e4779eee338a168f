package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/chedi-ouerghi/bigscreen/app"
	"github.com/chedi-ouerghi/bigscreen/config"
	"github.com/chedi-ouerghi/bigscreen/database"
	"github.com/chedi-ouerghi/bigscreen/httpx"
	"github.com/chedi-ouerghi/bigscreen/log"
	"github.com/chedi-ouerghi/bigscreen/mail"
	"github.com/chedi-ouerghi/bigscreen/routes"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	auth := httpx.NewAuth(db, cfg.TokenSecret, cfg.TokenTTL)
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		err = auth.EnsureAdmin(context.Background(), "admin", cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			log.Fatal("main.auth.ensure_admin:", err)
		}
	}

	app := app.App{
		DB:     db,
		Config: cfg,
		Auth:   auth,
		Mailer: mail.NewSender(cfg),
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
