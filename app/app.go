package app

import (
	"database/sql"

	"github.com/chedi-ouerghi/bigscreen/config"
	"github.com/chedi-ouerghi/bigscreen/httpx"
	"github.com/chedi-ouerghi/bigscreen/mail"
)

type App struct {
	*sql.DB
	config.Config
	Auth   *httpx.Auth
	Mailer mail.Sender
}
