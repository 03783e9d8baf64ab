package app

import (
	"database/sql"

	"github.com/carebridge/checkin/config"
	"github.com/carebridge/checkin/store"
	"github.com/carebridge/checkin/submission"
	"github.com/go-chi/oauth"
)

type App struct {
	*sql.DB
	*oauth.BearerServer
	config.Config

	Store     store.Store
	Committer *submission.Committer
}
