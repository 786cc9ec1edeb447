package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/SkillMap/internal/certgen"
	"github.com/atinyakov/SkillMap/internal/client/gateway"
	"github.com/atinyakov/SkillMap/internal/client/goals"
	"github.com/atinyakov/SkillMap/internal/client/session"
	"github.com/atinyakov/SkillMap/internal/config"
	"github.com/atinyakov/SkillMap/internal/db"
	"github.com/atinyakov/SkillMap/internal/logger"
)

// cleanInterval is how often SQL session stores drop expired sessions.
const cleanInterval = 10 * time.Minute

// app is the wired client: one session store and one goal store sharing
// a gateway.
type app struct {
	log     *zap.Logger
	session *session.Store
	goals   *goals.Store

	conn *sql.DB
}

// newApp builds the client from o. Log lines go to logOut. The returned
// app must be closed.
func newApp(ctx context.Context, o *config.Options, logOut io.Writer) (*app, error) {
	l := logger.New()
	if err := l.InitConsole(o.LogLevel, logOut); err != nil {
		return nil, err
	}
	log := l.Log

	a := &app{log: log}
	var backend session.Backend
	switch o.SessionBackend {
	case config.BackendFile:
		backend = session.NewFileBackend(o.SessionPath, log)
	default:
		conn, err := db.Open(ctx, o.SessionBackend, o.SessionDSN)
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		if err := db.Migrate(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, err
		}
		db.StartExpiredSessionCleaner(ctx, conn, cleanInterval, log)
		a.conn = conn
		backend = session.NewSQLBackend(conn, o.Profile, o.PollInterval, log)
	}

	gw := gateway.New(o, log)
	if o.CACert != "" {
		pool, err := certgen.LoadCertPool(o.CACert)
		if err != nil {
			a.Close()
			return nil, err
		}
		gw.HTTP = &http.Client{Transport: &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12},
		}}
	}
	a.session = session.New(backend, gw, log)
	gw.Credentials = a.session
	a.goals = goals.New(gw, o.MaxUploadBytes, log)
	a.session.OnLogout(a.goals.Reset)

	if err := a.session.Load(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("load session: %w", err)
	}
	return a, nil
}

// Close releases the session database, if any, and flushes the log.
func (a *app) Close() {
	if a.conn != nil {
		_ = a.conn.Close()
	}
	_ = a.log.Sync()
}
