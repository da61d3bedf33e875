package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/and161185/drinkless/internal/client"
	"github.com/and161185/drinkless/internal/config"
	"github.com/and161185/drinkless/internal/content"
	"github.com/and161185/drinkless/internal/identity"
	"github.com/and161185/drinkless/internal/jar"
	"github.com/and161185/drinkless/internal/kv"
	"github.com/and161185/drinkless/internal/ledger"
	"github.com/and161185/drinkless/internal/profile"
	"github.com/and161185/drinkless/internal/streak"
	"github.com/and161185/drinkless/internal/tasks"
	"github.com/and161185/drinkless/internal/wallet"
)

// app is the device state of one command run.
type app struct {
	cfg     config.Device
	log     *zap.Logger
	loc     *time.Location
	catalog *content.Catalog
	session identity.TokenFile

	cache   kv.Cache
	conn    *grpc.ClientConn
	closers []func() error

	profile *profile.State
	wallet  *wallet.Wallet
	jar     *jar.Jar
	streak  *streak.Tracker
	flags   *tasks.Store
	ledger  *ledger.Ledger
}

func newLogger(debug bool) *zap.Logger {
	if debug {
		l, err := zap.NewDevelopment()
		if err == nil {
			return l
		}
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func openCache(ctx context.Context, cfg config.Device) (kv.Cache, func() error, error) {
	switch cfg.Cache {
	case "memory":
		return kv.NewMemory(), func() error { return nil }, nil
	case "redis":
		c, err := kv.NewRedis(ctx, cfg.RedisURL, "drinkless:")
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.CachePath), 0o700); err != nil {
			return nil, nil, err
		}
		c, err := kv.OpenSQLite(ctx, cfg.CachePath)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown cache %q", cfg.Cache)
}

// dial connects to the server; the bearer token is read from the session
// file on every call.
func (a *app) dial() (*client.Client, error) {
	if a.conn == nil {
		cc, err := client.Dial(a.cfg.ServerAddr, client.TLS{
			CAPath:     a.cfg.CAPath,
			SkipVerify: a.cfg.SkipVerify,
			Plaintext:  a.cfg.Plaintext,
		})
		if err != nil {
			return nil, err
		}
		a.conn = cc
		a.closers = append(a.closers, cc.Close)
	}
	return client.New(a.conn, func() string {
		s, err := a.session.Session()
		if err != nil {
			return ""
		}
		return s.AccessToken
	}), nil
}

// openApp wires the cache, the profile state and every reward component.
// The server is only contacted when a session is saved.
func openApp(ctx context.Context, opt *options) (*app, error) {
	loc, err := opt.cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("time zone: %w", err)
	}
	a := &app{
		cfg:     opt.cfg,
		log:     newLogger(opt.debug),
		loc:     loc,
		catalog: content.Default(),
		session: identity.TokenFile{Path: opt.cfg.SessionPath},
	}

	cache, closeCache, err := openCache(ctx, opt.cfg)
	if err != nil {
		return nil, err
	}
	a.cache = cache
	a.closers = append(a.closers, closeCache)

	var remote profile.Remote
	if _, ok := a.session.UserID(); ok {
		c, err := a.dial()
		if err != nil {
			a.Close()
			return nil, err
		}
		remote = c
	}

	a.profile = profile.New(cache, remote, a.session, profile.Options{Timeout: opt.cfg.Timeout, Log: a.log})
	a.wallet = wallet.New(a.profile, a.catalog, a.log)
	a.jar = jar.New(cache, a.wallet, a.log)
	a.streak = streak.New(a.profile, cache, loc, time.Now, a.log)
	a.flags = tasks.NewStore(cache, a.log)
	a.ledger = ledger.New(cache, a.profile, a.wallet, a.jar, a.streak, a.flags, ledger.Options{
		Catalog:  a.catalog,
		Location: loc,
		Log:      a.log,
	})
	return a, nil
}

// Close releases the cache and the connection.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Debug("close", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}

// withApp runs fn against a freshly opened app.
func withApp(ctx context.Context, opt *options, fn func(*app) error) error {
	a, err := openApp(ctx, opt)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
