package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/darve-social/darve-server/modules/access"
	"github.com/darve-social/darve-server/modules/gatewaytx"
	"github.com/darve-social/darve-server/modules/ledger"
	"github.com/darve-social/darve-server/modules/notification"
	"github.com/darve-social/darve-server/modules/taskreward"
	"github.com/darve-social/darve-server/modules/walletregistry"
	"github.com/darve-social/darve-server/persist"
	"github.com/darve-social/darve-server/pkg/api"
	"github.com/darve-social/darve-server/store"
	"github.com/darve-social/darve-server/types"
)

// daemon wires every C1-C8 component over one shared store, the shape
// grounded on the teacher's pkg/daemon.Daemon (one bolt file, one set of
// modules, one API server, start in dependency order, stop in reverse).
type daemon struct {
	cfg Config
	log *persist.Logger
	db  *store.DB

	registry *walletregistry.Registry
	ledger   *ledger.Ledger
	gateway  *gatewaytx.Gateway
	tasks    *taskreward.Engine
	notify   *notification.Service
	access   *access.Control
	presence *access.Presence
	sweeper  *taskreward.Sweeper
	server   *api.Server
}

// runDaemon bootstraps every component and blocks serving the HTTP/
// websocket surface until an interrupt or terminate signal arrives, then
// shuts down in reverse dependency order.
func runDaemon(cfg Config) error {
	if err := os.MkdirAll(cfg.PersistDir, 0750); err != nil {
		return fmt.Errorf("creating persist dir: %w", err)
	}

	log, err := persist.NewFileLogger("darveserverd", filepath.Join(cfg.PersistDir, "darveserverd.log"), true)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer log.Close()

	d, err := newDaemon(cfg, log)
	if err != nil {
		return err
	}
	return d.run()
}

func newDaemon(cfg Config, log *persist.Logger) (*daemon, error) {
	db, err := store.Open(cfg.PersistDir, log)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	reg := walletregistry.New(db, log)
	if err := reg.Bootstrap(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrapping wallet registry: %w", err)
	}

	l := ledger.New(db, log)
	gw := gatewaytx.New(db, l, reg, log)
	tasks := taskreward.New(db, l, log)
	notify := notification.New(db, log)
	acl := access.New(db)

	// A user's online/offline transition (spec §4.6) is broadcast live,
	// not persisted — it rides the same hub a UserNotification's delivery
	// does, without materializing a notification row for it.
	presence := access.NewPresence(func(userID types.ID, online bool) {
		notify.Hub().Publish(types.BroadcastEvent{
			UserID:    userID,
			Event:     types.EventUserStatus,
			Receivers: []types.ID{userID},
			Content:   map[string]bool{"online": online},
		})
	})

	interval, err := time.ParseDuration(cfg.SweepInterval)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("parsing sweep_interval: %w", err)
	}
	sweeper := taskreward.NewSweeper(tasks, interval, cfg.SweepBatch)

	identity := api.NewHeaderIdentity(cfg.UserIDHeader)
	server := api.NewServer(identity, reg, l, gw, tasks, notify, acl, presence, log)

	return &daemon{
		cfg:      cfg,
		log:      log,
		db:       db,
		registry: reg,
		ledger:   l,
		gateway:  gw,
		tasks:    tasks,
		notify:   notify,
		access:   acl,
		presence: presence,
		sweeper:  sweeper,
		server:   server,
	}, nil
}

func (d *daemon) run() error {
	if err := d.sweeper.Start(); err != nil {
		return fmt.Errorf("starting sweeper: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		d.log.Printf("serving API on %s", d.cfg.APIAddr)
		if err := d.server.Serve(d.cfg.APIAddr); err != nil && err != http.ErrServerClosed {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		d.shutdown()
		return err
	case <-sig:
		d.log.Println("received shutdown signal")
		d.shutdown()
		return <-serveErr
	}
}

func (d *daemon) shutdown() {
	if err := d.server.Close(); err != nil {
		d.log.Printf("closing API server: %v", err)
	}
	if err := d.sweeper.Stop(); err != nil {
		d.log.Printf("stopping sweeper: %v", err)
	}
	if err := d.db.Close(); err != nil {
		d.log.Printf("closing store: %v", err)
	}
}
