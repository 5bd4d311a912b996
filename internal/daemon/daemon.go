// Package daemon wires the extension connection, the rule store, the event
// router and the group reconciler into the long-running autogroup service.
package daemon

import (
	"context"
	"time"

	"github.com/lotas/autogroup/internal/applog"
	"github.com/lotas/autogroup/internal/config"
	"github.com/lotas/autogroup/internal/grouper"
	"github.com/lotas/autogroup/internal/router"
	"github.com/lotas/autogroup/internal/rules"
	"github.com/lotas/autogroup/internal/server"
	"github.com/lotas/autogroup/internal/storage"
	"golang.org/x/sync/errgroup"
)

// Daemon routes extension events to the grouping pipeline and keeps
// existing groups in step with rule edits.
type Daemon struct {
	cfg        *config.Config
	srv        *server.Server
	store      *storage.RuleStore
	reconciler *grouper.Reconciler
	router     *router.Router
}

// New builds a Daemon around srv and store.
func New(cfg *config.Config, srv *server.Server, store *storage.RuleStore) *Daemon {
	browser := server.NewBrowser(srv)
	reconciler := grouper.New(browser)
	pipeline := router.NewPipeline(store, reconciler)
	rcfg := router.Config{
		CreateDelay:   cfg.Router.CreateDelay,
		UpdateDelay:   cfg.Router.UpdateDelay,
		DedupCapacity: cfg.Router.DedupCapacity,
		DedupTrimTo:   cfg.Router.DedupTrimTo,
		TaskTimeout:   cfg.Router.TaskTimeout,
	}
	return &Daemon{
		cfg:        cfg,
		srv:        srv,
		store:      store,
		reconciler: reconciler,
		router:     router.New(rcfg, browser, pipeline),
	}
}

// Router exposes the event router, mainly for tests.
func (d *Daemon) Router() *router.Router {
	return d.router
}

// Run listens on the configured port and serves until ctx is done or the
// listener fails.
func (d *Daemon) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.srv.ListenAndServe(ctx) })
	g.Go(func() error { return d.Serve(ctx) })
	return g.Wait()
}

// Serve processes events from an already listening server until ctx is
// done.
func (d *Daemon) Serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.router.Run(ctx) })
	g.Go(func() error {
		d.watchRules(ctx)
		return nil
	})
	g.Go(func() error {
		d.dispatch(ctx)
		return nil
	})
	return g.Wait()
}

func (d *Daemon) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-d.srv.Messages():
			d.handle(ctx, msg)
		}
	}
}

func (d *Daemon) handle(ctx context.Context, msg server.IncomingMsg) {
	switch msg.Type {
	case server.EventTabCreated:
		tab, err := server.ParseTab(msg.Tab)
		if err != nil {
			applog.Error("daemon.parse", err, "type", msg.Type)
			return
		}
		d.router.TabCreated(tab)
	case server.EventTabUpdated:
		d.router.TabUpdated(msg.TabID, msg.URL)
	case server.EventTabRemoved:
		d.router.TabRemoved(msg.TabID)
	case server.EventSnapshot:
		d.onConnect(ctx, msg)
	default:
		applog.Info("daemon.ignore", "type", msg.Type)
	}
}

// onConnect runs when the extension (re)connects and sends its snapshot.
// Rule edits made while disconnected are applied to existing groups, and
// with sweep_on_connect every open tab is queued for grouping.
func (d *Daemon) onConnect(ctx context.Context, msg server.IncomingMsg) {
	d.reconcile(ctx, "connect")

	if !d.cfg.Router.SweepOnConnect {
		return
	}
	data, err := server.ParseSnapshot(msg)
	if err != nil {
		applog.Error("daemon.snapshot", err)
		return
	}
	queued := 0
	for _, tab := range data.AllTabs {
		if !rules.Eligible(tab.URL) {
			continue
		}
		d.router.TabUpdated(tab.ID, tab.URL)
		queued++
	}
	applog.Info("daemon.sweep", "tabs", len(data.AllTabs), "queued", queued)
}

func (d *Daemon) watchRules(ctx context.Context) {
	for rs := range d.store.Watch(ctx, d.cfg.Rules.WatchInterval) {
		d.apply(ctx, rs, "rules-changed")
	}
}

func (d *Daemon) reconcile(ctx context.Context, reason string) {
	rs, found, err := d.store.Load()
	if err != nil {
		applog.Error("daemon.reconcile", err, "reason", reason)
		return
	}
	if !found {
		rs = rules.Defaults()
	}
	d.apply(ctx, rs, reason)
}

func (d *Daemon) apply(ctx context.Context, rs []rules.Rule, reason string) {
	if !d.srv.Connected() {
		applog.Info("daemon.reconcile.skip", "reason", reason)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	n, err := d.reconciler.ReconcileAll(ctx, rs)
	if err != nil {
		applog.Error("daemon.reconcile", err, "reason", reason, "updated", n)
		return
	}
	applog.Info("daemon.reconcile", "reason", reason, "updated", n)
}
