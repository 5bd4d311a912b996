// Package router turns browser tab events into grouping work: it delays each
// event until the tab's URL settles, drops stale and repeated events, and
// runs the surviving ones through the Pipeline one at a time.
package router

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lotas/autogroup/internal/applog"
	"github.com/lotas/autogroup/internal/types"
)

// Config holds the router's timing and memory limits.
type Config struct {
	CreateDelay   time.Duration // wait before re-reading a newly created tab
	UpdateDelay   time.Duration // wait before confirming a URL change
	DedupCapacity int           // processed keys held before trimming
	DedupTrimTo   int           // processed keys kept after trimming
	TaskTimeout   time.Duration // bound on one task's browser calls
}

// DefaultConfig returns the standard delays and dedup limits.
func DefaultConfig() Config {
	return Config{
		CreateDelay:   500 * time.Millisecond,
		UpdateDelay:   300 * time.Millisecond,
		DedupCapacity: 100,
		DedupTrimTo:   50,
		TaskTimeout:   10 * time.Second,
	}
}

// TabFetcher re-reads a tab's current state from the browser.
type TabFetcher interface {
	GetTab(ctx context.Context, tabID int) (*types.Tab, error)
}

// Processor handles a tab whose URL is confirmed.
type Processor interface {
	Process(ctx context.Context, tab *types.Tab) Outcome
}

type taskKind int

const (
	taskCreated taskKind = iota
	taskUpdated
)

type task struct {
	kind  taskKind
	tabID int
	gen   uint64
	url   string // expected URL; updates only
}

// Router schedules and runs tab tasks. Each tab has a generation counter;
// a newer event for a tab invalidates any task still pending for it.
type Router struct {
	cfg   Config
	tabs  TabFetcher
	proc  Processor
	seen  *SeenCache
	tasks chan task
	stop  chan struct{}
	once  sync.Once

	mu   sync.Mutex
	gens map[int]uint64

	pending sync.WaitGroup
}

// New returns a Router. Call Run to start processing.
func New(cfg Config, tabs TabFetcher, proc Processor) *Router {
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = DefaultConfig().TaskTimeout
	}
	return &Router{
		cfg:   cfg,
		tabs:  tabs,
		proc:  proc,
		seen:  NewSeenCache(cfg.DedupCapacity, cfg.DedupTrimTo),
		tasks: make(chan task, 256),
		stop:  make(chan struct{}),
		gens:  make(map[int]uint64),
	}
}

// DedupKey is the processed-set key for a tab and URL.
func DedupKey(tabID int, url string) string {
	return fmt.Sprintf("%d_%s", tabID, url)
}

// Seen returns the processed-key cache.
func (r *Router) Seen() *SeenCache {
	return r.seen
}

// TabCreated schedules a delayed re-read of a new tab.
func (r *Router) TabCreated(tab *types.Tab) {
	if tab == nil {
		return
	}
	gen := r.bump(tab.ID)
	applog.Info("router.created", "tab", tab.ID)
	r.schedule(r.cfg.CreateDelay, task{kind: taskCreated, tabID: tab.ID, gen: gen})
}

// TabUpdated schedules confirmation of a URL change. Events without a URL
// and already processed (tab, URL) pairs are ignored.
func (r *Router) TabUpdated(tabID int, url string) {
	if url == "" {
		return
	}
	if r.seen.Has(DedupKey(tabID, url)) {
		applog.Info("router.skip.duplicate", "tab", tabID, "url", url)
		return
	}
	gen := r.bump(tabID)
	applog.Info("router.updated", "tab", tabID, "url", url)
	r.schedule(r.cfg.UpdateDelay, task{kind: taskUpdated, tabID: tabID, gen: gen, url: url})
}

// TabRemoved drops any pending task for the tab and forgets its generation.
func (r *Router) TabRemoved(tabID int) {
	r.mu.Lock()
	delete(r.gens, tabID)
	r.mu.Unlock()
}

// Run executes scheduled tasks one at a time until ctx is done.
func (r *Router) Run(ctx context.Context) error {
	defer r.once.Do(func() { close(r.stop) })
	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-r.tasks:
			r.runTask(ctx, t)
			r.pending.Done()
		}
	}
}

// Wait blocks until every scheduled task has run or been dropped. Run must
// be active.
func (r *Router) Wait() {
	r.pending.Wait()
}

func (r *Router) bump(tabID int) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gens[tabID]++
	return r.gens[tabID]
}

func (r *Router) current(t task) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gens[t.tabID] == t.gen
}

func (r *Router) schedule(delay time.Duration, t task) {
	r.pending.Add(1)
	time.AfterFunc(delay, func() {
		select {
		case r.tasks <- t:
		case <-r.stop:
			r.pending.Done()
		}
	})
}

func (r *Router) runTask(ctx context.Context, t task) {
	if !r.current(t) {
		applog.Info("router.skip.superseded", "tab", t.tabID, "gen", t.gen)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.TaskTimeout)
	defer cancel()

	tab, err := r.tabs.GetTab(ctx, t.tabID)
	if err != nil {
		applog.Error("router.fetch", err, "tab", t.tabID)
		return
	}
	if tab == nil || tab.URL == "" {
		return
	}

	switch t.kind {
	case taskCreated:
		r.proc.Process(ctx, tab)
	case taskUpdated:
		if tab.URL != t.url {
			applog.Info("router.skip.moved", "tab", t.tabID, "want", t.url, "got", tab.URL)
			return
		}
		r.proc.Process(ctx, tab)
		r.seen.Add(DedupKey(t.tabID, t.url))
	}
}
