// Package views keeps one catalog controller per open client view.
package views

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/firebase-recipes/recipes-api/internal/catalog"
	"github.com/firebase-recipes/recipes-api/internal/notice"
	"github.com/firebase-recipes/recipes-api/internal/recipes/store"
	"github.com/firebase-recipes/recipes-api/internal/session"
)

var ErrViewNotFound = errors.New("view not found")

// View is one client's catalog. The session hub belongs to the view; the
// controller subscribes to it for as long as the view is open.
type View struct {
	ID         string
	Controller *catalog.Controller
	Session    *session.Hub
	Inbox      *notice.Inbox
	CreatedAt  time.Time

	mu       sync.Mutex
	lastSeen time.Time
}

func (v *View) touch(t time.Time) {
	v.mu.Lock()
	v.lastSeen = t
	v.mu.Unlock()
}

// LastSeen is when the view was last opened or looked up.
func (v *View) LastSeen() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastSeen
}

func (v *View) close() {
	v.Controller.Close()
	v.Session.Close()
}

type Registry struct {
	store       store.Store
	log         *zap.Logger
	now         func() time.Time
	newID       func() string
	catalogOpts []catalog.Option

	mu      sync.Mutex
	views   map[string]*View
	sweeper *cron.Cron
}

type Option func(*Registry)

func WithLogger(log *zap.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// WithClock sets the clock used for idle tracking and by every controller.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithCatalogOptions appends options passed to every new controller.
func WithCatalogOptions(opts ...catalog.Option) Option {
	return func(r *Registry) { r.catalogOpts = append(r.catalogOpts, opts...) }
}

func NewRegistry(st store.Store, opts ...Option) *Registry {
	r := &Registry{
		store: st,
		log:   zap.NewNop(),
		now:   time.Now,
		newID: uuid.NewString,
		views: make(map[string]*View),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open creates and starts a view. A failed first load does not fail Open;
// the error is delivered to the view's inbox.
func (r *Registry) Open(ctx context.Context) (*View, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := r.newID()
	log := r.log.With(zap.String("view_id", id))
	hub := session.NewHub()
	inbox := notice.NewInbox(0)

	opts := append([]catalog.Option{
		catalog.WithLogger(log),
		catalog.WithNotifier(inbox),
		catalog.WithClock(r.now),
	}, r.catalogOpts...)
	ctrl := catalog.New(r.store, hub, opts...)

	now := r.now()
	v := &View{
		ID:         id,
		Controller: ctrl,
		Session:    hub,
		Inbox:      inbox,
		CreatedAt:  now,
		lastSeen:   now,
	}

	if err := ctrl.Start(ctx); err != nil {
		if errors.Is(err, catalog.ErrClosed) {
			return nil, err
		}
		log.Warn("initial load failed", zap.Error(err))
	}

	r.mu.Lock()
	r.views[id] = v
	n := len(r.views)
	r.mu.Unlock()

	log.Info("view opened", zap.Int("open_views", n))
	return v, nil
}

// Get returns the view and marks it as seen.
func (r *Registry) Get(id string) (*View, error) {
	r.mu.Lock()
	v, ok := r.views[id]
	r.mu.Unlock()
	if !ok {
		return nil, ErrViewNotFound
	}
	v.touch(r.now())
	return v, nil
}

// Len is the number of open views.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Close tears down a view.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	v, ok := r.views[id]
	delete(r.views, id)
	r.mu.Unlock()
	if !ok {
		return ErrViewNotFound
	}
	v.close()
	r.log.Info("view closed", zap.String("view_id", id))
	return nil
}

// SweepIdle closes views not seen within maxIdle and returns how many.
func (r *Registry) SweepIdle(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	var idle []*View
	for id, v := range r.views {
		if v.LastSeen().Before(cutoff) {
			idle = append(idle, v)
			delete(r.views, id)
		}
	}
	r.mu.Unlock()

	for _, v := range idle {
		v.close()
	}
	if len(idle) > 0 {
		r.log.Info("swept idle views", zap.Int("closed", len(idle)))
	}
	return len(idle)
}

// StartSweeper runs SweepIdle on the cron schedule spec (for example
// "@every 1m"). It is stopped by Shutdown.
func (r *Registry) StartSweeper(spec string, maxIdle time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sweeper != nil {
		return fmt.Errorf("view sweeper already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, func() { r.SweepIdle(maxIdle) }); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	c.Start()
	r.sweeper = c

	r.log.Info("view sweeper started", zap.String("schedule", spec), zap.Duration("max_idle", maxIdle))
	return nil
}

// Shutdown stops the sweeper, waiting for a running sweep or ctx, and
// closes every view.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	sweeper := r.sweeper
	r.sweeper = nil
	views := r.views
	r.views = make(map[string]*View)
	r.mu.Unlock()

	if sweeper != nil {
		select {
		case <-sweeper.Stop().Done():
		case <-ctx.Done():
		}
	}
	for _, v := range views {
		v.close()
	}
	r.log.Info("views shut down", zap.Int("closed", len(views)))
}
