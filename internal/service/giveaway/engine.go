// Package giveaway is the lifecycle engine: it owns the registry of active
// giveaways, persists it after every mutation, arms expiry timers and
// resolves giveaways when they expire.
package giveaway

import (
	"context"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	apperrors "giveaway-bot/internal/common/errors"
	"giveaway-bot/internal/common/validation"
	"giveaway-bot/internal/domain/giveaway"
	"giveaway-bot/internal/metrics"
	"giveaway-bot/internal/scheduler"
	"giveaway-bot/internal/utils/clock"
)

const defaultMinParticipants = 3

// Channels are the configured chat destinations. Empty values fall back to
// the giveaway's own channel (Winners, Announcements) or are omitted (Tickets).
type Channels struct {
	// Giveaways is the default channel for new giveaways.
	Giveaways     string
	Winners       string
	Announcements string
	Tickets       string
}

type Options struct {
	Store     giveaway.Store
	Presenter Presenter
	Timers    Timers
	Clock     clock.Clock
	// Random feeds winner selection; nil means crypto/rand.
	Random                 io.Reader
	Channels               Channels
	DefaultMinParticipants int
	Logger                 zerolog.Logger
}

// Engine serializes every registry access behind mu. No platform call or
// store write happens while mu is held.
type Engine struct {
	store     giveaway.Store
	presenter Presenter
	timers    Timers
	clock     clock.Clock
	random    io.Reader
	channels  Channels
	minimum   int
	log       zerolog.Logger
	validate  *validator.Validate

	mu        sync.Mutex
	registry  *giveaway.Registry
	settings  giveaway.Settings
	counter   int64
	resolving map[string]bool
	// controls serializes edits of one giveaway's control message. Taken
	// before mu, never while holding it.
	controls map[string]*sync.Mutex

	// saveMu orders snapshot+write pairs so an older snapshot never
	// overwrites a newer one.
	saveMu sync.Mutex
}

func New(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.DefaultMinParticipants < 1 {
		opts.DefaultMinParticipants = defaultMinParticipants
	}
	return &Engine{
		store:     opts.Store,
		presenter: opts.Presenter,
		timers:    opts.Timers,
		clock:     opts.Clock,
		random:    opts.Random,
		channels:  opts.Channels,
		minimum:   opts.DefaultMinParticipants,
		log:       opts.Logger,
		validate:  validation.New(),
		registry:  giveaway.NewRegistry(),
		resolving: make(map[string]bool),
		controls:  make(map[string]*sync.Mutex),
	}
}

// Restore loads the persisted state and re-arms a timer for every giveaway.
// Giveaways whose end time already passed resolve right away. Giveaways that
// never got a posted control are dropped.
func (e *Engine) Restore(ctx context.Context) error {
	snap, err := e.store.Load(ctx)
	if err != nil {
		return apperrors.NewPersistenceError("load", err)
	}

	type pending struct {
		id     string
		fireAt time.Time
	}
	var toArm []pending
	var dropped []string

	e.mu.Lock()
	registry := giveaway.NewRegistry()
	counter := snap.Counter
	for i := range snap.Giveaways {
		g := snap.Giveaways[i]
		if !g.Published() {
			dropped = append(dropped, g.ID)
			continue
		}
		if g.MinParticipants < 1 {
			g.MinParticipants = e.minimum
		}
		registry.Insert(&g)
		toArm = append(toArm, pending{id: g.ID, fireAt: g.EndTime()})
		// a lost counter must not hand out an id that is still active
		if n, ok := counterOf(g.ID); ok && n > counter {
			counter = n
		}
	}
	e.registry = registry
	e.settings = snap.Settings
	e.counter = counter
	e.resolving = make(map[string]bool)
	e.controls = make(map[string]*sync.Mutex)
	e.updateGauge()
	e.mu.Unlock()

	if len(dropped) > 0 {
		e.log.Warn().Strs("giveaway_ids", dropped).Msg("dropping giveaways that were never posted")
		e.persist(ctx, "restore")
	}

	for _, p := range toArm {
		e.timers.Arm(p.id, p.fireAt, e.expiryAction(p.id))
	}

	e.log.Info().Int("active", len(toArm)).Int64("counter", counter).Msg("giveaways restored")
	return nil
}

func counterOf(id string) (int64, bool) {
	rest, ok := strings.CutPrefix(id, giveaway.IDPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(rest, 10, 64)
	return n, err == nil
}

func (e *Engine) expiryAction(id string) scheduler.Action {
	return func(ctx context.Context) error {
		_, err := e.Resolve(ctx, id)
		return err
	}
}

// Stop disarms pending timers and waits for running resolutions.
func (e *Engine) Stop(ctx context.Context) error {
	return e.timers.Stop(ctx)
}

// Get returns the active giveaway with exactly this id.
func (e *Engine) Get(id string) (giveaway.Giveaway, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	g, ok := e.registry.Get(id)
	if !ok {
		return giveaway.Giveaway{}, apperrors.NewGiveawayNotFoundError(id)
	}
	return g.Clone(), nil
}

// Find resolves query as an id, then as a case-insensitive item substring.
func (e *Engine) Find(query string) (giveaway.Giveaway, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	g, ok := e.registry.Resolve(query)
	if !ok {
		return giveaway.Giveaway{}, apperrors.NewGiveawayNotFoundError(query)
	}
	return g.Clone(), nil
}

// Active lists every unresolved giveaway in creation order.
func (e *Engine) Active() []giveaway.Giveaway {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.All()
}

func (e *Engine) GlobalImage() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings.ImageURL()
}

// SetGlobalImage sets the image shown on every giveaway message. An empty
// url clears it.
func (e *Engine) SetGlobalImage(ctx context.Context, url string) error {
	url = strings.TrimSpace(url)
	if err := e.validate.Var(url, "omitempty,http_url"); err != nil {
		return apperrors.NewValidationError("globalImage", "must be an http(s) URL")
	}

	e.mu.Lock()
	if url == "" {
		e.settings.GlobalImage = nil
	} else {
		e.settings.GlobalImage = &url
	}
	e.mu.Unlock()

	e.persist(ctx, "set global image")
	e.log.Info().Str("url", url).Msg("global image updated")
	return nil
}

// persist writes the current state. Failures are logged: in-memory state
// stays authoritative until the next successful save.
func (e *Engine) persist(ctx context.Context, op string) {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	snap := e.snapshot()
	start := time.Now()
	err := e.store.Save(context.WithoutCancel(ctx), snap)
	metrics.RecordStoreSave(err == nil, time.Since(start).Seconds())
	if err != nil {
		e.log.Error().Err(apperrors.NewPersistenceError(op, err)).Msg("state not saved")
	}
}

func (e *Engine) snapshot() giveaway.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	var settings giveaway.Settings
	if e.settings.GlobalImage != nil {
		img := *e.settings.GlobalImage
		settings.GlobalImage = &img
	}
	return giveaway.Snapshot{
		Giveaways: e.registry.All(),
		Settings:  settings,
		Counter:   e.counter,
	}
}

// must hold mu
func (e *Engine) updateGauge() {
	metrics.ActiveGiveaways.Set(float64(e.registry.Len()))
}

// must hold mu
func (e *Engine) openControl(g *giveaway.Giveaway) giveaway.Control {
	return giveaway.Control{
		State:    giveaway.ControlOpen,
		Giveaway: g.Clone(),
		ImageURL: e.settings.ImageURL(),
	}
}

// lockControl returns the held control lock of one giveaway.
func (e *Engine) lockControl(id string) *sync.Mutex {
	e.mu.Lock()
	l, ok := e.controls[id]
	if !ok {
		l = &sync.Mutex{}
		e.controls[id] = l
	}
	e.mu.Unlock()
	l.Lock()
	return l
}

// refreshControl re-renders the open control from the current registry
// state. A giveaway that is resolving or gone keeps its final control. The
// message already exists, so a failure only leaves stale counts on screen.
func (e *Engine) refreshControl(ctx context.Context, id string) {
	l := e.lockControl(id)
	defer l.Unlock()

	e.mu.Lock()
	g, ok := e.registry.Get(id)
	if !ok || e.resolving[id] {
		e.mu.Unlock()
		return
	}
	c := e.openControl(g)
	e.mu.Unlock()

	if err := e.presenter.EditControl(ctx, c.Giveaway.ChannelID, c.Giveaway.MessageID, c); err != nil {
		e.log.Warn().Err(err).Str("giveaway_id", id).Msg("control not refreshed")
	}
}

// platformError keeps typed presenter errors and wraps the rest.
func platformError(op string, err error) error {
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	return apperrors.NewTelegramAPIError(op, err)
}
