// Package controller implements the foreground controller service: the
// single owner of connectivity state, worker generation lifecycle, sync
// triggers, UI signals, and the typed offline-data facade.
package controller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vendora/vendora-edge/internal/cachestore/repository"
	"github.com/vendora/vendora-edge/internal/errors"
	"github.com/vendora/vendora-edge/internal/logger"
	"github.com/vendora/vendora-edge/internal/notification"
	"github.com/vendora/vendora-edge/internal/observability/metrics"
	"github.com/vendora/vendora-edge/internal/worker"
)

// syncTimeout bounds one background replay triggered by a connectivity
// transition or an explicit request.
const syncTimeout = 2 * time.Minute

// installStateSlot records that a first install has been observed, so the
// install-available signal fires once per deployment, not per restart.
type installState struct {
	Installed   bool      `json:"installed"`
	Generation  string    `json:"generation"`
	InstalledAt time.Time `json:"installedAt"`
}

const installStateKey = "install-state"

// Generations is the worker lifecycle surface the controller drives.
type Generations interface {
	StartGeneration(ctx context.Context, tag string) error
	StageGeneration(ctx context.Context, tag string) error
	PromoteStaged(ctx context.Context) error
	Generation() string
	StagedGeneration() string
}

// Syncer replays a pending-write queue for one sync tag.
type Syncer interface {
	ReplaySync(ctx context.Context, tag string) error
}

// OfflineStore is the offline-data slot surface the facade wraps.
type OfflineStore interface {
	WriteOfflineData(ctx context.Context, name string, v any) error
	ReadOfflineData(ctx context.Context, name string, out any) error
}

// PushStarter connects the background push channel.
type PushStarter interface {
	Start() error
}

// Notifier presents notifications.
type Notifier interface {
	Show(n *notification.Notification) error
}

// OnlineStatusListener receives connectivity transitions.
type OnlineStatusListener func(online bool)

// NotificationOptions overrides per-call presentation defaults.
type NotificationOptions struct {
	Body      string
	Icon      string
	Badge     string
	URL       string
	Vibration []int
}

// Controller is the foreground controller service. Construct once at
// startup with New and inject where needed.
type Controller struct {
	caps     Capabilities
	gens     Generations
	syncer   Syncer
	store    OfflineStore
	notifier Notifier
	push     PushStarter
	log      logger.Logger
	metrics  *metrics.Metrics

	// genMu guards generation, which ApplyUpdate rewrites after a
	// promotion while other goroutines read it.
	genMu      sync.RWMutex
	generation string

	online atomic.Bool

	listenersMu  sync.Mutex
	listeners    []listenerEntry
	nextListener int

	events *EventBus

	initMu      sync.Mutex
	initialized bool

	syncWG sync.WaitGroup
}

type listenerEntry struct {
	id int
	cb OnlineStatusListener
}

// Option customizes controller construction.
type Option func(*Controller)

// WithPushStarter attaches the background push channel.
func WithPushStarter(p PushStarter) Option {
	return func(c *Controller) { c.push = p }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// New constructs the controller service. generation is the deployment's
// current tag.
func New(caps Capabilities, generation string, gens Generations, syncer Syncer, store OfflineStore, notifier Notifier, log logger.Logger, opts ...Option) *Controller {
	c := &Controller{
		caps:       caps,
		gens:       gens,
		syncer:     syncer,
		store:      store,
		notifier:   notifier,
		log:        log,
		generation: generation,
		events:     NewEventBus(),
	}
	c.online.Store(true)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Capabilities returns the capability descriptor computed at startup.
func (c *Controller) Capabilities() Capabilities {
	return c.caps
}

// Generation returns the deployment tag the controller currently owns.
func (c *Controller) Generation() string {
	c.genMu.RLock()
	defer c.genMu.RUnlock()
	return c.generation
}

// Initialize registers the worker generation and wires the push channel.
// Idempotent: subsequent calls are no-ops. Initialization never fails the
// process; registration errors are logged and startup continues.
func (c *Controller) Initialize(ctx context.Context) {
	c.initMu.Lock()
	if c.initialized {
		c.initMu.Unlock()
		return
	}
	c.initialized = true
	c.initMu.Unlock()

	if err := c.gens.StartGeneration(ctx, c.Generation()); err != nil {
		c.log.Error("worker registration failed",
			logger.String("generation", c.Generation()),
			logger.Error(err))
	} else {
		c.signalFirstInstall(ctx)
	}

	if c.caps.PushSupported && c.push != nil {
		if err := c.push.Start(); err != nil {
			c.log.Warn("push channel unavailable", logger.Error(err))
		}
	}
}

// signalFirstInstall emits the install-available signal exactly once per
// deployment, carrying the generation tag as the deferred prompt handle.
func (c *Controller) signalFirstInstall(ctx context.Context) {
	var state installState
	err := c.store.ReadOfflineData(ctx, installStateKey, &state)
	if err == nil && state.Installed {
		return
	}
	if err != nil && !errors.Is(err, repository.ErrSlotNotFound) {
		c.log.Warn("failed to read install state", logger.Error(err))
		return
	}
	tag := c.Generation()
	state = installState{
		Installed:   true,
		Generation:  tag,
		InstalledAt: time.Now(),
	}
	if err := c.store.WriteOfflineData(ctx, installStateKey, state); err != nil {
		c.log.Warn("failed to persist install state", logger.Error(err))
	}
	c.events.Publish(Event{
		Type: EventInstallAvailable,
		Data: map[string]any{"generation": tag},
	})
}

// GetOnlineStatus returns the cached connectivity boolean. Synchronous;
// never probes the network.
func (c *Controller) GetOnlineStatus() bool {
	return c.online.Load()
}

// AddOnlineStatusListener registers a connectivity callback and returns
// its handle for removal. Callbacks fire in registration order.
func (c *Controller) AddOnlineStatusListener(cb OnlineStatusListener) int {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	id := c.nextListener
	c.nextListener++
	c.listeners = append(c.listeners, listenerEntry{id: id, cb: cb})
	return id
}

// RemoveOnlineStatusListener unregisters a connectivity callback.
func (c *Controller) RemoveOnlineStatusListener(id int) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	for i, entry := range c.listeners {
		if entry.id == id {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return
		}
	}
}

// CacheOfflineData writes an arbitrary JSON-serializable value into the
// offline-data slot for key.
func (c *Controller) CacheOfflineData(ctx context.Context, key string, v any) error {
	return c.store.WriteOfflineData(ctx, key, v)
}

// GetOfflineData reads the offline-data slot for key into out. Returns
// repository.ErrSlotNotFound when nothing was stored.
func (c *Controller) GetOfflineData(ctx context.Context, key string, out any) error {
	return c.store.ReadOfflineData(ctx, key, out)
}

// ShowNotification presents a notification with default icon, badge, and
// vibration, overridable per call. Skipped silently when notifications
// are unsupported.
func (c *Controller) ShowNotification(title string, opts *NotificationOptions) error {
	if !c.caps.NotificationsSupported || c.notifier == nil {
		return nil
	}
	n := &notification.Notification{Title: title}
	if opts != nil {
		n.Body = opts.Body
		n.Icon = opts.Icon
		n.Badge = opts.Badge
		n.URL = opts.URL
		n.Vibration = opts.Vibration
	}
	return c.notifier.Show(n)
}

// RequestSync schedules a best-effort replay of one sync tag. Silently
// ignored when background sync is unsupported.
func (c *Controller) RequestSync(tag string) {
	if !c.caps.SyncSupported || c.syncer == nil {
		return
	}
	c.syncWG.Add(1)
	go func() {
		defer c.syncWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()
		if err := c.syncer.ReplaySync(ctx, tag); err != nil {
			c.log.Warn("sync replay incomplete",
				logger.String("tag", tag),
				logger.Error(err))
		}
	}()
}

// requestSyncAll issues the two fixed sync tags.
func (c *Controller) requestSyncAll() {
	for _, tag := range worker.SyncTags() {
		c.RequestSync(tag)
	}
}

// Resume re-issues both sync requests if already online. Called when the
// application regains the foreground, in case a connectivity transition
// was missed while it was hidden.
func (c *Controller) Resume() {
	if c.GetOnlineStatus() {
		c.requestSyncAll()
	}
}

// CheckForUpdate stages tag as a new generation. On a successful install
// an update-available signal is emitted; activation waits for explicit
// ApplyUpdate. Returns true when an update was staged.
func (c *Controller) CheckForUpdate(ctx context.Context, tag string) (bool, error) {
	if tag == c.gens.Generation() {
		return false, nil
	}
	if err := c.gens.StageGeneration(ctx, tag); err != nil {
		return false, err
	}
	c.events.Publish(Event{
		Type: EventUpdateAvailable,
		Data: map[string]any{"generation": tag},
	})
	return true, nil
}

// ApplyUpdate promotes the staged generation immediately and emits the
// reload signal. This is the only forced-reload path and is only invoked
// in direct response to explicit user confirmation.
func (c *Controller) ApplyUpdate(ctx context.Context) error {
	if err := c.gens.PromoteStaged(ctx); err != nil {
		return err
	}
	c.genMu.Lock()
	c.generation = c.gens.Generation()
	c.genMu.Unlock()
	c.events.Publish(Event{Type: EventReload})
	return nil
}

// Events exposes the UI signal bus.
func (c *Controller) Events() *EventBus {
	return c.events
}

// Close waits for in-flight background syncs to finish.
func (c *Controller) Close() {
	c.syncWG.Wait()
}
