package engine

import (
	"context"
	"errors"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"github.com/tabletalkhq/tabletalk/ttk/config"
	"github.com/tabletalkhq/tabletalk/ttk/engine/adapters"
	ports "github.com/tabletalkhq/tabletalk/ttk/engine/ports"
	"github.com/tabletalkhq/tabletalk/ttk/extract"
	"github.com/tabletalkhq/tabletalk/ttk/menu"
	"github.com/tabletalkhq/tabletalk/ttk/notify"
	"github.com/tabletalkhq/tabletalk/ttk/payment"
	"github.com/tabletalkhq/tabletalk/ttk/reconcile"
	"github.com/tabletalkhq/tabletalk/ttk/resolve"
	"github.com/tabletalkhq/tabletalk/ttk/storage"
)

// ErrNoDataStore is returned by the fallback store when no database is
// configured. Menu loading degrades to the hardcoded catalog; anything that
// must persist fails with this error.
var ErrNoDataStore = errors.New("no data store configured")

// sessionCapacity bounds the in-memory payment session store.
const sessionCapacity = 1024

// Factory creates and wires engine components from configuration.
type Factory struct {
	cfg      *config.Config
	dbm      *storage.DBManager
	notifier ports.Notifier
	pub      message.Publisher
	sub      message.Subscriber
	bus      *gochannel.GoChannel
	logger   zerolog.Logger
}

// NewFactory creates an engine factory. dbm may be nil for a storeless
// engine, useful in tests and dry runs.
func NewFactory(cfg *config.Config, dbm *storage.DBManager, logger zerolog.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		dbm:    dbm,
		logger: logger,
	}
}

// WithNotifier attaches the runtime's delivery collaborator for texts,
// calendar events, and weather briefs.
func (f *Factory) WithNotifier(n ports.Notifier) *Factory {
	f.notifier = n
	return f
}

// WithGatewayBus replaces the default in-process payment bus with an
// external watermill publisher/subscriber pair.
func (f *Factory) WithGatewayBus(pub message.Publisher, sub message.Subscriber) *Factory {
	f.pub = pub
	f.sub = sub
	return f
}

// CreateEngine builds a fully wired engine from config.
func (f *Factory) CreateEngine() (*Engine, error) {
	loc := f.createLocation()
	store := f.createStore()

	source, err := f.createMenuSource(store)
	if err != nil {
		return nil, err
	}
	menus := menu.NewManager(source, f.cfg.Menu, f.logger)

	extractor := extract.NewExtractor(f.cfg.Extract, loc, f.logger)
	resolver := resolve.NewResolver(f.logger)
	machine := reconcile.NewMachine(extractor, resolver, menus, store, f.cfg.Engine, loc, f.logger)

	sessions := f.createSessionStore()
	gateway := f.createGateway()
	payments := payment.NewCoordinator(store, sessions, gateway, f.createRateLimiter(), f.cfg.Payment, f.cfg.Session.TTL, f.logger)

	dispatcher := notify.NewDispatcher(f.notifier, f.cfg.Notify, loc, f.logger)
	tracer := f.createTracer()

	return NewEngine(
		store,
		menus,
		extractor,
		resolver,
		machine,
		payments,
		sessions,
		gateway,
		dispatcher,
		tracer,
		f.cfg,
		loc,
		f.logger,
	), nil
}

// GatewayBus exposes the in-process payment bus when no external pair was
// supplied. Gateway simulators publish results on the callback topic here.
func (f *Factory) GatewayBus() *gochannel.GoChannel {
	return f.bus
}

// Close releases the in-process bus if the factory created one.
func (f *Factory) Close() error {
	if f.bus == nil {
		return nil
	}
	return f.bus.Close()
}

func (f *Factory) createLocation() *time.Location {
	loc, err := time.LoadLocation(f.cfg.Engine.Timezone)
	if err != nil {
		f.logger.Warn().Err(err).Str("timezone", f.cfg.Engine.Timezone).Msg("timezone unavailable, using UTC")
		return time.UTC
	}
	return loc
}

func (f *Factory) createStore() ports.DataStore {
	if f.dbm == nil {
		return &noOpStore{}
	}
	return adapters.NewLibSQLDataStore(f.dbm)
}

func (f *Factory) createMenuSource(store ports.DataStore) (ports.MenuSource, error) {
	if f.cfg.Menu.Source == "file" && f.cfg.Menu.FilePath != "" {
		return adapters.NewFileMenuSource(f.cfg.Menu.FilePath, f.logger)
	}
	return adapters.NewStoreMenuSource(store), nil
}

func (f *Factory) createSessionStore() ports.SessionStore {
	if f.cfg.Session.Backend == "redis" && f.cfg.Session.RedisAddr != "" {
		return adapters.NewRedisSessionStore(f.cfg.Session.RedisAddr, f.cfg.Session.RedisDB, f.cfg.Session.TTL)
	}
	return adapters.NewMemorySessionStore(sessionCapacity)
}

func (f *Factory) createGateway() ports.PaymentGateway {
	pub, sub := f.pub, f.sub
	if pub == nil || sub == nil {
		f.bus = gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			adapters.NewWatermillLogger(f.logger),
		)
		pub, sub = f.bus, f.bus
	}
	return adapters.NewWatermillGateway(pub, sub, f.cfg.Payment.GatewayTopic, f.cfg.Payment.CallbackTopic, f.logger)
}

func (f *Factory) createRateLimiter() ports.RateLimiter {
	if !f.cfg.Payment.RateLimitEnabled {
		return &noOpRateLimiter{}
	}
	return adapters.NewTokenBucket(f.cfg.Payment.SubmitCapacity, f.cfg.Payment.SubmitRefillRate)
}

func (f *Factory) createTracer() ports.Tracer {
	if !f.cfg.Engine.EnableTracing {
		return &noOpTracer{}
	}
	return adapters.NewZerologTracer(f.logger)
}

// noOpStore satisfies DataStore when no database is configured. Reads fail
// with ErrNoDataStore so the menu falls back to the hardcoded catalog;
// writes fail for the same reason so nothing pretends to persist.
type noOpStore struct{}

func (s *noOpStore) ListMenuItems(ctx context.Context) ([]ports.MenuItem, error) {
	return nil, ErrNoDataStore
}
func (s *noOpStore) UpsertMenuItems(ctx context.Context, items []ports.MenuItem) error {
	return ErrNoDataStore
}
func (s *noOpStore) CreateReservation(ctx context.Context, res *ports.Reservation) error {
	return ErrNoDataStore
}
func (s *noOpStore) GetReservation(ctx context.Context, number string) (*ports.Reservation, error) {
	return nil, ErrNoDataStore
}
func (s *noOpStore) FindReservations(ctx context.Context, f ports.ReservationFilter) ([]ports.Reservation, error) {
	return nil, ErrNoDataStore
}
func (s *noOpStore) UpdateReservation(ctx context.Context, res *ports.Reservation) error {
	return ErrNoDataStore
}
func (s *noOpStore) CancelReservation(ctx context.Context, number string) error {
	return ErrNoDataStore
}
func (s *noOpStore) MarkReservationPaid(ctx context.Context, number, confirmationNumber string, amountCents int64) error {
	return ErrNoDataStore
}
func (s *noOpStore) ReservationNumberExists(ctx context.Context, number string) (bool, error) {
	return false, nil
}
func (s *noOpStore) OrderNumberExists(ctx context.Context, number string) (bool, error) {
	return false, nil
}
func (s *noOpStore) GetOrder(ctx context.Context, number string) (*ports.Order, error) {
	return nil, ErrNoDataStore
}
func (s *noOpStore) UpdateOrderStatus(ctx context.Context, number, status string) error {
	return ErrNoDataStore
}
func (s *noOpStore) FindReservationByOrderNumber(ctx context.Context, orderNumber string) (*ports.Reservation, error) {
	return nil, ErrNoDataStore
}

// noOpRateLimiter admits every submission.
type noOpRateLimiter struct{}

func (r *noOpRateLimiter) Acquire(ctx context.Context, key string) (release func(), err error) {
	return func() {}, nil
}

// noOpTracer drops spans and events.
type noOpTracer struct{}

func (t *noOpTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	return ctx, func(err error) {}
}

func (t *noOpTracer) Event(ctx context.Context, name string, attrs map[string]any) {}

// Ensure all no-op types implement their interfaces.
var (
	_ ports.DataStore   = (*noOpStore)(nil)
	_ ports.RateLimiter = (*noOpRateLimiter)(nil)
	_ ports.Tracer      = (*noOpTracer)(nil)
)
