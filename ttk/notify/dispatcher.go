// Package notify fans best-effort messages out to the runtime's delivery
// collaborators: confirmation texts, payment receipts, calendar events, and
// the optional weather brief. Delivery never gates reservation or payment
// logic; sends ride a bounded worker pool with a per-send timeout, and
// failures are logged then dropped.
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/tabletalkhq/tabletalk/ttk/config"
	ports "github.com/tabletalkhq/tabletalk/ttk/engine/ports"
)

// queueDepth bounds how many notifications may wait for a worker. Overflow
// is dropped with a warning: the delivery contract is best-effort.
const queueDepth = 64

// Dispatcher queues notifications and delivers them asynchronously through
// the configured Notifier.
type Dispatcher struct {
	notifier ports.Notifier
	cfg      config.NotifyConfig
	loc      *time.Location
	logger   zerolog.Logger

	queue   chan ports.Notification
	workers *pool.Pool

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts the delivery workers. A nil notifier is tolerated and
// turns every send into a logged drop, matching a deployment with no
// messaging collaborator attached.
func NewDispatcher(notifier ports.Notifier, cfg config.NotifyConfig, loc *time.Location, logger zerolog.Logger) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 4
	}
	if loc == nil {
		loc = time.UTC
	}
	d := &Dispatcher{
		notifier: notifier,
		cfg:      cfg,
		loc:      loc,
		logger:   logger.With().Str("component", "notify").Logger(),
		queue:    make(chan ports.Notification, queueDepth),
		workers:  pool.New().WithMaxGoroutines(cfg.MaxInFlight),
	}
	for i := 0; i < cfg.MaxInFlight; i++ {
		d.workers.Go(d.drain)
	}
	return d
}

// Dispatch enqueues one notification without blocking the caller. Disabled
// config, a missing notifier, a full queue, and a closed dispatcher all
// drop the message.
func (d *Dispatcher) Dispatch(n ports.Notification) {
	if d == nil || !d.cfg.Enabled || d.notifier == nil {
		return
	}
	if n.To == "" {
		d.logger.Debug().Str("channel", n.Channel).Msg("notification has no recipient, skipping")
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- n:
	default:
		d.logger.Warn().Str("channel", n.Channel).Msg("notification queue full, dropping")
	}
}

// Close stops accepting notifications, drains what is queued, and waits for
// in-flight sends to finish.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.workers.Wait()
}

func (d *Dispatcher) drain() {
	for n := range d.queue {
		d.deliver(n)
	}
}

func (d *Dispatcher) deliver(n ports.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
	defer cancel()
	if err := d.notifier.Send(ctx, n); err != nil {
		d.logger.Warn().Err(err).Str("channel", n.Channel).Str("to", n.To).Msg("notification delivery failed")
		return
	}
	d.logger.Debug().Str("channel", n.Channel).Str("to", n.To).Msg("notification delivered")
}

// ReservationConfirmed sends the booking text, posts the calendar event,
// and, when the weather brief is enabled, asks the forecast collaborator to
// text an outlook for the reservation date.
func (d *Dispatcher) ReservationConfirmed(res *ports.Reservation) {
	if d == nil || res == nil {
		return
	}
	d.Dispatch(ports.Notification{
		Channel: ports.NotifySMS,
		To:      res.Phone,
		Subject: "Reservation confirmed",
		Body:    ConfirmationSMS(res, d.cfg.VenueName, d.loc),
	})
	event := NewCalendarEvent(res, d.loc)
	payload, err := json.Marshal(event)
	if err != nil {
		d.logger.Error().Err(err).Str("reservation", res.Number).Msg("calendar event encode failed")
	} else {
		d.Dispatch(ports.Notification{
			Channel: ports.NotifyCalendar,
			To:      res.Number,
			Subject: event.Title,
			Body:    string(payload),
		})
	}
	if d.cfg.WeatherBrief {
		d.Dispatch(ports.Notification{
			Channel: ports.NotifyWeather,
			To:      res.Phone,
			Subject: "Forecast for your visit",
			Body:    res.StartAt.In(d.loc).Format("2006-01-02"),
		})
	}
}

// PaymentReceipt sends the post-payment receipt text.
func (d *Dispatcher) PaymentReceipt(res *ports.Reservation, amountCents int64, confirmation string) {
	if d == nil || res == nil {
		return
	}
	d.Dispatch(ports.Notification{
		Channel: ports.NotifySMS,
		To:      res.Phone,
		Subject: "Payment receipt",
		Body:    ReceiptSMS(res, amountCents, confirmation, d.cfg.VenueName, d.loc),
	})
}

// ReservationUpdated sends the change notice after an edit persists.
func (d *Dispatcher) ReservationUpdated(res *ports.Reservation) {
	if d == nil || res == nil {
		return
	}
	d.Dispatch(ports.Notification{
		Channel: ports.NotifySMS,
		To:      res.Phone,
		Subject: "Reservation updated",
		Body:    UpdateSMS(res, d.cfg.VenueName, d.loc),
	})
}

// ReservationCancelled sends the cancellation notice.
func (d *Dispatcher) ReservationCancelled(res *ports.Reservation) {
	if d == nil || res == nil {
		return
	}
	d.Dispatch(ports.Notification{
		Channel: ports.NotifySMS,
		To:      res.Phone,
		Subject: "Reservation cancelled",
		Body:    CancelSMS(res, d.cfg.VenueName, d.loc),
	})
}
