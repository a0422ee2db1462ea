package engineports

import "context"

// Notification channels.
const (
	NotifySMS      = "sms"
	NotifyCalendar = "calendar"
	NotifyWeather  = "weather"
)

// Notification is a best-effort outbound message; results never gate core logic.
type Notification struct {
	Channel string // "sms" | "calendar" | "weather"
	To      string
	Subject string
	Body    string
}

// Notifier delivers a notification over one channel.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}
