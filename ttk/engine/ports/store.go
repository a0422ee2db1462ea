package engineports

import (
	"context"
	"time"
)

// Reservation lifecycle statuses.
const (
	ReservationConfirmed = "confirmed"
	ReservationCancelled = "cancelled"
)

// Order kitchen workflow statuses.
const (
	OrderPending   = "pending"
	OrderPreparing = "preparing"
	OrderReady     = "ready"
)

// Reservation is the committed booking record with its linked orders.
type Reservation struct {
	ID                 int64
	Number             string    // exactly 6 ASCII digits, globally unique
	Name               string
	Phone              string    // E.164
	PartySize          int
	StartAt            time.Time // stored UTC, validated in restaurant local time
	SpecialRequests    string
	Status             string // "confirmed" | "cancelled"
	TableOnly          bool
	Paid               bool
	PaidAmountCents    int64
	ConfirmationNumber string // set once payment completes
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Orders             []Order
}

// Order groups one person's items under a reservation.
type Order struct {
	ID            int64
	ReservationID int64
	Number        string // exactly 6 ASCII digits, unique
	PersonName    string
	Status        string // "pending" | "preparing" | "ready"
	TotalCents    int64
	Items         []OrderItem
}

// OrderItem is a single priced menu line.
type OrderItem struct {
	ID         int64
	OrderID    int64
	MenuItemID string
	Name       string
	Quantity   int
	PriceCents int64 // unit price at order time
}

// ReservationFilter narrows lookups; zero-valued fields are ignored.
type ReservationFilter struct {
	Number   string
	NameLike string    // case-insensitive substring on reservation name
	Phone    string    // exact E.164 match
	From     time.Time // StartAt >= From
	To       time.Time // StartAt < To
}

// DataStore persists reservations, orders, and the menu catalog.
// CreateReservation writes the reservation with all orders and items as one
// atomic unit; on failure nothing is persisted.
type DataStore interface {
	ListMenuItems(ctx context.Context) ([]MenuItem, error)
	UpsertMenuItems(ctx context.Context, items []MenuItem) error

	CreateReservation(ctx context.Context, res *Reservation) error
	GetReservation(ctx context.Context, number string) (*Reservation, error)
	FindReservations(ctx context.Context, f ReservationFilter) ([]Reservation, error)
	UpdateReservation(ctx context.Context, res *Reservation) error
	CancelReservation(ctx context.Context, number string) error
	MarkReservationPaid(ctx context.Context, number, confirmationNumber string, amountCents int64) error

	ReservationNumberExists(ctx context.Context, number string) (bool, error)
	OrderNumberExists(ctx context.Context, number string) (bool, error)

	GetOrder(ctx context.Context, number string) (*Order, error)
	UpdateOrderStatus(ctx context.Context, number, status string) error

	// FindReservationByOrderNumber resolves the reservation an order belongs
	// to. Payment callbacks sometimes reference only an order number.
	FindReservationByOrderNumber(ctx context.Context, orderNumber string) (*Reservation, error)
}
