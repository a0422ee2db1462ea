package adapters

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	ports "github.com/tabletalkhq/tabletalk/ttk/engine/ports"
	"github.com/tabletalkhq/tabletalk/ttk/storage"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("record not found")

// LibSQLDataStore implements DataStore on the managed libsql database.
type LibSQLDataStore struct {
	dbm *storage.DBManager
}

// NewLibSQLDataStore creates a data store backed by the given database manager.
func NewLibSQLDataStore(dbm *storage.DBManager) *LibSQLDataStore {
	return &LibSQLDataStore{dbm: dbm}
}

// ListMenuItems returns the full catalog ordered by name.
func (s *LibSQLDataStore) ListMenuItems(ctx context.Context) ([]ports.MenuItem, error) {
	db, err := s.dbm.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database: %w", err)
	}

	query := `
		SELECT id, name, description, price_cents, category, available
		FROM menu_items
		ORDER BY name
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query menu items: %w", err)
	}
	defer rows.Close()

	var items []ports.MenuItem
	for rows.Next() {
		var item ports.MenuItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.PriceCents, &item.Category, &item.Available); err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		item.Source = ports.MenuSourceStore
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating menu items: %w", err)
	}

	return items, nil
}

// UpsertMenuItems inserts or replaces catalog entries in one transaction.
func (s *LibSQLDataStore) UpsertMenuItems(ctx context.Context, items []ports.MenuItem) error {
	return s.dbm.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT OR REPLACE INTO menu_items (id, name, description, price_cents, category, available)
			VALUES (?, ?, ?, ?, ?, ?)
		`
		for _, item := range items {
			if _, err := tx.ExecContext(ctx, query, item.ID, item.Name, item.Description, item.PriceCents, item.Category, item.Available); err != nil {
				return fmt.Errorf("failed to upsert menu item %s: %w", item.ID, err)
			}
		}
		return nil
	})
}

// CreateReservation persists the reservation with all orders and items atomically.
func (s *LibSQLDataStore) CreateReservation(ctx context.Context, res *ports.Reservation) error {
	return s.dbm.WithTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		if res.CreatedAt.IsZero() {
			res.CreatedAt = now
		}
		res.UpdatedAt = now
		if res.Status == "" {
			res.Status = ports.ReservationConfirmed
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO reservations (number, name, phone, party_size, start_at, special_requests, status, table_only, paid, paid_amount_cents, confirmation_number, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			res.Number, res.Name, res.Phone, res.PartySize, formatTime(res.StartAt),
			res.SpecialRequests, res.Status, res.TableOnly, res.Paid, res.PaidAmountCents,
			res.ConfirmationNumber, formatTime(res.CreatedAt), formatTime(res.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert reservation: %w", err)
		}

		resID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get reservation id: %w", err)
		}
		res.ID = resID

		for i := range res.Orders {
			order := &res.Orders[i]
			order.ReservationID = resID
			if order.Status == "" {
				order.Status = ports.OrderPending
			}

			result, err := tx.ExecContext(ctx, `
				INSERT INTO orders (reservation_id, number, person_name, status, total_cents)
				VALUES (?, ?, ?, ?, ?)
			`, order.ReservationID, order.Number, order.PersonName, order.Status, order.TotalCents)
			if err != nil {
				return fmt.Errorf("failed to insert order %s: %w", order.Number, err)
			}

			orderID, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to get order id: %w", err)
			}
			order.ID = orderID

			for j := range order.Items {
				item := &order.Items[j]
				item.OrderID = orderID

				result, err := tx.ExecContext(ctx, `
					INSERT INTO order_items (order_id, menu_item_id, name, quantity, price_cents)
					VALUES (?, ?, ?, ?, ?)
				`, item.OrderID, item.MenuItemID, item.Name, item.Quantity, item.PriceCents)
				if err != nil {
					return fmt.Errorf("failed to insert order item %s: %w", item.Name, err)
				}
				if item.ID, err = result.LastInsertId(); err != nil {
					return fmt.Errorf("failed to get order item id: %w", err)
				}
			}
		}

		return nil
	})
}

// GetReservation loads one reservation with its orders and items.
func (s *LibSQLDataStore) GetReservation(ctx context.Context, number string) (*ports.Reservation, error) {
	db, err := s.dbm.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database: %w", err)
	}

	row := db.QueryRowContext(ctx, reservationSelect+" WHERE number = ?", number)
	res, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reservation %s: %w", number, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load reservation %s: %w", number, err)
	}

	if err := s.loadOrders(ctx, db, res); err != nil {
		return nil, err
	}
	return res, nil
}

// FindReservations filters reservations; zero-valued filter fields are ignored.
func (s *LibSQLDataStore) FindReservations(ctx context.Context, f ports.ReservationFilter) ([]ports.Reservation, error) {
	db, err := s.dbm.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database: %w", err)
	}

	var conds []string
	var args []any
	if f.Number != "" {
		conds = append(conds, "number = ?")
		args = append(args, f.Number)
	}
	if f.NameLike != "" {
		conds = append(conds, "LOWER(name) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.NameLike)+"%")
	}
	if f.Phone != "" {
		conds = append(conds, "phone = ?")
		args = append(args, f.Phone)
	}
	if !f.From.IsZero() {
		conds = append(conds, "start_at >= ?")
		args = append(args, formatTime(f.From))
	}
	if !f.To.IsZero() {
		conds = append(conds, "start_at < ?")
		args = append(args, formatTime(f.To))
	}

	query := reservationSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY start_at"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer rows.Close()

	var results []ports.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		results = append(results, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reservations: %w", err)
	}

	for i := range results {
		if err := s.loadOrders(ctx, db, &results[i]); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// UpdateReservation rewrites the mutable reservation fields.
func (s *LibSQLDataStore) UpdateReservation(ctx context.Context, res *ports.Reservation) error {
	db, err := s.dbm.DB()
	if err != nil {
		return fmt.Errorf("failed to get database: %w", err)
	}

	res.UpdatedAt = time.Now().UTC()
	result, err := db.ExecContext(ctx, `
		UPDATE reservations
		SET name = ?, phone = ?, party_size = ?, start_at = ?, special_requests = ?, status = ?, table_only = ?, updated_at = ?
		WHERE number = ?
	`,
		res.Name, res.Phone, res.PartySize, formatTime(res.StartAt),
		res.SpecialRequests, res.Status, res.TableOnly, formatTime(res.UpdatedAt), res.Number,
	)
	if err != nil {
		return fmt.Errorf("failed to update reservation %s: %w", res.Number, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("reservation %s: %w", res.Number, ErrNotFound)
	}
	return nil
}

// CancelReservation marks the reservation cancelled; repeating it is a no-op.
func (s *LibSQLDataStore) CancelReservation(ctx context.Context, number string) error {
	db, err := s.dbm.DB()
	if err != nil {
		return fmt.Errorf("failed to get database: %w", err)
	}

	result, err := db.ExecContext(ctx, `
		UPDATE reservations SET status = ?, updated_at = ? WHERE number = ?
	`, ports.ReservationCancelled, formatTime(time.Now().UTC()), number)
	if err != nil {
		return fmt.Errorf("failed to cancel reservation %s: %w", number, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check cancel result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("reservation %s: %w", number, ErrNotFound)
	}
	return nil
}

// MarkReservationPaid records a completed payment against the reservation.
func (s *LibSQLDataStore) MarkReservationPaid(ctx context.Context, number, confirmationNumber string, amountCents int64) error {
	db, err := s.dbm.DB()
	if err != nil {
		return fmt.Errorf("failed to get database: %w", err)
	}

	result, err := db.ExecContext(ctx, `
		UPDATE reservations SET paid = 1, paid_amount_cents = ?, confirmation_number = ?, updated_at = ? WHERE number = ?
	`, amountCents, confirmationNumber, formatTime(time.Now().UTC()), number)
	if err != nil {
		return fmt.Errorf("failed to mark reservation %s paid: %w", number, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check payment update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("reservation %s: %w", number, ErrNotFound)
	}
	return nil
}

// ReservationNumberExists reports whether the number is already taken.
func (s *LibSQLDataStore) ReservationNumberExists(ctx context.Context, number string) (bool, error) {
	return s.numberExists(ctx, "reservations", number)
}

// OrderNumberExists reports whether the number is already taken.
func (s *LibSQLDataStore) OrderNumberExists(ctx context.Context, number string) (bool, error) {
	return s.numberExists(ctx, "orders", number)
}

func (s *LibSQLDataStore) numberExists(ctx context.Context, table, number string) (bool, error) {
	db, err := s.dbm.DB()
	if err != nil {
		return false, fmt.Errorf("failed to get database: %w", err)
	}

	var one int
	err = db.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE number = ? LIMIT 1", number).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %s number: %w", table, err)
	}
	return true, nil
}

// GetOrder loads one order with its items.
func (s *LibSQLDataStore) GetOrder(ctx context.Context, number string) (*ports.Order, error) {
	db, err := s.dbm.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database: %w", err)
	}

	var order ports.Order
	err = db.QueryRowContext(ctx, `
		SELECT id, reservation_id, number, person_name, status, total_cents
		FROM orders WHERE number = ?
	`, number).Scan(&order.ID, &order.ReservationID, &order.Number, &order.PersonName, &order.Status, &order.TotalCents)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", number, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", number, err)
	}

	items, err := s.loadOrderItems(ctx, db, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

// FindReservationByOrderNumber resolves an order number to its parent
// reservation, loaded in full.
func (s *LibSQLDataStore) FindReservationByOrderNumber(ctx context.Context, orderNumber string) (*ports.Reservation, error) {
	db, err := s.dbm.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database: %w", err)
	}

	row := db.QueryRowContext(ctx, `
		SELECT r.id, r.number, r.name, r.phone, r.party_size, r.start_at, r.special_requests, r.status, r.table_only, r.paid, r.paid_amount_cents, r.confirmation_number, r.created_at, r.updated_at
		FROM reservations r
		JOIN orders o ON o.reservation_id = r.id
		WHERE o.number = ?
	`, orderNumber)
	res, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order %s: %w", orderNumber, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to resolve order %s: %w", orderNumber, err)
	}

	if err := s.loadOrders(ctx, db, res); err != nil {
		return nil, err
	}
	return res, nil
}

// UpdateOrderStatus moves an order through the kitchen workflow.
func (s *LibSQLDataStore) UpdateOrderStatus(ctx context.Context, number, status string) error {
	db, err := s.dbm.DB()
	if err != nil {
		return fmt.Errorf("failed to get database: %w", err)
	}

	result, err := db.ExecContext(ctx, `UPDATE orders SET status = ? WHERE number = ?`, status, number)
	if err != nil {
		return fmt.Errorf("failed to update order %s status: %w", number, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check order status update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("order %s: %w", number, ErrNotFound)
	}
	return nil
}

const reservationSelect = `
	SELECT id, number, name, phone, party_size, start_at, special_requests, status, table_only, paid, paid_amount_cents, confirmation_number, created_at, updated_at
	FROM reservations
`

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*ports.Reservation, error) {
	var res ports.Reservation
	var startAt, createdAt, updatedAt string
	if err := row.Scan(
		&res.ID, &res.Number, &res.Name, &res.Phone, &res.PartySize, &startAt,
		&res.SpecialRequests, &res.Status, &res.TableOnly, &res.Paid, &res.PaidAmountCents,
		&res.ConfirmationNumber, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if res.StartAt, err = parseTime(startAt); err != nil {
		return nil, fmt.Errorf("bad start_at %q: %w", startAt, err)
	}
	if res.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at %q: %w", createdAt, err)
	}
	if res.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("bad updated_at %q: %w", updatedAt, err)
	}
	return &res, nil
}

func (s *LibSQLDataStore) loadOrders(ctx context.Context, db *sql.DB, res *ports.Reservation) error {
	rows, err := db.QueryContext(ctx, `
		SELECT id, reservation_id, number, person_name, status, total_cents
		FROM orders WHERE reservation_id = ? ORDER BY id
	`, res.ID)
	if err != nil {
		return fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []ports.Order
	for rows.Next() {
		var order ports.Order
		if err := rows.Scan(&order.ID, &order.ReservationID, &order.Number, &order.PersonName, &order.Status, &order.TotalCents); err != nil {
			return fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating orders: %w", err)
	}

	for i := range orders {
		items, err := s.loadOrderItems(ctx, db, orders[i].ID)
		if err != nil {
			return err
		}
		orders[i].Items = items
	}

	res.Orders = orders
	return nil
}

func (s *LibSQLDataStore) loadOrderItems(ctx context.Context, db *sql.DB, orderID int64) ([]ports.OrderItem, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, order_id, menu_item_id, name, quantity, price_cents
		FROM order_items WHERE order_id = ? ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []ports.OrderItem
	for rows.Next() {
		var item ports.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.MenuItemID, &item.Name, &item.Quantity, &item.PriceCents); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}
	return items, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
