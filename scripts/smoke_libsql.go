//go:build integration
// +build integration

package scripts

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/tabletalkhq/tabletalk/ttk/engine/adapters"
	ports "github.com/tabletalkhq/tabletalk/ttk/engine/ports"
	"github.com/tabletalkhq/tabletalk/ttk/storage"
)

func must(err error, msg string) {
	if err != nil {
		log.Fatalf("%s: %v", msg, err)
	}
}

// RunSmokeStorage exercises the embedded libsql build end to end: goose
// migrations, the seeded catalog, and the full reservation lifecycle
// through the data store.
func RunSmokeStorage() {
	fmt.Println("Smoke test: libsql reservation storage")
	tmp := "./smoke.db"
	defer func() {
		os.Remove(tmp)
		os.Remove(tmp + "-wal")
		os.Remove(tmp + "-shm")
	}()

	dbm, err := storage.NewDBManager(&storage.Config{
		DSN:         "file:" + tmp,
		JournalMode: "WAL",
		SyncMode:    "NORMAL",
		TempStore:   "MEMORY",
		CacheSize:   -64000,
	})
	must(err, "open database")
	defer dbm.Close()

	db, err := dbm.DB()
	must(err, "database handle")

	// Basic
	var v int
	err = db.QueryRow("SELECT 1").Scan(&v)
	must(err, "basic SELECT")
	if v != 1 {
		log.Fatalf("basic SELECT returned %v", v)
	}
	fmt.Println("OK: basic SQL")

	// Schema and seed data landed
	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM menu_items").Scan(&count)
	must(err, "menu_items table")
	if count == 0 {
		log.Fatalf("seed migration left menu_items empty")
	}
	fmt.Printf("OK: goose migrations (%d seeded menu items)\n", count)

	// foreign_keys is set per connection; with a pool this read may land
	// on a connection the pragma never ran on, so warn instead of failing.
	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil || fk != 1 {
		log.Printf("WARN: foreign_keys not confirmed on this connection (fk=%d, err=%v)", fk, err)
	} else {
		fmt.Println("OK: foreign keys")
	}

	ctx := context.Background()
	store := adapters.NewLibSQLDataStore(dbm)

	// Catalog upsert: add one item, then replace it with a new price.
	must(store.UpsertMenuItems(ctx, []ports.MenuItem{
		{ID: "smoke-special", Name: "Smoke Special", PriceCents: 1099, Category: "entrees", Available: true},
	}), "upsert menu item")
	must(store.UpsertMenuItems(ctx, []ports.MenuItem{
		{ID: "smoke-special", Name: "Smoke Special", PriceCents: 1299, Category: "entrees", Available: true},
	}), "replace menu item")
	items, err := store.ListMenuItems(ctx)
	must(err, "list menu items")
	var special *ports.MenuItem
	for i := range items {
		if items[i].ID == "smoke-special" {
			special = &items[i]
			break
		}
	}
	if special == nil || special.PriceCents != 1299 {
		log.Fatalf("catalog upsert mismatch: %+v", special)
	}
	fmt.Println("OK: catalog upsert")

	// Reservation lifecycle
	res := &ports.Reservation{
		Number:    "482913",
		Name:      "Jim Smith",
		Phone:     "+15559876543",
		PartySize: 2,
		StartAt:   time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second),
		Orders: []ports.Order{
			{
				Number:     "620001",
				PersonName: "Jim",
				TotalCents: 2499,
				Items: []ports.OrderItem{
					{MenuItemID: "ribeye-steak", Name: "Ribeye Steak", Quantity: 1, PriceCents: 2499},
				},
			},
		},
	}
	must(store.CreateReservation(ctx, res), "create reservation")

	loaded, err := store.GetReservation(ctx, "482913")
	must(err, "get reservation")
	if loaded.Name != "Jim Smith" || len(loaded.Orders) != 1 || len(loaded.Orders[0].Items) != 1 {
		log.Fatalf("reservation roundtrip mismatch: %+v", loaded)
	}
	if !loaded.StartAt.Equal(res.StartAt) {
		log.Fatalf("start_at roundtrip mismatch: stored %v, loaded %v", res.StartAt, loaded.StartAt)
	}
	fmt.Println("OK: reservation roundtrip")

	found, err := store.FindReservations(ctx, ports.ReservationFilter{Phone: "+15559876543"})
	must(err, "find by phone")
	if len(found) != 1 {
		log.Fatalf("find by phone returned %d rows", len(found))
	}
	fmt.Println("OK: filtered lookup")

	byOrder, err := store.FindReservationByOrderNumber(ctx, "620001")
	must(err, "resolve order number")
	if byOrder.Number != "482913" {
		log.Fatalf("order resolved to reservation %s", byOrder.Number)
	}
	fmt.Println("OK: order to reservation join")

	must(store.UpdateOrderStatus(ctx, "620001", ports.OrderPreparing), "update order status")
	order, err := store.GetOrder(ctx, "620001")
	must(err, "get order")
	if order.Status != ports.OrderPreparing {
		log.Fatalf("order status is %s", order.Status)
	}
	fmt.Println("OK: kitchen status update")

	must(store.MarkReservationPaid(ctx, "482913", "CONF-AB12CD34", 2499), "mark paid")
	loaded, err = store.GetReservation(ctx, "482913")
	must(err, "reload reservation")
	if !loaded.Paid || loaded.PaidAmountCents != 2499 || loaded.ConfirmationNumber != "CONF-AB12CD34" {
		log.Fatalf("payment not recorded: %+v", loaded)
	}
	fmt.Println("OK: payment recorded")

	must(store.CancelReservation(ctx, "482913"), "cancel reservation")
	loaded, err = store.GetReservation(ctx, "482913")
	must(err, "reload cancelled")
	if loaded.Status != ports.ReservationCancelled {
		log.Fatalf("cancel not recorded: %s", loaded.Status)
	}
	fmt.Println("OK: cancellation")

	exists, err := store.ReservationNumberExists(ctx, "482913")
	must(err, "number exists")
	free, err := store.ReservationNumberExists(ctx, "111111")
	must(err, "number free")
	if !exists || free {
		log.Fatalf("number uniqueness check wrong: exists=%v free=%v", exists, free)
	}
	fmt.Println("OK: number uniqueness")

	fmt.Println("Smoke checks completed.")
	// wait a tick to flush logs in some environments
	time.Sleep(100 * time.Millisecond)
}
