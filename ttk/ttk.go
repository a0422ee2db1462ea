// Package ttk holds application-wide defaults shared across the engine.
package ttk

const (
	// DefaultAppName is used for config discovery paths.
	DefaultAppName = "tabletalk"

	// DefaultConfigPath is the system-wide config directory.
	DefaultConfigPath = "/etc/tabletalk"

	// DefaultDatabaseDSN is the embedded libsql database location.
	DefaultDatabaseDSN = "file:tabletalk.db"

	// DefaultTimezone is the restaurant's fixed local time zone. All
	// conversational date/time validation happens in this zone.
	DefaultTimezone = "America/New_York"

	// DefaultCurrency is the ISO currency code used for payment requests.
	DefaultCurrency = "USD"

	// DefaultAreaCode is prepended to bare 7-digit phone numbers.
	DefaultAreaCode = "555"

	// DefaultVenueName appears on confirmation texts and receipts when the
	// deployment does not configure a restaurant name.
	DefaultVenueName = "TableTalk Bistro"
)
