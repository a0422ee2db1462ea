package ttk

import "fmt"

// FormatCents renders integer cents as a dollar string, e.g. 3400 -> "$34.00".
// All arithmetic stays in cents; this is for spoken summaries and receipts.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
