// Package format holds the display formatting shared by item, cart and
// balance views.
package format

import (
	"unicode"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

// Number renders an integer with en-US digit grouping (12,500).
func Number(n int64) string {
	return humanize.Comma(n)
}

// Money renders an amount in smallest currency units with a dollar sign.
func Money(n int64) string {
	return "$" + Number(n)
}

// CurrencyLabel maps a currency type to its display label. cash and bank have
// fixed labels, anything else gets its first letter upper-cased.
func CurrencyLabel(currencyType string) string {
	switch currencyType {
	case "cash":
		return "Cash"
	case "bank":
		return "Bank"
	case "":
		return ""
	}
	r, size := utf8.DecodeRuneInString(currencyType)
	return string(unicode.ToUpper(r)) + currencyType[size:]
}

// Pending is shown in place of an amount that has not been pushed yet.
const Pending = "..."
