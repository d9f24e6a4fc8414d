package payments

import "strings"

// IsPaid reports whether a raw processor status is a terminal success.
func IsPaid(raw string) bool {
	switch NormalizeStatus(raw) {
	case StatusPaid, StatusSucceeded:
		return true
	}
	return false
}

// NormalizeStatus canonicalizes a processor status to uppercase. Nothing else
// is touched: " PAID" stays distinct from "PAID".
func NormalizeStatus(raw string) string {
	return strings.ToUpper(raw)
}
