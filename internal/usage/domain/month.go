package usage

import "strings"

// Months lists the short calendar month labels in calendar order.
var Months = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

var fullMonths = [12]string{"january", "february", "march", "april", "may", "june", "july", "august", "september", "october", "november", "december"}

// NormalizeMonth maps a short or full English month name (any case) to its short label.
func NormalizeMonth(value string) (string, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", false
	}
	for i, short := range Months {
		if value == strings.ToLower(short) || value == fullMonths[i] {
			return short, true
		}
	}
	// "Sept" shows up in hand-made spreadsheets.
	if value == "sept" {
		return "Sep", true
	}
	return "", false
}

// MonthIndex returns the zero-based calendar position of a short month label, or -1.
func MonthIndex(month string) int {
	for i, short := range Months {
		if short == month {
			return i
		}
	}
	return -1
}
