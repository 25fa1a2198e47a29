package fee

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Months are the billing month labels, in calendar order.
var Months = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// ParseMonth maps a month label (case-insensitive) to its time.Month.
func ParseMonth(label string) (time.Month, bool) {
	label = strings.TrimSpace(label)
	for i, m := range Months {
		if strings.EqualFold(m, label) {
			return time.Month(i + 1), true
		}
	}
	return 0, false
}

// MonthLabel returns the canonical label of m.
func MonthLabel(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return Months[m-1]
}

// dueDate returns the date (year, month, day).
// When day does not exist in month, day 28 of month is used instead.
func dueDate(year int, month time.Month, day int) time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Month() != month {
		d = time.Date(year, month, 28, 0, 0, 0, 0, time.UTC)
	}
	return d
}

func monthValidation(fl validator.FieldLevel) bool {
	_, ok := ParseMonth(fl.Field().String())
	return ok
}
