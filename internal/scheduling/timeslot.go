package scheduling

import (
	"regexp"
	"time"
)

const dateLayout = "2006-01-02"

var (
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// ValidDate reports whether s is a YYYY-MM-DD string naming a real calendar day.
func ValidDate(s string) bool {
	if !dateRe.MatchString(s) {
		return false
	}
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

// ValidTime reports whether s is a zero-padded 24-hour HH:MM string.
func ValidTime(s string) bool {
	return timeRe.MatchString(s)
}

// Overlaps reports whether [startA, endA) and [startB, endB) intersect.
// Zero-padded HH:MM strings order lexically the same as numerically, so
// ranges that only touch at an endpoint do not overlap.
func Overlaps(startA, endA, startB, endB string) bool {
	return startA < endB && startB < endA
}

// NextWeekly returns the civil date seven days after date.
func NextWeekly(date string) (string, error) {
	d, err := time.ParseInLocation(dateLayout, date, time.UTC)
	if err != nil {
		return "", err
	}
	return d.AddDate(0, 0, 7).Format(dateLayout), nil
}
