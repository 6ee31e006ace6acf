package wkrd

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

// Serial day numbers count from 1899-12-31 as day 1 and include the
// nonexistent 1900-02-29 as day 60.
var (
	serialEpoch      = time.Date(1899, 12, 31, 0, 0, 0, 0, time.UTC)
	serialEpochMinus = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
)

// serialDaysTooLarge is the first day number after 9999-12-31.
const serialDaysTooLarge = 2958466

// SerialTime converts a serial day number (the integer part counts days,
// the fraction is the time of day) to a time. Values below 1 are a time
// of day on the epoch date.
func SerialTime(serial float64) (time.Time, error) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) {
		return time.Time{}, errors.Errorf("serial date %v is not finite", serial)
	}
	if serial < 0 {
		return time.Time{}, errors.Errorf("serial date %v < 0", serial)
	}
	days := int(serial)
	if days >= serialDaysTooLarge {
		return time.Time{}, errors.Errorf("serial date %v too large", serial)
	}
	if days == 60 {
		return time.Time{}, errors.Errorf("serial date %v is the nonexistent 1900-02-29", serial)
	}
	epoch := serialEpoch
	if days > 60 {
		epoch = serialEpochMinus
	}
	fraction := serial - float64(days)
	millis := int64(math.Round(fraction * 86400000.0))
	return epoch.AddDate(0, 0, days).Add(time.Duration(millis) * time.Millisecond), nil
}
