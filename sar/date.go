// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

package sar

import (
	"encoding/json"
	"sort"
	"time"
)

// dateLayout is the canonical day key used in artifact names and metadata.
const dateLayout = "20060102"

var dateEpoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// Date is a day-granularity acquisition date.
//
// Dates are comparable with == and usable as map keys.
type Date struct {
	days int
}

// NewDate returns the date of the given calendar day.
func NewDate(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{days: int(t.Unix() / (24 * 60 * 60))}
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) Date {
	t = t.UTC()
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses the canonical YYYYMMDD form.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return Date{}, Error.New("invalid date %q: %v", s, err)
	}
	return DateOf(t), nil
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time { return dateEpoch.AddDate(0, 0, d.days) }

// String returns the canonical YYYYMMDD form.
func (d Date) String() string { return d.Time().Format(dateLayout) }

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d == Date{} }

// Before reports whether d is earlier than other.
func (d Date) Before(other Date) bool { return d.days < other.days }

// After reports whether d is later than other.
func (d Date) After(other Date) bool { return d.days > other.days }

// Compare returns -1, 0, or 1 ordering d against other.
func (d Date) Compare(other Date) int {
	switch {
	case d.days < other.days:
		return -1
	case d.days > other.days:
		return 1
	}
	return 0
}

// DaysTo returns the signed day difference from d to other.
func (d Date) DaysTo(other Date) int { return other.days - d.days }

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date { return Date{days: d.days + n} }

// MarshalJSON encodes the date as its canonical YYYYMMDD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes the canonical YYYYMMDD string form.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return Error.Wrap(err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// SortedUniqueDates returns the distinct dates in ascending order.
func SortedUniqueDates(dates []Date) []Date {
	seen := make(map[Date]struct{}, len(dates))
	out := make([]Date, 0, len(dates))
	for _, d := range dates {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Before(out[k]) })
	return out
}
