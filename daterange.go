/*
Copyright © 2026 the eocalc authors.
This file is part of eocalc.

eocalc is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

eocalc is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with eocalc.  If not, see <http://www.gnu.org/licenses/>.
*/

package eocalc

import (
	"fmt"
	"time"
)

const dateFormat = "2006-01-02"

// DateRange is an inclusive range of calendar dates. The zero value
// is invalid; use NewDateRange. DateRange values are immutable and
// comparable with ==.
type DateRange struct {
	start, end time.Time
}

// NewDateRange parses two ISO dates (e.g. "2019-01-01") into an
// inclusive range. The end date must not precede the start date.
func NewDateRange(start, end string) (DateRange, error) {
	s, err := time.ParseInLocation(dateFormat, start, time.UTC)
	if err != nil {
		return DateRange{}, fmt.Errorf("eocalc: parsing period start: %v", err)
	}
	e, err := time.ParseInLocation(dateFormat, end, time.UTC)
	if err != nil {
		return DateRange{}, fmt.Errorf("eocalc: parsing period end: %v", err)
	}
	return DateRangeOf(s, e)
}

// DateRangeOf builds a range from two timestamps, keeping only their
// UTC calendar dates.
func DateRangeOf(start, end time.Time) (DateRange, error) {
	s := truncateToDay(start)
	e := truncateToDay(end)
	if e.Before(s) {
		return DateRange{}, fmt.Errorf("eocalc: period end %s precedes start %s",
			e.Format(dateFormat), s.Format(dateFormat))
	}
	return DateRange{start: s, end: e}, nil
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Start returns the first day of the range.
func (r DateRange) Start() time.Time { return r.start }

// End returns the last day of the range.
func (r DateRange) End() time.Time { return r.end }

// IsZero reports whether the range was never initialized.
func (r DateRange) IsZero() bool { return r.start.IsZero() }

// Days returns the number of days in the range, counting both
// endpoints: a range from a day to itself is 1 day long.
func (r DateRange) Days() int {
	return int(r.end.Sub(r.start).Hours()/24) + 1
}

// Contains reports whether the UTC calendar date of t falls within the
// range.
func (r DateRange) Contains(t time.Time) bool {
	d := truncateToDay(t)
	return !d.Before(r.start) && !d.After(r.end)
}

// EachDay calls f for every day of the range in ascending order,
// stopping early and returning f's error if it fails.
func (r DateRange) EachDay(f func(day time.Time) error) error {
	for d := r.start; !d.After(r.end); d = d.AddDate(0, 0, 1) {
		if err := f(d); err != nil {
			return err
		}
	}
	return nil
}

// Months returns the first day of every calendar month the range
// touches, in ascending order.
func (r DateRange) Months() []time.Time {
	var months []time.Time
	m := time.Date(r.start.Year(), r.start.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !m.After(r.end) {
		months = append(months, m)
		m = m.AddDate(0, 1, 0)
	}
	return months
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s to %s, %d days]",
		r.start.Format(dateFormat), r.end.Format(dateFormat), r.Days())
}
