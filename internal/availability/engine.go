// Package availability computes bookable appointment start times.
//
// Everything here is pure: no I/O, no clocks, no shared state.
package availability

import (
	"errors"
	"fmt"
	"time"

	"agendapro/internal/models"
)

// SlotGranularity is the spacing of the start-time grid, in minutes.
const SlotGranularity = 30

var (
	ErrConfigurationMissing = errors.New("availability: operating schedule or service duration missing")
	ErrInvalidInterval      = errors.New("availability: invalid booked interval")
	ErrClosedDay            = errors.New("availability: not an operating day")
)

// Interval is a half-open [Start, End) range in minutes since midnight.
type Interval struct {
	Start int
	End   int
}

func (i Interval) Valid() bool {
	return i.End > i.Start
}

// Overlaps reports a positive-length intersection. Touching endpoints do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && i.End > o.Start
}

func (i Interval) String() string {
	return FormatClock(i.Start) + "-" + FormatClock(i.End)
}

// Partition splits booked intervals into usable ones and an error per malformed entry.
func Partition(booked []Interval) ([]Interval, []error) {
	valid := make([]Interval, 0, len(booked))
	var rejected []error
	for _, b := range booked {
		if !b.Valid() {
			rejected = append(rejected, fmt.Errorf("%w: %d..%d", ErrInvalidInterval, b.Start, b.End))
			continue
		}
		valid = append(valid, b)
	}
	return valid, rejected
}

// Slots returns ascending start offsets on the grid openTime + k*SlotGranularity whose
// [s, s+duration) fits before closeTime and overlaps no valid booked interval.
// Malformed intervals are ignored. Bad hours or duration yield an empty result.
func Slots(openTime, closeTime, duration int, booked []Interval) []int {
	if openTime < 0 || closeTime > MinutesPerDay || openTime >= closeTime || duration <= 0 {
		return []int{}
	}

	valid, _ := Partition(booked)
	slots := []int{}
	for s := openTime; s+duration <= closeTime; s += SlotGranularity {
		candidate := Interval{Start: s, End: s + duration}
		if !overlapsAny(candidate, valid) {
			slots = append(slots, s)
		}
	}
	return slots
}

func overlapsAny(candidate Interval, booked []Interval) bool {
	for _, b := range booked {
		if candidate.Overlaps(b) {
			return true
		}
	}
	return false
}

// Fits reports whether a specific slot is free, with the same rules as Slots.
func Fits(slot Interval, booked []Interval) bool {
	if !slot.Valid() {
		return false
	}
	valid, _ := Partition(booked)
	return !overlapsAny(slot, valid)
}

// IsOperatingDay reports whether the date's weekday is one of days.
func IsOperatingDay(date time.Time, days []time.Weekday) bool {
	wd := date.Weekday()
	for _, d := range days {
		if d == wd {
			return true
		}
	}
	return false
}

// Hours is an operating schedule resolved to minutes and weekdays.
type Hours struct {
	Open  int
	Close int
	Days  []time.Weekday
}

// Window resolves a stored schedule.
func Window(schedule *models.OperatingSchedule) (Hours, error) {
	if schedule == nil || schedule.IsZero() {
		return Hours{}, ErrConfigurationMissing
	}
	open, err := ParseClock(schedule.OpenTime)
	if err != nil {
		return Hours{}, fmt.Errorf("%w: open time: %v", ErrConfigurationMissing, err)
	}
	closing, err := ParseClock(schedule.CloseTime)
	if err != nil {
		return Hours{}, fmt.Errorf("%w: close time: %v", ErrConfigurationMissing, err)
	}
	if open >= closing {
		return Hours{}, fmt.Errorf("%w: open time %s is not before close time %s",
			ErrConfigurationMissing, schedule.OpenTime, schedule.CloseTime)
	}
	days, err := ParseWeekdays(schedule.OperatingDays)
	if err != nil {
		return Hours{}, fmt.Errorf("%w: %v", ErrConfigurationMissing, err)
	}
	return Hours{Open: open, Close: closing, Days: days}, nil
}

// Compute resolves the schedule, rejects closed days and returns the free slots as "HH:MM".
func Compute(schedule *models.OperatingSchedule, duration int, date time.Time, booked []Interval) ([]string, error) {
	if duration <= 0 {
		return nil, ErrConfigurationMissing
	}
	hours, err := Window(schedule)
	if err != nil {
		return nil, err
	}
	if !IsOperatingDay(date, hours.Days) {
		return nil, ErrClosedDay
	}
	return FormatSlots(Slots(hours.Open, hours.Close, duration, booked)), nil
}

// BookedFromAppointments projects pending and confirmed appointments into intervals.
// Entries with unparsable times come back as errors.
func BookedFromAppointments(appointments []*models.Appointment) ([]Interval, []error) {
	out := make([]Interval, 0, len(appointments))
	var errs []error
	for _, a := range appointments {
		if !a.Blocking() {
			continue
		}
		start, err := ParseClock(a.StartTime)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: appointment %s: %v", ErrInvalidInterval, a.ID, err))
			continue
		}
		end, err := ParseClock(a.EndTime)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: appointment %s: %v", ErrInvalidInterval, a.ID, err))
			continue
		}
		out = append(out, Interval{Start: start, End: end})
	}
	return out, errs
}
