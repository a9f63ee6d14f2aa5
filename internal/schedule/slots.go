package schedule

import (
	"time"
)

// Slot is one bookable 30-minute interval with display strings for the UI.
type Slot struct {
	StartTime time.Time
	EndTime   time.Time
	Formatted string // "9:00 AM - 9:30 AM"
	Day       string // "Monday January 2"
}

// DaySlots groups a day's slots under its calendar date. Days with no open
// slots still appear with an empty list.
type DaySlots struct {
	Date        string // "2006-01-02"
	DisplayDate string
	Slots       []Slot
}

// BuildDays projects the window's time-of-day onto each day of the horizon
// and walks it in fixed steps, dropping past slots and slots that overlap a
// scheduled appointment. Only the hour and minute of windowStart/windowEnd
// are meaningful; their dates are re-anchored per projected day.
func BuildDays(windowStart, windowEnd time.Time, booked []Interval, now time.Time) []DaySlots {
	days := make([]DaySlots, 0, HorizonDays)

	for offset := 0; offset < HorizonDays; offset++ {
		day := now.AddDate(0, 0, offset)

		dayStart := anchorOnDay(windowStart, day)
		dayEnd := anchorOnDay(windowEnd, day)

		bucket := DaySlots{
			Date:  day.Format("2006-01-02"),
			Slots: []Slot{},
		}

		for current := dayStart; ; current = current.Add(SlotDuration) {
			next := current.Add(SlotDuration)
			// The last slot may land exactly on the window end, never past it.
			if next.After(dayEnd) {
				break
			}

			if current.Before(now) {
				continue
			}

			candidate := Interval{Start: current, End: next}
			if overlapsAny(candidate, booked) {
				continue
			}

			bucket.Slots = append(bucket.Slots, Slot{
				StartTime: current,
				EndTime:   next,
				Formatted: current.Format("3:04 PM") + " - " + next.Format("3:04 PM"),
				Day:       current.Format("Monday January 2"),
			})
		}

		if len(bucket.Slots) > 0 {
			bucket.DisplayDate = bucket.Slots[0].Day
		} else {
			bucket.DisplayDate = day.Format("Monday January 2")
		}

		days = append(days, bucket)
	}

	return days
}

// HorizonEnd returns the last instant slots can be generated for, used to
// bound the appointment query feeding BuildDays.
func HorizonEnd(now time.Time) time.Time {
	last := now.AddDate(0, 0, HorizonDays-1)
	return time.Date(last.Year(), last.Month(), last.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), last.Location())
}

func overlapsAny(candidate Interval, booked []Interval) bool {
	for _, b := range booked {
		if Overlaps(candidate, b) {
			return true
		}
	}
	return false
}

// anchorOnDay keeps t's time of day but moves it to day's calendar date.
func anchorOnDay(t, day time.Time) time.Time {
	return time.Date(
		day.Year(), day.Month(), day.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(),
		day.Location(),
	)
}
