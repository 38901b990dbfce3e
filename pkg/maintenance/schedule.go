package maintenance

import (
	"fmt"
	"time"
)

// Schedule computes the next run of a task after from.
type Schedule interface {
	Next(from time.Time) time.Time
	String() string
}

type interval time.Duration

func (i interval) Next(from time.Time) time.Time { return from.Add(time.Duration(i)) }
func (i interval) String() string                { return "every " + time.Duration(i).String() }

// wallClock fires at a fixed offset inside every hour or every day, in the
// location of the time it is asked about.
type wallClock struct {
	daily  bool
	hour   int
	minute int
}

func (w wallClock) Next(from time.Time) time.Time {
	hour := from.Hour()
	if w.daily {
		hour = w.hour
	}
	next := time.Date(from.Year(), from.Month(), from.Day(), hour, w.minute, 0, 0, from.Location())
	for !next.After(from) {
		if w.daily {
			next = next.AddDate(0, 0, 1)
		} else {
			next = next.Add(time.Hour)
		}
	}
	return next
}

func (w wallClock) String() string {
	if w.daily {
		return fmt.Sprintf("daily at %02d:%02d", w.hour, w.minute)
	}
	return fmt.Sprintf("hourly at :%02d", w.minute)
}

// EveryInterval runs a task every d. A non-positive d means every second.
func EveryInterval(d time.Duration) Schedule {
	if d <= 0 {
		d = time.Second
	}
	return interval(d)
}

// HourlyAt runs a task once an hour at minute (taken modulo 60).
func HourlyAt(minute int) Schedule {
	return wallClock{minute: mod(minute, 60)}
}

// DailyAt runs a task once a day at hour:minute local time of the runner clock.
func DailyAt(hour, minute int) Schedule {
	return wallClock{daily: true, hour: mod(hour, 24), minute: mod(minute, 60)}
}

func mod(v, n int) int {
	return ((v % n) + n) % n
}
