package world

import "fmt"

// DayNames are the days of the simulated week, starting on Monday.
var DayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Clock is the simulated time of day plus the day-of-week index.
type Clock struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Day    int `json:"day"` // 0 = Monday
}

// Rollover reports which boundaries an Advance crossed.
type Rollover struct {
	Hour    bool
	Day     bool
	PrevDay int // day index before the advance
}

// Advance moves the clock forward by minutes.
func (c *Clock) Advance(minutes int) Rollover {
	r := Rollover{PrevDay: c.Day}
	if minutes <= 0 {
		return r
	}

	total := c.Minute + minutes
	c.Minute = total % 60
	hours := total / 60
	if hours == 0 {
		return r
	}
	r.Hour = true

	total = c.Hour + hours
	c.Hour = total % 24
	days := total / 24
	if days > 0 {
		r.Day = true
		c.Day = (c.Day + days) % len(DayNames)
	}
	return r
}

// DayName returns the name of the current day.
func (c Clock) DayName() string {
	return DayNames[((c.Day%7)+7)%7]
}

// Weekend reports whether the current day is Saturday or Sunday.
func (c Clock) Weekend() bool {
	d := ((c.Day % 7) + 7) % 7
	return d >= 5
}

// MinuteOfDay returns minutes since midnight.
func (c Clock) MinuteOfDay() int {
	return c.Hour*60 + c.Minute
}

func (c Clock) String() string {
	return fmt.Sprintf("%s %02d:%02d", c.DayName(), c.Hour, c.Minute)
}

// DayIndex returns the index of a day name, or false if unknown.
func DayIndex(name string) (int, bool) {
	for i, n := range DayNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}
