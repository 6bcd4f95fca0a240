package widget

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
	_ "time/tzdata"
)

const DefaultClockInterval = time.Minute

var offsetRe = regexp.MustCompile(`^([+-])(\d{1,2}):(\d{2})$`)

// ParseOffset parses a fixed UTC offset like "+05:30" or "-07:00". Named
// zones are not offsets and yield false.
func ParseOffset(s string) (time.Duration, bool) {
	m := offsetRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}

	hours, _ := strconv.Atoi(m[2])
	minutes, _ := strconv.Atoi(m[3])

	if hours > 14 || minutes > 59 {
		return 0, false
	}

	offset := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
	if m[1] == "-" {
		offset = -offset
	}

	return offset, true
}

// LocalTime formats the wall clock time at a fixed offset from UTC.
func LocalTime(now time.Time, offset time.Duration) string {
	return now.UTC().Add(offset).Format("15:04")
}

// Zone resolves a timezone label: fixed offsets become fixed zones, named
// zones are looked up in the tz database.
func Zone(label string) (*time.Location, bool) {
	if offset, ok := ParseOffset(label); ok {
		return time.FixedZone(label, int(offset/time.Second)), true
	}

	if label == "" || label == "Local" {
		return nil, false
	}

	loc, err := time.LoadLocation(label)
	if err != nil {
		return nil, false
	}

	return loc, true
}

// TimezoneText renders a timezone label for the details panel, appending
// the local time when the label resolves to a zone.
func TimezoneText(label string, now time.Time) string {
	if label == "" {
		return Placeholder
	}

	loc, ok := Zone(label)
	if !ok {
		return label
	}

	return fmt.Sprintf("%s (%s)", label, now.In(loc).Format("15:04"))
}

// clock refreshes the timezone field until stopped. The controller owns
// at most one live clock.
type clock struct {
	label string
	stop  chan struct{}
}

func newClock(label string) *clock {
	return &clock{
		label: label,
		stop:  make(chan struct{}),
	}
}

func (c *clock) run(interval time.Duration, tick func(*clock)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			tick(c)
		}
	}
}

func (c *clock) Stop() {
	close(c.stop)
}
