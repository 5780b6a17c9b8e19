package commons

import "time"

// Clock is the time source of anything that schedules or stamps events.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
