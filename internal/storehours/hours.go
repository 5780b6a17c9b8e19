// Package storehours decides whether the store takes online orders at a given instant.
package storehours

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"
)

// Window is one opening interval in minutes after local midnight. A window whose close is
// not after its open runs past midnight into the next day.
type Window struct {
	Open  int
	Close int
}

func (w Window) overnight() bool {
	return w.Close <= w.Open
}

func (w Window) String() string {
	return formatMinute(w.Open) + "-" + formatMinute(w.Close)
}

// Hours is a weekly opening schedule in one time zone. A nil or empty schedule is always open.
type Hours struct {
	location *time.Location
	days     map[time.Weekday][]Window
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Error points at the part of a schedule that could not be parsed.
type Error struct {
	Key    string
	Reason string
}

func (e *Error) Error() string {
	return "store hours " + e.Key + ": " + e.Reason
}

// Parse builds a schedule from day names mapped to comma separated "HH:MM-HH:MM" windows,
// e.g. {"friday": "11:30-15:00,18:00-01:00"}. Days left out are closed. An empty map
// yields an always-open schedule. An empty timezone means UTC.
func Parse(openingHours map[string]string, timezone string) (*Hours, error) {
	location := time.UTC
	if tz := strings.TrimSpace(timezone); tz != "" {
		loaded, err := time.LoadLocation(tz)
		if err != nil {
			return nil, &Error{Key: "timezone", Reason: "unknown time zone " + strconv.Quote(tz)}
		}
		location = loaded
	}

	days := make(map[time.Weekday][]Window, len(openingHours))
	for rawDay, rawWindows := range openingHours {
		day, ok := weekdays[strings.ToLower(strings.TrimSpace(rawDay))]
		if !ok {
			return nil, &Error{Key: rawDay, Reason: "unknown weekday"}
		}
		var windows []Window
		for _, part := range strings.Split(rawWindows, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			w, err := parseWindow(part)
			if err != nil {
				return nil, &Error{Key: rawDay, Reason: err.Error()}
			}
			windows = append(windows, w)
		}
		sort.Slice(windows, func(i, j int) bool { return windows[i].Open < windows[j].Open })
		days[day] = windows
	}

	return &Hours{location: location, days: days}, nil
}

func parseWindow(raw string) (Window, error) {
	open, closing, ok := strings.Cut(raw, "-")
	if !ok {
		return Window{}, fmt.Errorf("window %q must look like HH:MM-HH:MM", raw)
	}
	o, err := parseMinute(open)
	if err != nil {
		return Window{}, err
	}
	c, err := parseMinute(closing)
	if err != nil {
		return Window{}, err
	}
	if o == c {
		return Window{}, fmt.Errorf("window %q opens and closes at the same time", raw)
	}
	return Window{Open: o, Close: c}, nil
}

func parseMinute(raw string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", strings.TrimSpace(raw))
	}
	return t.Hour()*60 + t.Minute(), nil
}

func formatMinute(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// IsOpen reports whether t falls inside a window, including windows of the previous day
// that run past midnight.
func (h *Hours) IsOpen(t time.Time) bool {
	if h == nil || len(h.days) == 0 {
		return true
	}

	local := t.In(h.location)
	minute := local.Hour()*60 + local.Minute()

	for _, w := range h.days[local.Weekday()] {
		if w.overnight() {
			if minute >= w.Open {
				return true
			}
			continue
		}
		if minute >= w.Open && minute < w.Close {
			return true
		}
	}

	previous := (local.Weekday() + 6) % 7
	for _, w := range h.days[previous] {
		if w.overnight() && minute < w.Close {
			return true
		}
	}
	return false
}

// Timezone returns the IANA name of the schedule's zone.
func (h *Hours) Timezone() string {
	if h == nil {
		return time.UTC.String()
	}
	return h.location.String()
}

// OpeningHours renders the schedule back into the form accepted by Parse.
func (h *Hours) OpeningHours() map[string]string {
	out := map[string]string{}
	if h == nil {
		return out
	}
	for name, day := range weekdays {
		windows, ok := h.days[day]
		if !ok {
			continue
		}
		parts := make([]string, 0, len(windows))
		for _, w := range windows {
			parts = append(parts, w.String())
		}
		out[name] = strings.Join(parts, ",")
	}
	return out
}

// Calendar holds the schedule in force. It is safe for concurrent use.
type Calendar struct {
	mu    sync.RWMutex
	hours *Hours
}

func NewCalendar(hours *Hours) *Calendar {
	return &Calendar{hours: hours}
}

func (c *Calendar) IsOpen(t time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hours.IsOpen(t)
}

func (c *Calendar) Replace(hours *Hours) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hours = hours
}

func (c *Calendar) Hours() *Hours {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hours
}
