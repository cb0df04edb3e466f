package scheduler

import (
	"fmt"
	"time"
)

// Window is a market-hours window, open and close inclusive, expressed as
// minutes from midnight.
type Window struct {
	OpenMinute  int
	CloseMinute int
}

// ParseWindow parses "HH:MM" open/close strings into a Window.
func ParseWindow(open, close string) (Window, error) {
	openMin, err := parseClock(open)
	if err != nil {
		return Window{}, fmt.Errorf("market open %q: %w", open, err)
	}
	closeMin, err := parseClock(close)
	if err != nil {
		return Window{}, fmt.Errorf("market close %q: %w", close, err)
	}
	if closeMin < openMin {
		return Window{}, fmt.Errorf("market close %q before open %q", close, open)
	}
	return Window{OpenMinute: openMin, CloseMinute: closeMin}, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// IsMarketOpen reports whether ingestion should run at the given instant:
// a weekday, with the time of day inside [open, close]. Both boundaries are
// inclusive, so a tick at exactly the close minute still runs.
func IsMarketOpen(now time.Time, w Window) bool {
	switch now.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	sec := now.Hour()*3600 + now.Minute()*60 + now.Second()
	return sec >= w.OpenMinute*60 && sec <= w.CloseMinute*60
}
