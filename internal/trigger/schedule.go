package trigger

import "time"

// Window is a daily wall-clock interval, "HH:MM" to "HH:MM". Start after
// End means the window wraps midnight (e.g. 22:00-07:00).
type Window struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// deliveryTime computes when a notification should be delivered: the
// policy gives a base time (immediate, fixed delay, or the next occurrence
// of the preferred window), then do-not-disturb windows defer delivery to
// the window's end.
func deliveryTime(now time.Time, policy DeliveryPolicy, dnd []Window) time.Time {
	at := now
	switch policy.Mode {
	case DeliverDelayed:
		at = now.Add(policy.Delay)
	case DeliverPreferred:
		if policy.WindowStart != "" {
			at = nextOccurrence(at, policy.WindowStart, policy.WindowEnd)
		}
	}

	// A deferral can land inside another DND window, so re-check until
	// settled (bounded; windows are daily).
	for i := 0; i < len(dnd)+1; i++ {
		deferred := false
		for _, w := range dnd {
			if inClockWindow(at, w.Start, w.End) {
				at = windowEnd(at, w)
				deferred = true
			}
		}
		if !deferred {
			break
		}
	}

	return at
}

// nextOccurrence returns t if it is already inside [start, end), otherwise
// the next time the window opens.
func nextOccurrence(t time.Time, start, end string) time.Time {
	if end != "" && inClockWindow(t, start, end) {
		return t
	}
	open := atClock(t, start)
	if !open.After(t) {
		open = open.AddDate(0, 0, 1)
	}
	return open
}

// inClockWindow reports whether t's wall-clock time falls in [start, end).
// A window with start after end wraps midnight.
func inClockWindow(t time.Time, start, end string) bool {
	startMin, okS := clockMinutes(start)
	endMin, okE := clockMinutes(end)
	if !okS || !okE {
		return false
	}

	cur := t.Hour()*60 + t.Minute()
	if startMin <= endMin {
		return cur >= startMin && cur < endMin
	}
	return cur >= startMin || cur < endMin
}

// windowEnd returns the end of the window occurrence containing t.
func windowEnd(t time.Time, w Window) time.Time {
	end := atClock(t, w.End)
	if !end.After(t) {
		end = end.AddDate(0, 0, 1)
	}
	return end
}

// atClock returns t's date at the given "HH:MM" wall-clock time.
func atClock(t time.Time, clock string) time.Time {
	minutes, ok := clockMinutes(clock)
	if !ok {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), minutes/60, minutes%60, 0, 0, t.Location())
}

func clockMinutes(clock string) (int, bool) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, false
	}
	return parsed.Hour()*60 + parsed.Minute(), true
}
