// Package schedule decides whether a device should be on or off at a given
// instant based on its configured windows.
package schedule

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/senselive/ahu-controller/internal/model"
)

// Decision is the commanded state for a device at an instant.
type Decision string

const (
	DecisionOn   Decision = "on"
	DecisionOff  Decision = "off"
	DecisionNone Decision = "none" // no window has begun; do not command
)

const (
	layoutDateTime      = "2006-01-02 15:04:05"
	layoutDateTimeShort = "2006-01-02 15:04"
	layoutClockSec      = "15:04:05"
	layoutClock         = "15:04"
)

// parsedWindow normalizes a ScheduleWindow into one of two forms: an absolute
// one-shot window with full timestamps, or a daily clock window compared on
// minutes-of-day only.
type parsedWindow struct {
	id        int64
	clockOnly bool

	// absolute form
	start, end time.Time

	// clock form
	startMin, endMin int
	wraps            bool // end earlier than start: window crosses midnight
}

// Evaluate filters windows to deviceID, selects the most recently started one
// at now, and returns the commanded state. When no window has started yet the
// decision is DecisionNone and the caller must not command the device.
//
// Clock-only windows repeat daily. A wrap-around clock window (end earlier
// than start, e.g. 22:00–06:00) spans midnight: it is on when now is at or
// after the start OR at or before the end, and its current instance is
// considered to have started the previous evening when now is before the
// start clock-time. Ties on start time are broken by taking the last window
// found, with a warning; creation rejects duplicate starts so ties only occur
// via external writes.
func Evaluate(windows []model.ScheduleWindow, now time.Time, deviceID string) Decision {
	var selected *parsedWindow
	var selectedStart time.Time

	for _, w := range windows {
		if w.DeviceID != deviceID {
			continue
		}
		pw, err := parseWindow(w)
		if err != nil {
			log.Warn().
				Err(err).
				Int64("schedule_id", w.ID).
				Str("device_id", deviceID).
				Msg("Skipping malformed schedule window")
			continue
		}

		started, effectiveStart := windowStart(pw, now)
		if !started {
			continue
		}
		if selected != nil && effectiveStart.Equal(selectedStart) {
			log.Warn().
				Int64("schedule_id", pw.id).
				Int64("conflicting_id", selected.id).
				Str("device_id", deviceID).
				Msg("Two schedule windows share a start time; taking the last one found")
		}
		if selected == nil || !effectiveStart.Before(selectedStart) {
			win := pw
			selected = &win
			selectedStart = effectiveStart
		}
	}

	if selected == nil {
		return DecisionNone
	}
	if inWindow(selected, now) {
		return DecisionOn
	}
	return DecisionOff
}

// windowStart reports whether the window's current instance has begun at now,
// and the instant it began. Clock windows are anchored to now's calendar day
// so absolute and clock starts compare uniformly.
func windowStart(w parsedWindow, now time.Time) (bool, time.Time) {
	if !w.clockOnly {
		return !w.start.After(now), w.start
	}

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := day.Add(time.Duration(w.startMin) * time.Minute)

	if w.wraps && minutesOfDay(now) < w.startMin {
		// The instance spanning now (or just ended this morning) began
		// yesterday evening.
		return true, start.AddDate(0, 0, -1)
	}
	return minutesOfDay(now) >= w.startMin, start
}

func inWindow(w *parsedWindow, now time.Time) bool {
	if !w.clockOnly {
		return !now.Before(w.start) && !now.After(w.end)
	}

	nowMin := minutesOfDay(now)
	if w.wraps {
		return nowMin >= w.startMin || nowMin <= w.endMin
	}
	return nowMin >= w.startMin && nowMin <= w.endMin
}

func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func parseWindow(w model.ScheduleWindow) (parsedWindow, error) {
	startMin, startClockErr := parseClock(w.StartTime)
	endMin, endClockErr := parseClock(w.EndTime)
	if startClockErr == nil && endClockErr == nil {
		return parsedWindow{
			id:        w.ID,
			clockOnly: true,
			startMin:  startMin,
			endMin:    endMin,
			wraps:     endMin < startMin,
		}, nil
	}

	start, err := parseDateTime(w.StartTime)
	if err != nil {
		return parsedWindow{}, fmt.Errorf("bad start time %q: %w", w.StartTime, err)
	}
	end, err := parseDateTime(w.EndTime)
	if err != nil {
		return parsedWindow{}, fmt.Errorf("bad end time %q: %w", w.EndTime, err)
	}
	return parsedWindow{id: w.ID, start: start, end: end}, nil
}

func parseClock(s string) (int, error) {
	for _, layout := range []string{layoutClock, layoutClockSec} {
		if t, err := time.Parse(layout, s); err == nil {
			return minutesOfDay(t), nil
		}
	}
	return 0, fmt.Errorf("not a clock time: %q", s)
}

func parseDateTime(s string) (time.Time, error) {
	for _, layout := range []string{layoutDateTime, layoutDateTimeShort, time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized datetime format")
}
