// Package dutycycle reconstructs on/off duration totals from the sparse
// state-change event log. The log only records transitions, so the gap between
// two consecutive events is the whole story: the device held the earlier
// event's state for the entire gap.
package dutycycle

import (
	"fmt"
	"sort"
	"time"

	"github.com/senselive/ahu-controller/internal/model"
)

// Aggregate totals on/off minutes across the given range using positional
// attribution: the durations of all OFF→ON gaps are collected in order, and
// even-indexed gaps accumulate to OnMinutes while odd-indexed gaps accumulate
// to OffMinutes.
//
// This deliberately reproduces the accounting of the legacy /time report,
// which alternates buckets by gap index rather than inspecting the recorded
// state. AggregateByState implements the by-state alternative; the two can
// disagree and callers must pick one knowingly.
func Aggregate(events []model.StateEvent, from, to time.Time) model.DutyTotals {
	events = filterAndSort(events, from, to)

	var gaps []time.Duration
	for i := 1; i < len(events); i++ {
		prev, curr := events[i-1], events[i]
		if prev.State == model.PowerOff && curr.State == model.PowerOn {
			gaps = append(gaps, curr.Timestamp.Sub(prev.Timestamp))
		}
	}

	var totals model.DutyTotals
	for i, gap := range gaps {
		if i%2 == 0 {
			totals.OnMinutes += gap.Minutes()
		} else {
			totals.OffMinutes += gap.Minutes()
		}
	}
	return totals
}

// AggregateByState totals on/off minutes across the given range by attributing
// each gap between consecutive events to the state recorded by the earlier
// event.
func AggregateByState(events []model.StateEvent, from, to time.Time) model.DutyTotals {
	events = filterAndSort(events, from, to)

	var totals model.DutyTotals
	for i := 1; i < len(events); i++ {
		prev, curr := events[i-1], events[i]
		gap := curr.Timestamp.Sub(prev.Timestamp)
		if prev.State == model.PowerOn {
			totals.OnMinutes += gap.Minutes()
		} else {
			totals.OffMinutes += gap.Minutes()
		}
	}
	return totals
}

// AggregateByDay buckets by-state totals under calendar-day keys formatted
// "YYYY-M-D" (unpadded). Each gap is attributed wholly to the day of its
// closing timestamp: a gap spanning midnight is not split between days. Every
// day that has at least one event gets a bucket, even if no gap closed on it.
func AggregateByDay(events []model.StateEvent, from, to time.Time) map[string]model.DutyTotals {
	events = filterAndSort(events, from, to)

	days := make(map[string]model.DutyTotals)
	for i, curr := range events {
		key := DayKey(curr.Timestamp)
		totals := days[key]

		if i > 0 {
			prev := events[i-1]
			gap := curr.Timestamp.Sub(prev.Timestamp)
			if prev.State == model.PowerOn {
				totals.OnMinutes += gap.Minutes()
			} else {
				totals.OffMinutes += gap.Minutes()
			}
		}
		days[key] = totals
	}
	return days
}

// DayKey formats a timestamp as its local calendar-day bucket key.
func DayKey(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d", t.Year(), int(t.Month()), t.Day())
}

// filterAndSort drops events outside [from, to] before any pairing happens, so
// an event just outside the range can never contribute a phantom gap inside
// it, then sorts ascending by timestamp. Insertion order is not trusted to
// match timestamp order. The input slice is never modified.
func filterAndSort(events []model.StateEvent, from, to time.Time) []model.StateEvent {
	filtered := make([]model.StateEvent, 0, len(events))
	for _, e := range events {
		if !from.IsZero() && e.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && e.Timestamp.After(to) {
			continue
		}
		filtered = append(filtered, e)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})
	return filtered
}
