package dutycycle_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/senselive/ahu-controller/internal/dutycycle"
	"github.com/senselive/ahu-controller/internal/model"
)

var base = time.Date(2024, 3, 10, 8, 0, 0, 0, time.Local)

func event(state model.PowerState, at time.Time) model.StateEvent {
	return model.StateEvent{DeviceID: "ahu-1", State: state, Timestamp: at}
}

func TestAggregatePositionalAttribution(t *testing.T) {
	// Two off->on gaps: 10m then 20m. The positional rule puts the first
	// (even-indexed) gap in the on bucket and the second in the off bucket,
	// regardless of the states that bounded them.
	events := []model.StateEvent{
		event(model.PowerOff, base),
		event(model.PowerOn, base.Add(10*time.Minute)),
		event(model.PowerOff, base.Add(30*time.Minute)),
		event(model.PowerOn, base.Add(50*time.Minute)),
	}

	totals := dutycycle.Aggregate(events, base, base.Add(time.Hour))
	assert.Equal(t, 10.0, totals.OnMinutes)
	assert.Equal(t, 20.0, totals.OffMinutes)
}

func TestAggregateByStateAttribution(t *testing.T) {
	// Same sequence under the by-state rule: each gap belongs to the state
	// recorded before it. 10m off, 20m on, 20m off.
	events := []model.StateEvent{
		event(model.PowerOff, base),
		event(model.PowerOn, base.Add(10*time.Minute)),
		event(model.PowerOff, base.Add(30*time.Minute)),
		event(model.PowerOn, base.Add(50*time.Minute)),
	}

	totals := dutycycle.AggregateByState(events, base, base.Add(time.Hour))
	assert.Equal(t, 20.0, totals.OnMinutes)
	assert.Equal(t, 30.0, totals.OffMinutes)
}

func TestAggregateRulesDisagree(t *testing.T) {
	// Pin down that the two attribution rules genuinely diverge on the same
	// input, so callers cannot treat them as interchangeable.
	events := []model.StateEvent{
		event(model.PowerOff, base),
		event(model.PowerOn, base.Add(10*time.Minute)),
		event(model.PowerOff, base.Add(30*time.Minute)),
		event(model.PowerOn, base.Add(50*time.Minute)),
	}

	positional := dutycycle.Aggregate(events, time.Time{}, time.Time{})
	byState := dutycycle.AggregateByState(events, time.Time{}, time.Time{})
	assert.NotEqual(t, positional, byState)
}

func TestAggregateSortsDefensively(t *testing.T) {
	events := []model.StateEvent{
		event(model.PowerOn, base.Add(10*time.Minute)),
		event(model.PowerOff, base),
	}

	totals := dutycycle.Aggregate(events, time.Time{}, time.Time{})
	assert.Equal(t, 10.0, totals.OnMinutes)
	assert.Equal(t, 0.0, totals.OffMinutes)
}

func TestAggregateZeroAndOneEvent(t *testing.T) {
	assert.Equal(t, model.DutyTotals{}, dutycycle.Aggregate(nil, time.Time{}, time.Time{}))
	assert.Equal(t, model.DutyTotals{}, dutycycle.Aggregate([]model.StateEvent{event(model.PowerOn, base)}, time.Time{}, time.Time{}))
	assert.Equal(t, model.DutyTotals{}, dutycycle.AggregateByState([]model.StateEvent{event(model.PowerOn, base)}, time.Time{}, time.Time{}))
}

func TestAggregateExcludesEventsOutsideWindow(t *testing.T) {
	// The off event sits just before the window. It must be dropped before
	// pairing so it cannot form a phantom interval with the first in-window
	// event.
	events := []model.StateEvent{
		event(model.PowerOff, base.Add(-30*time.Minute)),
		event(model.PowerOn, base.Add(5*time.Minute)),
		event(model.PowerOff, base.Add(15*time.Minute)),
	}

	totals := dutycycle.Aggregate(events, base, base.Add(time.Hour))
	assert.Equal(t, 0.0, totals.OnMinutes)
	assert.Equal(t, 0.0, totals.OffMinutes)

	byState := dutycycle.AggregateByState(events, base, base.Add(time.Hour))
	assert.Equal(t, 10.0, byState.OnMinutes)
	assert.Equal(t, 0.0, byState.OffMinutes)
}

func TestAggregateIdempotent(t *testing.T) {
	events := []model.StateEvent{
		event(model.PowerOff, base),
		event(model.PowerOn, base.Add(10*time.Minute)),
		event(model.PowerOff, base.Add(30*time.Minute)),
	}

	first := dutycycle.Aggregate(events, time.Time{}, time.Time{})
	second := dutycycle.Aggregate(events, time.Time{}, time.Time{})
	assert.Equal(t, first, second)

	// The input slice order must survive aggregation untouched.
	assert.Equal(t, model.PowerOff, events[0].State)
	assert.True(t, events[0].Timestamp.Equal(base))
}

func TestAggregateByDayBucketsByClosingDay(t *testing.T) {
	evening := time.Date(2024, 3, 10, 23, 30, 0, 0, time.Local)
	morning := time.Date(2024, 3, 11, 0, 30, 0, 0, time.Local)

	events := []model.StateEvent{
		event(model.PowerOn, evening),
		event(model.PowerOff, morning),
	}

	days := dutycycle.AggregateByDay(events, time.Time{}, time.Time{})

	// The 60 minute on-span crossed midnight but is attributed wholly to the
	// day the closing event landed on.
	assert.Equal(t, 60.0, days["2024-3-11"].OnMinutes)
	assert.Equal(t, 0.0, days["2024-3-11"].OffMinutes)

	// The opening day still gets a bucket, with nothing closed on it.
	assert.Equal(t, model.DutyTotals{}, days["2024-3-10"])
	assert.Len(t, days, 2)
}

func TestAggregateByDayMultipleGaps(t *testing.T) {
	day := time.Date(2024, 3, 12, 9, 0, 0, 0, time.Local)
	events := []model.StateEvent{
		event(model.PowerOff, day),
		event(model.PowerOn, day.Add(15*time.Minute)),
		event(model.PowerOff, day.Add(45*time.Minute)),
	}

	days := dutycycle.AggregateByDay(events, time.Time{}, time.Time{})
	assert.Equal(t, 30.0, days["2024-3-12"].OnMinutes)
	assert.Equal(t, 15.0, days["2024-3-12"].OffMinutes)
}

func TestDayKeyUnpadded(t *testing.T) {
	assert.Equal(t, "2024-3-5", dutycycle.DayKey(time.Date(2024, 3, 5, 12, 0, 0, 0, time.Local)))
	assert.Equal(t, "2024-11-25", dutycycle.DayKey(time.Date(2024, 11, 25, 12, 0, 0, 0, time.Local)))
}
