package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/senselive/ahu-controller/internal/model"
	"github.com/senselive/ahu-controller/internal/schedule"
)

const deviceID = "ahu-1"

func clockWindow(id int64, start, end string) model.ScheduleWindow {
	return model.ScheduleWindow{ID: id, StartTime: start, EndTime: end, DeviceID: deviceID}
}

func at(hour, minute int) time.Time {
	return time.Date(2024, 3, 10, hour, minute, 0, 0, time.Local)
}

func TestEvaluateWrapAroundWindow(t *testing.T) {
	windows := []model.ScheduleWindow{clockWindow(1, "22:00", "06:00")}

	assert.Equal(t, schedule.DecisionOn, schedule.Evaluate(windows, at(23, 0), deviceID))
	assert.Equal(t, schedule.DecisionOn, schedule.Evaluate(windows, at(5, 0), deviceID))
	assert.Equal(t, schedule.DecisionOff, schedule.Evaluate(windows, at(10, 0), deviceID))
	// Boundaries are inclusive on both ends.
	assert.Equal(t, schedule.DecisionOn, schedule.Evaluate(windows, at(22, 0), deviceID))
	assert.Equal(t, schedule.DecisionOn, schedule.Evaluate(windows, at(6, 0), deviceID))
}

func TestEvaluateDaytimeWindow(t *testing.T) {
	windows := []model.ScheduleWindow{clockWindow(1, "09:00", "17:00")}

	// Before the only window has started there is nothing to command.
	assert.Equal(t, schedule.DecisionNone, schedule.Evaluate(windows, at(8, 0), deviceID))
	assert.Equal(t, schedule.DecisionOn, schedule.Evaluate(windows, at(12, 0), deviceID))
	assert.Equal(t, schedule.DecisionOn, schedule.Evaluate(windows, at(9, 0), deviceID))
	assert.Equal(t, schedule.DecisionOn, schedule.Evaluate(windows, at(17, 0), deviceID))
	assert.Equal(t, schedule.DecisionOff, schedule.Evaluate(windows, at(18, 0), deviceID))
}

func TestEvaluateEarlierWindowStillSelectedWhenLaterNotStarted(t *testing.T) {
	windows := []model.ScheduleWindow{
		clockWindow(1, "06:00", "07:00"),
		clockWindow(2, "09:00", "17:00"),
	}

	// At 08:00 the morning window has started and ended; the day window has
	// not begun, so the morning window still governs: off.
	assert.Equal(t, schedule.DecisionOff, schedule.Evaluate(windows, at(8, 0), deviceID))

	// Once the later window starts it wins on latest start.
	assert.Equal(t, schedule.DecisionOn, schedule.Evaluate(windows, at(12, 0), deviceID))
}

func TestEvaluateWrapWindowLosesToLaterMorningStart(t *testing.T) {
	windows := []model.ScheduleWindow{
		clockWindow(1, "22:00", "06:00"),
		clockWindow(2, "05:00", "08:00"),
	}

	// At 05:30 the overnight window began yesterday evening; the 05:00 window
	// began this morning and is the most recent start.
	assert.Equal(t, schedule.DecisionOn, schedule.Evaluate(windows, at(5, 30), deviceID))

	// At 09:00 the 05:00 window is still the latest start and has ended.
	assert.Equal(t, schedule.DecisionOff, schedule.Evaluate(windows, at(9, 0), deviceID))

	// At 23:00 the overnight window has the latest start again.
	assert.Equal(t, schedule.DecisionOn, schedule.Evaluate(windows, at(23, 0), deviceID))
}

func TestEvaluateAbsoluteWindows(t *testing.T) {
	windows := []model.ScheduleWindow{
		{ID: 1, StartTime: "2024-03-10 09:00:00", EndTime: "2024-03-10 17:00:00", DeviceID: deviceID},
	}

	assert.Equal(t, schedule.DecisionNone, schedule.Evaluate(windows, at(8, 0), deviceID))
	assert.Equal(t, schedule.DecisionOn, schedule.Evaluate(windows, at(12, 0), deviceID))
	assert.Equal(t, schedule.DecisionOff, schedule.Evaluate(windows, at(18, 0), deviceID))

	// One-shot: the day after, the window has long started and ended.
	nextDay := time.Date(2024, 3, 11, 12, 0, 0, 0, time.Local)
	assert.Equal(t, schedule.DecisionOff, schedule.Evaluate(windows, nextDay, deviceID))
}

func TestEvaluateLatestStartWins(t *testing.T) {
	windows := []model.ScheduleWindow{
		{ID: 1, StartTime: "2024-03-10 08:00:00", EndTime: "2024-03-10 20:00:00", DeviceID: deviceID},
		{ID: 2, StartTime: "2024-03-10 10:00:00", EndTime: "2024-03-10 11:00:00", DeviceID: deviceID},
	}

	// Both started; the 10:00 window is the most recent start and has ended,
	// so the decision is off even though the 08:00 window would still be on.
	assert.Equal(t, schedule.DecisionOff, schedule.Evaluate(windows, at(12, 0), deviceID))

	// Before the second window starts, the first governs.
	assert.Equal(t, schedule.DecisionOn, schedule.Evaluate(windows, at(9, 0), deviceID))
}

func TestEvaluateTieBreakTakesLastFound(t *testing.T) {
	windows := []model.ScheduleWindow{
		{ID: 1, StartTime: "2024-03-10 09:00:00", EndTime: "2024-03-10 10:00:00", DeviceID: deviceID},
		{ID: 2, StartTime: "2024-03-10 09:00:00", EndTime: "2024-03-10 17:00:00", DeviceID: deviceID},
	}

	// Identical starts: the last window found wins deterministically. At noon
	// window 2 is still open, so on (window 1 would have said off).
	assert.Equal(t, schedule.DecisionOn, schedule.Evaluate(windows, at(12, 0), deviceID))
}

func TestEvaluateFiltersByDevice(t *testing.T) {
	windows := []model.ScheduleWindow{
		{ID: 1, StartTime: "09:00", EndTime: "17:00", DeviceID: "other-device"},
	}

	assert.Equal(t, schedule.DecisionNone, schedule.Evaluate(windows, at(12, 0), deviceID))
}

func TestEvaluateNoWindows(t *testing.T) {
	assert.Equal(t, schedule.DecisionNone, schedule.Evaluate(nil, at(12, 0), deviceID))
}

func TestEvaluateSkipsMalformedWindow(t *testing.T) {
	windows := []model.ScheduleWindow{
		{ID: 1, StartTime: "not-a-time", EndTime: "also-not", DeviceID: deviceID},
		clockWindow(2, "09:00", "17:00"),
	}

	// The malformed window is ignored; the valid one still governs.
	assert.Equal(t, schedule.DecisionOn, schedule.Evaluate(windows, at(12, 0), deviceID))
}

func TestEvaluateClockWithSeconds(t *testing.T) {
	windows := []model.ScheduleWindow{clockWindow(1, "09:00:00", "17:00:00")}
	assert.Equal(t, schedule.DecisionOn, schedule.Evaluate(windows, at(12, 0), deviceID))
}
