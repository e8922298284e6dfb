package model

import "time"

type PowerState string

const (
	PowerOn  PowerState = "on"
	PowerOff PowerState = "off"
)

// ValidPowerState reports whether s is one of the two states a device can report.
func ValidPowerState(s string) bool {
	return PowerState(s) == PowerOn || PowerState(s) == PowerOff
}

// StateEvent is a single logged power-state transition. Events are append-only:
// the controller records one per observed change and never rewrites them.
type StateEvent struct {
	ID         int64      `json:"id"`
	DeviceID   string     `json:"deviceID"`
	SourceAddr string     `json:"staIPAddress"`
	State      PowerState `json:"ledState"`
	Timestamp  time.Time  `json:"date_time"`
}

// ScheduleWindow is a configured on-period for a device. StartTime and EndTime
// are stored as entered: either full datetimes ("2006-01-02 15:04:05") for
// one-shot windows, or clock times ("15:04") that repeat daily. A single window
// never mixes the two forms.
type ScheduleWindow struct {
	ID        int64  `json:"id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	DeviceID  string `json:"deviceID"`
}

// DutyTotals holds accumulated on/off durations in minutes.
type DutyTotals struct {
	OnMinutes  float64 `json:"on"`
	OffMinutes float64 `json:"off"`
}

type User struct {
	Username string
	Password string // bcrypt hash
	IsActive bool
}
