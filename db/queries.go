package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/senselive/ahu-controller/internal/model"
)

// GetStateEvents retrieves state-change events in ascending timestamp order.
// deviceID narrows to one device; pass "" for all devices. A zero from/to
// leaves that side of the range unbounded.
func GetStateEvents(db *sql.DB, deviceID string, from, to time.Time) ([]model.StateEvent, error) {
	query := `SELECT id, deviceID, staIPAddress, ledState, date_time FROM ahu_control`
	var conds []string
	var args []interface{}

	if deviceID != "" {
		conds = append(conds, `deviceID = ?`)
		args = append(args, deviceID)
	}
	if !from.IsZero() {
		conds = append(conds, `date_time >= ?`)
		args = append(args, from.Format(time.RFC3339))
	}
	if !to.IsZero() {
		conds = append(conds, `date_time <= ?`)
		args = append(args, to.Format(time.RFC3339))
	}
	for i, c := range conds {
		if i == 0 {
			query += ` WHERE ` + c
		} else {
			query += ` AND ` + c
		}
	}
	query += ` ORDER BY date_time ASC`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query state events: %w", err)
	}
	defer rows.Close()

	return scanStateEvents(rows)
}

// GetRecentStateEvents retrieves the most recent events, newest first.
func GetRecentStateEvents(db *sql.DB, limit int) ([]model.StateEvent, error) {
	rows, err := db.Query(`SELECT id, deviceID, staIPAddress, ledState, date_time FROM ahu_control ORDER BY date_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent state events: %w", err)
	}
	defer rows.Close()

	return scanStateEvents(rows)
}

// GetLatestStateEvent retrieves the newest event for a device, or nil when the
// device has never reported. deviceID "" matches any device.
func GetLatestStateEvent(db *sql.DB, deviceID string) (*model.StateEvent, error) {
	query := `SELECT id, deviceID, staIPAddress, ledState, date_time FROM ahu_control`
	var args []interface{}
	if deviceID != "" {
		query += ` WHERE deviceID = ?`
		args = append(args, deviceID)
	}
	query += ` ORDER BY date_time DESC LIMIT 1`

	var e model.StateEvent
	var ts string
	err := db.QueryRow(query, args...).Scan(&e.ID, &e.DeviceID, &e.SourceAddr, &e.State, &ts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest state event: %w", err)
	}
	e.Timestamp, err = time.Parse(time.RFC3339, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse event timestamp %q: %w", ts, err)
	}
	return &e, nil
}

func scanStateEvents(rows *sql.Rows) ([]model.StateEvent, error) {
	var events []model.StateEvent
	for rows.Next() {
		var e model.StateEvent
		var ts string
		if err := rows.Scan(&e.ID, &e.DeviceID, &e.SourceAddr, &e.State, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan state event: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("failed to parse event timestamp %q: %w", ts, err)
		}
		e.Timestamp = parsed
		events = append(events, e)
	}
	return events, rows.Err()
}

// ListSchedules retrieves schedule windows ordered by start time. deviceID ""
// matches all devices.
func ListSchedules(db *sql.DB, deviceID string) ([]model.ScheduleWindow, error) {
	query := `SELECT id, start_time, end_time, deviceID FROM ahu_schedule`
	var args []interface{}
	if deviceID != "" {
		query += ` WHERE deviceID = ?`
		args = append(args, deviceID)
	}
	query += ` ORDER BY start_time ASC, id ASC`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	var windows []model.ScheduleWindow
	for rows.Next() {
		var w model.ScheduleWindow
		if err := rows.Scan(&w.ID, &w.StartTime, &w.EndTime, &w.DeviceID); err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

// GetScheduleByID retrieves one schedule window, or nil when it does not exist.
func GetScheduleByID(db *sql.DB, id int64) (*model.ScheduleWindow, error) {
	var w model.ScheduleWindow
	err := db.QueryRow(`SELECT id, start_time, end_time, deviceID FROM ahu_schedule WHERE id = ?`, id).
		Scan(&w.ID, &w.StartTime, &w.EndTime, &w.DeviceID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule %d: %w", id, err)
	}
	return &w, nil
}

// GetUserByUsername retrieves a user record, or nil when no such user exists.
func GetUserByUsername(db *sql.DB, username string) (*model.User, error) {
	var u model.User
	var active int
	err := db.QueryRow(`SELECT Username, Password, is_active FROM ahu_users WHERE Username = ?`, username).
		Scan(&u.Username, &u.Password, &active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", username, err)
	}
	u.IsActive = active != 0
	return &u, nil
}
