package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/senselive/ahu-controller/internal/model"
)

var (
	// ErrScheduleExists is returned when a window with the same start time
	// already exists for the device. Start times are unique per device so the
	// evaluator's "latest start" selection stays unambiguous.
	ErrScheduleExists = errors.New("schedule with this start time already exists")

	// ErrScheduleNotFound is returned by updates/deletes against a missing id.
	ErrScheduleNotFound = errors.New("schedule not found")

	// ErrUserExists is returned when registering a username that is taken.
	ErrUserExists = errors.New("user already exists")
)

// InsertStateEvent appends a state-change event to the log and returns its id.
func InsertStateEvent(db *sql.DB, e model.StateEvent) (int64, error) {
	res, err := db.Exec(`INSERT INTO ahu_control (deviceID, staIPAddress, ledState, date_time) VALUES (?, ?, ?, ?)`,
		e.DeviceID, e.SourceAddr, string(e.State), e.Timestamp.Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to insert state event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted event id: %w", err)
	}
	return id, nil
}

// AddSchedule inserts a new schedule window, rejecting duplicate start times
// for the same device.
func AddSchedule(db *sql.DB, w model.ScheduleWindow) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("start transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	err = tx.QueryRow(`SELECT COUNT(*) FROM ahu_schedule WHERE start_time = ? AND deviceID = ?`, w.StartTime, w.DeviceID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("check schedule start time: %w", err)
	}
	if count > 0 {
		return 0, ErrScheduleExists
	}

	res, err := tx.Exec(`INSERT INTO ahu_schedule (start_time, end_time, deviceID) VALUES (?, ?, ?)`,
		w.StartTime, w.EndTime, w.DeviceID)
	if err != nil {
		return 0, fmt.Errorf("insert schedule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read inserted schedule id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit schedule insert: %w", err)
	}
	return id, nil
}

// UpdateSchedule replaces the start and end times of an existing window.
func UpdateSchedule(db *sql.DB, id int64, startTime, endTime string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := scheduleExists(tx, id)
	if err != nil {
		return err
	}
	if !existing {
		return ErrScheduleNotFound
	}

	_, err = tx.Exec(`UPDATE ahu_schedule SET start_time = ?, end_time = ? WHERE id = ?`, startTime, endTime, id)
	if err != nil {
		return fmt.Errorf("update schedule %d: %w", id, err)
	}
	return tx.Commit()
}

// DeleteSchedule removes a window.
func DeleteSchedule(db *sql.DB, id int64) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := scheduleExists(tx, id)
	if err != nil {
		return err
	}
	if !existing {
		return ErrScheduleNotFound
	}

	_, err = tx.Exec(`DELETE FROM ahu_schedule WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete schedule %d: %w", id, err)
	}
	return tx.Commit()
}

func scheduleExists(tx *sql.Tx, id int64) (bool, error) {
	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM ahu_schedule WHERE id = ?`, id).Scan(&count); err != nil {
		return false, fmt.Errorf("check schedule %d: %w", id, err)
	}
	return count > 0, nil
}

// InsertUser creates a user with a pre-hashed password.
func InsertUser(db *sql.DB, username, passwordHash string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM ahu_users WHERE Username = ?`, username).Scan(&count); err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if count > 0 {
		return ErrUserExists
	}

	_, err = tx.Exec(`INSERT INTO ahu_users (Username, Password, is_active) VALUES (?, ?, 0)`, username, passwordHash)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return tx.Commit()
}
