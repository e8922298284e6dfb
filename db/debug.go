package db

import (
	"fmt"

	"github.com/senselive/ahu-controller/internal/model"
)

// CLI helpers used by cmd/debug. Each opens the database fresh so the tool can
// run against a live controller's file.

func ListSchedulesCLI(dbPath string) error {
	conn, err := Open(dbPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	windows, err := ListSchedules(conn, "")
	if err != nil {
		return err
	}
	if len(windows) == 0 {
		fmt.Println("No schedules configured")
		return nil
	}
	for _, w := range windows {
		fmt.Printf("%d\t%s\t%s -> %s\n", w.ID, w.DeviceID, w.StartTime, w.EndTime)
	}
	return nil
}

func AddScheduleCLI(dbPath, deviceID, startTime, endTime string) error {
	conn, err := Open(dbPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	id, err := AddSchedule(conn, model.ScheduleWindow{
		StartTime: startTime,
		EndTime:   endTime,
		DeviceID:  deviceID,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Added schedule %d\n", id)
	return nil
}

func DeleteScheduleCLI(dbPath string, id int64) error {
	conn, err := Open(dbPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := DeleteSchedule(conn, id); err != nil {
		return err
	}
	fmt.Printf("Deleted schedule %d\n", id)
	return nil
}

func ShowStatusCLI(dbPath string) error {
	conn, err := Open(dbPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	event, err := GetLatestStateEvent(conn, "")
	if err != nil {
		return err
	}
	if event == nil {
		fmt.Println("No state events recorded")
		return nil
	}
	fmt.Printf("%s\t%s\t%s\t%s\n", event.DeviceID, event.SourceAddr, event.State, event.Timestamp.Format("2006-01-02 15:04:05"))
	return nil
}
