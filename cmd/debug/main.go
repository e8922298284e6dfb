package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/senselive/ahu-controller/db"
)

func main() {
	DebugCLI()
}

func DebugCLI() {
	var dbPath, command, deviceID, startTime, endTime string
	var id int64
	flag.StringVar(&dbPath, "db", "data/ahu.db", "Path to the SQLite database file")
	flag.StringVar(&command, "cmd", "", "Command to run: list-schedules, add-schedule, delete-schedule, show-status")
	flag.StringVar(&deviceID, "device", "", "Device ID for add-schedule")
	flag.StringVar(&startTime, "start", "", "Start time for add-schedule (15:04 or 2006-01-02 15:04:05)")
	flag.StringVar(&endTime, "end", "", "End time for add-schedule")
	flag.Int64Var(&id, "id", 0, "Schedule ID for delete-schedule")
	help := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *help || command == "" {
		fmt.Println("\nUsage of ahu-debug:")
		fmt.Println("  -db string\tPath to the SQLite database file (default 'data/ahu.db')")
		fmt.Println("  -cmd string\tCommand to run: list-schedules, add-schedule, delete-schedule, show-status")
		fmt.Println("  -device string\tDevice ID for add-schedule")
		fmt.Println("  -start string\tStart time for add-schedule")
		fmt.Println("  -end string\tEnd time for add-schedule")
		fmt.Println("  -id int\tSchedule ID for delete-schedule")
		fmt.Println("  -help\tShow this help message")
		os.Exit(0)
	}

	var err error
	switch command {
	case "list-schedules":
		err = db.ListSchedulesCLI(dbPath)
	case "add-schedule":
		if deviceID == "" || startTime == "" || endTime == "" {
			fmt.Println("Error: device, start and end are required")
			os.Exit(1)
		}
		err = db.AddScheduleCLI(dbPath, deviceID, startTime, endTime)
	case "delete-schedule":
		if id == 0 {
			fmt.Println("Error: schedule id is required")
			os.Exit(1)
		}
		err = db.DeleteScheduleCLI(dbPath, id)
	case "show-status":
		err = db.ShowStatusCLI(dbPath)
	default:
		fmt.Println("Invalid command")
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Command %s failed: %v\n", command, err)
		os.Exit(1)
	}
}
