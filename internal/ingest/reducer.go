// Package ingest consumes device telemetry and appends state transitions to
// the event log.
package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/senselive/ahu-controller/db"
	"github.com/senselive/ahu-controller/internal/datadog"
	"github.com/senselive/ahu-controller/internal/model"
	"github.com/senselive/ahu-controller/internal/mqtt"
)

// telemetryMessage is the JSON payload the device publishes. currentDate and
// currentDateTime are separate fields that form one instant when joined with
// a space.
type telemetryMessage struct {
	DeviceID        string `json:"deviceID"`
	StaIPAddress    string `json:"staIPAddress"`
	LedState        string `json:"ledState"`
	CurrentDate     string `json:"currentDate"`
	CurrentDateTime string `json:"currentDateTime"`
}

const timestampLayout = "2006-01-02 15:04:05"

// Reducer is an edge-triggered filter over the telemetry stream: it appends a
// StateEvent only when a message's state differs from the device's last known
// state. Consecutive identical states are intentional no-ops, so downstream
// readers must treat the absence of an event as "no change", not "no data".
//
// All reduction runs on the single goroutine inside Run, which owns the
// last-known-state map. That serializes processing per device and avoids
// races on the previous-state read.
type Reducer struct {
	dbConn *sql.DB
	inbox  chan []byte

	last   map[string]model.PowerState
	seeded map[string]bool
}

func NewReducer(dbConn *sql.DB) *Reducer {
	return &Reducer{
		dbConn: dbConn,
		inbox:  make(chan []byte, 64),
		last:   make(map[string]model.PowerState),
		seeded: make(map[string]bool),
	}
}

// HandleMessage is the MQTT subscription handler. It hands the payload to the
// reducer goroutine without blocking the client; if the inbox is full the
// message is dropped and the next telemetry sample carries the state anyway.
func (r *Reducer) HandleMessage(msg mqtt.Message) {
	select {
	case r.inbox <- msg.Payload:
	default:
		log.Warn().Str("topic", msg.Topic).Msg("Telemetry inbox full, dropping message")
		datadog.Count("ingest.dropped", 1)
	}
}

// Run consumes the inbox until ctx is cancelled. Blocking; callers run it in
// its own goroutine.
func (r *Reducer) Run(ctx context.Context) {
	log.Info().Msg("Starting telemetry reducer")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Telemetry reducer stopped")
			return
		case payload := <-r.inbox:
			r.Process(payload)
		}
	}
}

// Process reduces a single raw telemetry payload. Malformed payloads are
// dropped with a warning and never reach the store.
func (r *Reducer) Process(payload []byte) {
	datadog.Count("ingest.messages", 1)

	var msg telemetryMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Warn().Err(err).Msg("Dropping unparseable telemetry message")
		datadog.Count("ingest.malformed", 1)
		return
	}
	if msg.DeviceID == "" || msg.CurrentDate == "" || msg.CurrentDateTime == "" {
		log.Warn().Str("device_id", msg.DeviceID).Msg("Dropping telemetry message with missing fields")
		datadog.Count("ingest.malformed", 1)
		return
	}
	if !model.ValidPowerState(msg.LedState) {
		log.Warn().Str("device_id", msg.DeviceID).Str("led_state", msg.LedState).Msg("Dropping telemetry message with unknown state")
		datadog.Count("ingest.malformed", 1)
		return
	}

	timestamp, err := time.ParseInLocation(timestampLayout, msg.CurrentDate+" "+msg.CurrentDateTime, time.Local)
	if err != nil {
		log.Warn().
			Err(err).
			Str("device_id", msg.DeviceID).
			Str("date", msg.CurrentDate).
			Str("time", msg.CurrentDateTime).
			Msg("Dropping telemetry message with malformed timestamp")
		datadog.Count("ingest.malformed", 1)
		return
	}

	state := model.PowerState(msg.LedState)
	prev, known := r.lastState(msg.DeviceID)
	if known && state == prev {
		log.Debug().Str("device_id", msg.DeviceID).Str("state", msg.LedState).Msg("State unchanged, nothing to record")
		return
	}

	event := model.StateEvent{
		DeviceID:   msg.DeviceID,
		SourceAddr: msg.StaIPAddress,
		State:      state,
		Timestamp:  timestamp,
	}
	if _, err := db.InsertStateEvent(r.dbConn, event); err != nil {
		// Leave last-known state untouched so the next message retries the append.
		log.Error().Err(err).Str("device_id", msg.DeviceID).Msg("Failed to record state transition")
		return
	}

	r.last[msg.DeviceID] = state
	r.seeded[msg.DeviceID] = true
	datadog.Count("ingest.transitions", 1, "device:"+msg.DeviceID)

	log.Info().
		Str("device_id", msg.DeviceID).
		Str("state", msg.LedState).
		Time("timestamp", timestamp).
		Msg("Recorded device state transition")
}

// lastState returns the device's last known state, seeding it from the event
// log on first contact so a controller restart does not re-log the state the
// device is already in.
func (r *Reducer) lastState(deviceID string) (model.PowerState, bool) {
	if r.seeded[deviceID] {
		state, ok := r.last[deviceID]
		return state, ok
	}
	latest, err := db.GetLatestStateEvent(r.dbConn, deviceID)
	if err != nil {
		// Not marked seeded: the next message retries the seed read.
		log.Error().Err(err).Str("device_id", deviceID).Msg("Failed to seed last known state from event log")
		return "", false
	}
	r.seeded[deviceID] = true
	if latest == nil {
		return "", false
	}
	r.last[deviceID] = latest.State
	return latest.State, true
}
