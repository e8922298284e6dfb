// Package schedulecontroller drives the device on/off according to the stored
// schedule.
package schedulecontroller

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/senselive/ahu-controller/db"
	"github.com/senselive/ahu-controller/internal/datadog"
	"github.com/senselive/ahu-controller/internal/mqtt"
	"github.com/senselive/ahu-controller/internal/schedule"
)

// CommandQoS requests at-least-once delivery for device commands.
const CommandQoS byte = 1

// Controller polls the schedule on a fixed tick and publishes a command when
// the decision for a device changes. One goroutine (Run) owns the ticker and
// the last-sent map, so ticks never overlap: a tick that outruns the interval
// makes the ticker drop fires rather than run two evaluations concurrently.
type Controller struct {
	dbConn    *sql.DB
	publisher mqtt.Publisher
	topic     string
	deviceIDs []string
	interval  time.Duration

	lastSent map[string]schedule.Decision
}

func New(dbConn *sql.DB, publisher mqtt.Publisher, topic string, deviceIDs []string, interval time.Duration) *Controller {
	return &Controller{
		dbConn:    dbConn,
		publisher: publisher,
		topic:     topic,
		deviceIDs: deviceIDs,
		interval:  interval,
		lastSent:  make(map[string]schedule.Decision),
	}
}

// Run ticks until ctx is cancelled. Blocking; callers run it in its own
// goroutine. An in-flight publish completes before Run returns.
func (c *Controller) Run(ctx context.Context) {
	log.Info().
		Dur("interval", c.interval).
		Strs("devices", c.deviceIDs).
		Msg("Starting schedule controller")

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Schedule controller stopped")
			return
		case <-ticker.C:
			c.Tick(time.Now())
		}
	}
}

// Tick evaluates the schedule for every managed device at now and publishes a
// command for each device whose decision changed since the last command sent.
//
// A None decision neither publishes nor overwrites the last-sent record, so a
// later real decision still compares against the true previous command; this
// keeps the controller from sending a spurious off before any schedule has
// started. A failed publish is logged and the last-sent record is left alone,
// so the next tick retries it naturally.
func (c *Controller) Tick(now time.Time) {
	for _, deviceID := range c.deviceIDs {
		windows, err := db.ListSchedules(c.dbConn, deviceID)
		if err != nil {
			log.Error().Err(err).Str("device_id", deviceID).Msg("Could not retrieve schedules from db")
			continue
		}

		decision := schedule.Evaluate(windows, now, deviceID)
		if decision == schedule.DecisionNone {
			log.Debug().Str("device_id", deviceID).Msg("No schedule window has started, nothing to command")
			continue
		}

		last, sent := c.lastSent[deviceID]
		if sent && decision == last {
			continue
		}

		if err := c.publisher.Publish(c.topic, CommandQoS, []byte(decision)); err != nil {
			log.Error().
				Err(err).
				Str("device_id", deviceID).
				Str("command", string(decision)).
				Msg("Failed to publish command, will retry next tick")
			datadog.Count("control.publish_failures", 1, "device:"+deviceID)
			continue
		}

		c.lastSent[deviceID] = decision
		datadog.Count("control.commands", 1, "device:"+deviceID, "command:"+string(decision))

		log.Info().
			Str("device_id", deviceID).
			Str("command", string(decision)).
			Time("at", now).
			Msg("Published device command")
	}
}
