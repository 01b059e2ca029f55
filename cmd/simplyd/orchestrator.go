// cmd/simplyd/orchestrator.go
package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/tamzrod/simply/internal/dispatcher"
	"github.com/tamzrod/simply/internal/poller"
	"github.com/tamzrod/simply/internal/status"
	"github.com/tamzrod/simply/internal/writer"
)

type statsSource interface {
	Stats() dispatcher.Stats
}

// orchestrator owns the status snapshot. It consumes poll results and a
// 1Hz tick; data and status writers are optional.
type orchestrator struct {
	data   writer.Writer
	status writer.StatusWriter
	stats  statsSource

	// Without polling the connector being up is the only health signal.
	polling bool

	log  *slog.Logger
	snap status.Snapshot
}

func (o *orchestrator) run(ctx context.Context, in <-chan poller.PollResult) error {
	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	o.start()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case res := <-in:
			o.onPoll(res)

		case <-secTicker.C:
			o.onTick()
		}
	}
}

// start writes the full block once (identity re-assert) if status is enabled.
func (o *orchestrator) start() {
	o.snap = status.Snapshot{Health: status.HealthUnknown}
	if !o.polling {
		o.snap.Health = status.HealthOK
	}
	o.snap = o.snap.WithCounters(o.counters())
	o.writeStatus("start")
}

func (o *orchestrator) onPoll(res poller.PollResult) {
	// --- data delivery ---
	if o.data != nil {
		if err := o.data.Write(res); err != nil {
			o.log.Warn("export write failed", "err", err)
		}
	}

	if res.Err != nil {
		o.log.Warn("poll failed", "err", res.Err, "code", res.RawErrorCode)
	}

	// --- status update ---
	next := o.snap
	if res.Err == nil {
		// Recovery / OK: error code and seconds reset.
		next.Health = status.HealthOK
		next.LastErrorCode = 0
		next.SecondsInError = 0
	} else {
		// seconds_in_error increments on the 1Hz ticker only.
		next.Health = status.HealthError
		next.LastErrorCode = res.RawErrorCode
	}
	next = next.WithCounters(o.counters())

	if next != o.snap {
		o.snap = next
		o.writeStatus("poll")
	}
}

func (o *orchestrator) onTick() {
	next := o.snap.WithCounters(o.counters())

	// Tick 1 Hz while not OK; never wraps.
	if next.Health != status.HealthOK && next.SecondsInError < 65535 {
		next.SecondsInError++
	}

	if next != o.snap {
		o.snap = next
		o.writeStatus("tick")
	}
}

func (o *orchestrator) counters() status.Counters {
	if o.stats == nil {
		return status.Counters{}
	}
	st := o.stats.Stats()
	return status.Counters{
		QueueLength: st.QueueLength,
		InFlight:    st.InFlight,
		Succeeded:   st.Succeeded,
		Failed:      st.Failed,
	}
}

func (o *orchestrator) writeStatus(reason string) {
	if o.status == nil {
		return
	}
	if err := o.status.WriteStatus(o.snap); err != nil {
		o.log.Warn("status write failed", "reason", reason, "err", err)
	}
}
