// internal/dispatcher/worker.go
package dispatcher

import (
	"errors"
	"time"

	"github.com/tamzrod/simply/internal/call"
	"github.com/tamzrod/simply/internal/protocol"
)

type waitOutcome int

const (
	gotResponse waitOutcome = iota
	timedOut
	quitting
)

func (d *Dispatcher) run() {
	defer close(d.done)

	var lastFinish time.Time
	for {
		req, ok := d.next()
		if !ok {
			return
		}
		settings := d.Settings()

		if !lastFinish.IsZero() {
			if !d.sleep(time.Until(lastFinish.Add(settings.BetweenSendPause))) {
				d.fail(req, call.NewError(call.KindDispatchToConnector, "connector destroyed"))
				return
			}
		}

		d.setCurrent(req.ID)
		d.process(req, settings)
		d.setCurrent(call.ID{})
		lastFinish = time.Now()

		if n := d.store.Purge(); n > 0 {
			d.log.Debug("purged idle results", "count", n)
		}
	}
}

// next blocks until a request is queued or the dispatcher stops.
func (d *Dispatcher) next() (*call.Request, bool) {
	for {
		d.mu.Lock()
		if d.stopped {
			d.mu.Unlock()
			return nil, false
		}
		if len(d.queue) > 0 {
			req := d.queue[0]
			d.queue[0] = nil
			d.queue = d.queue[1:]
			d.mu.Unlock()
			return req, true
		}
		d.mu.Unlock()

		select {
		case <-d.signal:
		case <-d.quit:
			return nil, false
		}
	}
}

func (d *Dispatcher) process(req *call.Request, settings Settings) {
	timeout := settings.ResponseTimeout
	switch {
	case req.MaxProcessingTime == call.Unlimited:
		timeout = 0
	case req.MaxProcessingTime > 0:
		timeout = req.MaxProcessingTime
	}

	d.store.MarkWaiting(req.ID)
	log := d.log.With("id", req.ID)

	for attempt := 1; ; attempt++ {
		if err := d.sender.SendRequest(req); err != nil {
			kind := call.KindDispatchToProtocolLayer
			if errors.Is(err, protocol.ErrEncoding) {
				kind = call.KindProtocolProcessing
			}
			log.Error("send failed", "attempt", attempt, "err", err)
			d.fail(req, call.WrapError(kind, err))
			return
		}
		log.Debug("request sent", "attempt", attempt)

		resp, out := d.await(req.ID, timeout)
		switch out {
		case gotResponse:
			d.complete(req, resp)
			return
		case quitting:
			d.fail(req, call.NewError(call.KindDispatchToConnector, "connector destroyed while waiting for response"))
			return
		}

		if attempt >= settings.MaxSendAttempts {
			log.Warn("no response", "attempts", attempt)
			d.fail(req, call.NewError(call.KindNoResponse, "no response after %d attempts", attempt))
			return
		}
		log.Warn("response timeout, resending", "attempt", attempt)
		d.countRetry()

		// A late response may still arrive during the pause.
		resp, out = d.await(req.ID, settings.AttemptPause)
		switch out {
		case gotResponse:
			d.complete(req, resp)
			return
		case quitting:
			d.fail(req, call.NewError(call.KindDispatchToConnector, "connector destroyed while waiting for response"))
			return
		}
	}
}

// await waits for the response to id. A zero timeout waits forever.
func (d *Dispatcher) await(id call.ID, timeout time.Duration) (protocol.Response, waitOutcome) {
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	for {
		select {
		case resp := <-d.responses:
			if resp.RequestID != id {
				d.log.Warn("discarding stale response", "id", resp.RequestID, "want", id)
				continue
			}
			return resp, gotResponse
		case <-expired:
			return protocol.Response{}, timedOut
		case <-d.quit:
			return protocol.Response{}, quitting
		}
	}
}

// sleep pauses the worker and reports false if the dispatcher stopped.
func (d *Dispatcher) sleep(dur time.Duration) bool {
	if dur <= 0 {
		return true
	}
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-d.quit:
		return false
	}
}

func (d *Dispatcher) complete(req *call.Request, resp protocol.Response) {
	if resp.Err != nil {
		d.fail(req, resp.Err)
		return
	}

	val := resp.Value
	if req.Broadcast {
		if _, ok := val.(call.BroadcastResult); !ok {
			val = call.BroadcastOK
		}
	}

	// Counters change under d.mu together with the store write.
	d.mu.Lock()
	if d.store.Complete(req.ID, &call.Result{Value: val, AdditionalInfo: resp.AdditionalInfo}) {
		d.stats.Succeeded++
	}
	d.mu.Unlock()
	d.log.Debug("result arrived", "id", req.ID)
}

func (d *Dispatcher) fail(req *call.Request, perr *call.ProcessingError) {
	d.mu.Lock()
	ok := d.store.Fail(req.ID, perr)
	if ok {
		d.stats.Failed++
		d.stats.LastError = perr
		d.stats.LastErrorAt = time.Now()
	}
	d.mu.Unlock()
	if ok {
		d.log.Debug("request failed", "id", req.ID, "err", perr)
	}
}

func (d *Dispatcher) setCurrent(id call.ID) {
	d.mu.Lock()
	d.current = id
	d.mu.Unlock()
}

func (d *Dispatcher) countRetry() {
	d.mu.Lock()
	d.stats.Retries++
	d.mu.Unlock()
}
