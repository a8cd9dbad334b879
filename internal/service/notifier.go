package service

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"instaweb/internal/core/domain"
)

// Event is one progress update for a stream subscriber.
type Event struct {
	Status domain.Status
	Data   []byte
}

// Terminal reports whether this is the last event of its stream.
func (e Event) Terminal() bool {
	return e.Status.IsTerminal() || e.Status == domain.StatusUnknown
}

// Watch streams the view of job id. An event is sent whenever the view
// changes; the channel is closed after a ready, error or unknown view, or
// once ctx is done.
func (o *Orchestrator) Watch(ctx context.Context, id string) <-chan Event {
	out := make(chan Event)
	changed, unsubscribe := o.broker.subscribe(id)

	go func() {
		defer close(out)
		defer unsubscribe()

		ticker := time.NewTicker(o.pollInterval)
		defer ticker.Stop()

		var last []byte
		for {
			ev, err := o.snapshot(id)
			if err != nil {
				o.logger.Error("failed to encode job view", zap.String("job_id", id), zap.Error(err))
				return
			}

			if !bytes.Equal(ev.Data, last) {
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
				last = ev.Data
			}
			if ev.Terminal() {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-changed:
			case <-ticker.C:
			}
		}
	}()

	return out
}

func (o *Orchestrator) snapshot(id string) (Event, error) {
	job, ok := o.store.Get(id)
	if !ok {
		data, err := json.Marshal(domain.UnknownView{Status: domain.StatusUnknown})
		return Event{Status: domain.StatusUnknown, Data: data}, err
	}

	data, err := json.Marshal(domain.ViewOf(job))
	return Event{Status: job.Status, Data: data}, err
}
