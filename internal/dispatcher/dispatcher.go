package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/viniciushammett/k8s-crashloop-monitor/internal/logger"
	"github.com/viniciushammett/k8s-crashloop-monitor/internal/metrics"
	"github.com/viniciushammett/k8s-crashloop-monitor/internal/model"
	"github.com/viniciushammett/k8s-crashloop-monitor/internal/notify"
	"github.com/viniciushammett/k8s-crashloop-monitor/internal/store"
)

// Dispatcher applies the cooldown gate to detections and records every
// attempted delivery as an Event. It is driven by the monitor loop only,
// so its in-memory state needs no locking; readers go through the store's
// atomic on-disk documents instead.
type Dispatcher struct {
	log      *logger.Logger
	store    *store.Store
	sender   notify.Sender
	cooldown time.Duration

	state  model.AlertState
	events []model.Event
}

func New(log *logger.Logger, st *store.Store, sender notify.Sender, cooldown time.Duration) *Dispatcher {
	return &Dispatcher{
		log:      log,
		store:    st,
		sender:   sender,
		cooldown: cooldown,
		state:    st.LoadState(),
		events:   st.LoadEvents(),
	}
}

// Dispatch processes detections sequentially in scan order. The state map
// is mutated between detections, so duplicate fingerprints within one tick
// see each other's just-sent timestamp and collapse into one alert.
// Dispatch has no fatal path: delivery failures become email_sent=false
// events, persistence failures are logged and retried by the next tick.
func (d *Dispatcher) Dispatch(ctx context.Context, detections []model.Detection) {
	for _, det := range detections {
		select {
		case <-ctx.Done():
			return
		default:
		}
		metrics.DetectionsTotal.WithLabelValues(det.Namespace).Inc()
		d.dispatchOne(det)
	}
}

func (d *Dispatcher) dispatchOne(det model.Detection) {
	fp := model.Fingerprint(det.Namespace, det.Pod, det.Container, det.Reason)
	now := time.Now().Unix()
	lastSent := d.state[fp]

	if now-lastSent < int64(d.cooldown.Seconds()) {
		metrics.SuppressedTotal.Inc()
		d.log.Debug().Str("ns", det.Namespace).Str("pod", det.Pod).Str("container", det.Container).
			Int64("since_last", now-lastSent).Msg("cooldown active, skipping")
		return
	}

	sent := d.sender.Send(formatAlert(det))
	if sent {
		// advance the cooldown clock before anything else: a crash right
		// after a successful send must not cause a duplicate on restart
		d.state[fp] = now
		if err := d.store.SaveState(d.state); err != nil {
			d.log.Error().Err(err).Msg("persist alert state failed")
		}
		metrics.AlertsTotal.WithLabelValues("sent").Inc()
	} else {
		// state untouched: the next tick retries without extra wait
		metrics.AlertsTotal.WithLabelValues("failed").Inc()
	}

	d.events = append(d.events, model.Event{Detection: det, EmailSent: sent})
	if len(d.events) > store.MaxEvents {
		d.events = d.events[len(d.events)-store.MaxEvents:]
	}
	if err := d.store.SaveEvents(d.events); err != nil {
		d.log.Error().Err(err).Msg("persist events failed")
	}
	metrics.EventsStored.Set(float64(len(d.events)))

	d.log.Info().Str("ns", det.Namespace).Str("pod", det.Pod).Str("container", det.Container).
		Int32("restarts", det.Restarts).Bool("email_sent", sent).Msg("crashloop alert")
}

func formatAlert(det model.Detection) (subject, body string) {
	subject = fmt.Sprintf("[K8s ALERT] CrashLoopBackOff: %s/%s (%s)", det.Namespace, det.Pod, det.Container)
	msg := det.Message
	if msg == "" {
		msg = "-"
	}
	body = fmt.Sprintf(
		"Time: %s\nNamespace: %s\nPod: %s\nContainer: %s\nRestarts: %d\nMessage: %s\n",
		det.Time.Format(time.RFC3339), det.Namespace, det.Pod, det.Container, det.Restarts, msg)
	return subject, body
}
