// Package metrics exports controller state as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/uvc-timer/internal/logic"
)

const namespace = "uvc"

// Recorder holds the daemon's collectors.
type Recorder struct {
	reg *prom.Registry

	state       *prom.GaugeVec
	lampOn      prom.Gauge
	doorOpen    prom.Gauge
	armed       prom.Gauge
	remaining   prom.Gauge
	transitions *prom.CounterVec
	buttons     *prom.CounterVec
	gpioErrors  *prom.CounterVec
	publishErrs prom.Counter
}

// NewRecorder constructs the collectors and registers them on reg.
// A nil reg gets a fresh private registry.
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		reg: reg,
		state: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "Current operating state (1 for the active state)",
		}, []string{"state"}),
		lampOn: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "lamp_on",
			Help:      "Whether the UV-C lamp is energized",
		}),
		doorOpen: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "door_open",
			Help:      "Whether the chamber door reads open",
		}),
		armed: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "double_duration_armed",
			Help:      "Whether the next cycle from OPEN runs double length",
		}),
		remaining: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "deadline_remaining_seconds",
			Help:      "Time left in the current timed state",
		}),
		transitions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "State transitions by source, target and cause",
		}, []string{"from", "to", "cause"}),
		buttons: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "button_events_total",
			Help:      "Classified button gestures",
		}, []string{"event"}),
		gpioErrors: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "gpio_errors_total",
			Help:      "GPIO read and write failures",
		}, []string{"op"}),
		publishErrs: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_publish_errors_total",
			Help:      "Failed MQTT publishes",
		}),
	}
	reg.MustRegister(r.state, r.lampOn, r.doorOpen, r.armed, r.remaining,
		r.transitions, r.buttons, r.gpioErrors, r.publishErrs)
	return r
}

// ObserveOutput records the outcome of one poll iteration.
func (r *Recorder) ObserveOutput(out logic.Output, doorOpen bool, remaining time.Duration) {
	for _, s := range logic.AllStates {
		r.state.WithLabelValues(string(s)).Set(boolFloat(s == out.State))
	}
	r.lampOn.Set(boolFloat(out.LampOn))
	r.doorOpen.Set(boolFloat(doorOpen))
	r.armed.Set(boolFloat(out.Armed))
	r.remaining.Set(remaining.Seconds())
}

// ObserveTransition counts a transition.
func (r *Recorder) ObserveTransition(t logic.Transition) {
	r.transitions.WithLabelValues(string(t.From), string(t.To), string(t.Cause)).Inc()
}

// ObserveButton counts a gesture.
func (r *Recorder) ObserveButton(ev logic.ButtonEvent) {
	if ev == logic.ButtonNone {
		return
	}
	r.buttons.WithLabelValues(string(ev)).Inc()
}

// GPIOError counts a failed GPIO operation ("read", "relay", "led").
func (r *Recorder) GPIOError(op string) {
	r.gpioErrors.WithLabelValues(op).Inc()
}

// PublishError counts a failed MQTT publish.
func (r *Recorder) PublishError() {
	r.publishErrs.Inc()
}

// WatchBuffer exports the MQTT replay buffer depth and drop count.
func (r *Recorder) WatchBuffer(buffered, dropped func() int) {
	r.reg.MustRegister(
		prom.NewGaugeFunc(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "mqtt_buffered_messages",
			Help:      "Messages waiting for the broker connection",
		}, func() float64 { return float64(buffered()) }),
		prom.NewCounterFunc(prom.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_dropped_messages_total",
			Help:      "Buffered messages discarded because the buffer was full",
		}, func() float64 { return float64(dropped()) }),
	)
}

// Handler serves the recorder's registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
