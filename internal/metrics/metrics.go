package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "reader_autopilot"

// Metrics exposes Prometheus collectors for the dispatch engine. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	attempts       *prometheus.CounterVec
	retries        prometheus.Counter
	staleRetries   prometheus.Counter
	giveUps        prometheus.Counter
	handlerActions *prometheus.CounterVec
	pollFinished   *prometheus.CounterVec
	loopTicks      *prometheus.CounterVec
	loopStopped    *prometheus.CounterVec
	generation     prometheus.Gauge
}

// MustNew registers the collectors with reg and panics on duplicate
// registration. Tests pass a fresh prometheus.NewRegistry().
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "attempts_total",
			Help:      "Dispatch attempts by outcome (acted, no_snapshot, no_match, action_failed).",
		}, []string{"outcome"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "retries_scheduled_total",
			Help:      "Retries scheduled after a failed attempt.",
		}),
		staleRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "retries_stale_total",
			Help:      "Scheduled attempts discarded because their generation was superseded.",
		}),
		giveUps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "give_ups_total",
			Help:      "Generations abandoned after exhausting the attempt bound.",
		}),
		handlerActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "handler_actions_total",
			Help:      "Handler Process calls by handler and result.",
		}, []string{"handler", "result"}),
		pollFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "finished_total",
			Help:      "Poll flows that terminated, by flow and reason.",
		}, []string{"flow", "reason"}),
		loopTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "ticks_total",
			Help:      "Continuous loop ticks by loop and result.",
		}, []string{"loop", "result"}),
		loopStopped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "stopped_total",
			Help:      "Continuous loops stopped, by loop and reason.",
		}, []string{"loop", "reason"}),
		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "generation",
			Help:      "Current dispatch generation token.",
		}),
	}
	reg.MustRegister(
		m.attempts, m.retries, m.staleRetries, m.giveUps, m.handlerActions,
		m.pollFinished, m.loopTicks, m.loopStopped, m.generation,
	)
	return m
}

func (m *Metrics) Attempt(outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RetryScheduled() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *Metrics) RetryStale() {
	if m == nil {
		return
	}
	m.staleRetries.Inc()
}

func (m *Metrics) GaveUp() {
	if m == nil {
		return
	}
	m.giveUps.Inc()
}

func (m *Metrics) HandlerAction(handler string, ok bool) {
	if m == nil {
		return
	}
	m.handlerActions.WithLabelValues(handler, result(ok)).Inc()
}

func (m *Metrics) PollFinished(flow, reason string) {
	if m == nil {
		return
	}
	m.pollFinished.WithLabelValues(flow, reason).Inc()
}

func (m *Metrics) LoopTick(loop string, ok bool) {
	if m == nil {
		return
	}
	m.loopTicks.WithLabelValues(loop, result(ok)).Inc()
}

func (m *Metrics) LoopStopped(loop, reason string) {
	if m == nil {
		return
	}
	m.loopStopped.WithLabelValues(loop, reason).Inc()
}

func (m *Metrics) Generation(gen uint64) {
	if m == nil {
		return
	}
	m.generation.Set(float64(gen))
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}
