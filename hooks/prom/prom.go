// Package promhooks exports nscache hook events as Prometheus metrics.
//
//	h := promhooks.New("myapp")
//	prometheus.MustRegister(h)
//	users, _ := nscache.New[User](nscache.Options[User]{..., Hooks: h})
package promhooks

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/nscache"
)

// Hooks counts events per namespace and tracks the last version seen by this
// process. Storage keys are not used as labels.
type Hooks struct {
	versions   *prometheus.GaugeVec
	bumps      *prometheus.CounterVec
	inits      *prometheus.CounterVec
	computed   *prometheus.CounterVec
	failed     *prometheus.CounterVec
	rejections prometheus.Counter
}

var (
	_ nscache.Hooks        = (*Hooks)(nil)
	_ prometheus.Collector = (*Hooks)(nil)
)

func New(prefix string) *Hooks {
	name := func(s string) string {
		if prefix == "" {
			return "nscache_" + s
		}
		return prefix + "_nscache_" + s
	}
	return &Hooks{
		versions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: name("namespace_version"),
			Help: "Namespace version currently used by this process",
		}, []string{"namespace"}),
		bumps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: name("version_bumps_total"),
			Help: "Namespace version increments issued by this process",
		}, []string{"namespace"}),
		inits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: name("version_initializations_total"),
			Help: "Namespace version keys written because they were absent",
		}, []string{"namespace"}),
		computed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: name("remember_computed_total"),
			Help: "Remember misses that ran the producer and stored its value",
		}, []string{"namespace"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: name("producer_failures_total"),
			Help: "Remember producers that returned an error",
		}, []string{"namespace"}),
		rejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: name("save_rejected_total"),
			Help: "Saves the backend refused",
		}),
	}
}

func (h *Hooks) Describe(ch chan<- *prometheus.Desc) {
	h.versions.Describe(ch)
	h.bumps.Describe(ch)
	h.inits.Describe(ch)
	h.computed.Describe(ch)
	h.failed.Describe(ch)
	h.rejections.Describe(ch)
}

func (h *Hooks) Collect(ch chan<- prometheus.Metric) {
	h.versions.Collect(ch)
	h.bumps.Collect(ch)
	h.inits.Collect(ch)
	h.computed.Collect(ch)
	h.failed.Collect(ch)
	h.rejections.Collect(ch)
}

func (h *Hooks) VersionInitialized(ns string, v uint64) {
	h.inits.WithLabelValues(ns).Inc()
	h.versions.WithLabelValues(ns).Set(float64(v))
}

func (h *Hooks) VersionLoaded(ns string, v uint64) {
	h.versions.WithLabelValues(ns).Set(float64(v))
}

func (h *Hooks) VersionBumped(ns string, _, to uint64) {
	h.bumps.WithLabelValues(ns).Inc()
	h.versions.WithLabelValues(ns).Set(float64(to))
}

func (h *Hooks) RememberComputed(ns, _ string)        { h.computed.WithLabelValues(ns).Inc() }
func (h *Hooks) ProducerFailed(ns, _ string, _ error) { h.failed.WithLabelValues(ns).Inc() }
func (h *Hooks) SaveRejected(string)                  { h.rejections.Inc() }
