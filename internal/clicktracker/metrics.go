package clicktracker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	recorded prometheus.Counter
	failed   prometheus.Counter
	dropped  prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		recorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "link_clicks_recorded_total",
			Help: "Total number of clicks written to the store",
		}),
		failed: factory.NewCounter(prometheus.CounterOpts{
			Name: "link_clicks_failed_total",
			Help: "Total number of clicks lost because the store returned an error",
		}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "link_clicks_dropped_total",
			Help: "Total number of clicks dropped because the queue was full or closed",
		}),
	}
}
