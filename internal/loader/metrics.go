package loader

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	registry = prometheus.NewRegistry()

	itemsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookrec_loader_items_total",
		Help: "Total number of book records processed by the loader",
	}, []string{"status"})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bookrec_loader_batch_duration_seconds",
		Help:    "Time spent sending a single batch",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	registry.MustRegister(itemsTotal, batchDuration)
}

// PushMetrics sends the loader counters to a Pushgateway. An empty url is a no-op.
func PushMetrics(url, class string) error {
	if url == "" {
		return nil
	}
	return push.New(url, "bookrec_loader").Gatherer(registry).Grouping("class", class).Push()
}
