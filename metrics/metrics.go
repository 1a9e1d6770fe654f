package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var importCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fotostrom_import_entries",
	Help: "Counter of import entry outcomes, by feed url",
}, []string{"result", "url"})

func ImportCreatedInc(url string) {
	importCounter.WithLabelValues("created", url).Inc()
}
func ImportSkippedInc(url string) {
	importCounter.WithLabelValues("skipped", url).Inc()
}
func ImportFailedInc(url string) {
	importCounter.WithLabelValues("failed", url).Inc()
}

var photoCountGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "fotostrom_photo_count",
	Help: "The total number of stored photos, by source name",
}, []string{"name"})

func PhotoCountSet(name string, count int) {
	photoCountGauge.WithLabelValues(name).Set(float64(count))
}

var fetchFailureCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fotostrom_feed_fetch_failures",
	Help: "Counter of whole-feed fetch failures, by feed url",
}, []string{"url"})

func FeedFetchFailureInc(url string) {
	fetchFailureCounter.WithLabelValues(url).Inc()
}

var fetchStatusCodes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fotostrom_feed_fetch_status_codes",
	Help: "Counter of feed fetch http responses, by status code and feed url",
}, []string{"status_code", "url"})

func FeedFetchStatusInc(statusCode int, url string) {
	fetchStatusCodes.WithLabelValues(strconv.Itoa(statusCode), url).Inc()
}

var jobRunCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fotostrom_job_runs",
	Help: "Counter of scheduled job runs, by job name and outcome",
}, []string{"name", "outcome"})

func JobRunInc(name string, outcome string) {
	jobRunCounter.WithLabelValues(name, outcome).Inc()
}
