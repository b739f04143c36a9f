package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var HttpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "sample_http_requests_total",
}, []string{"action", "method"})
var HttpResponses = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "sample_http_responses_total",
}, []string{"action", "method", "statusCode"})
var SamplesIngested = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "samples_ingested_total",
}, []string{"file_type", "submission_type"})
var SampleDuplicates = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "samples_duplicates_total",
}, []string{"route"})
var BatchSkipped = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "samples_batch_skipped_total",
})
var SampleExtractions = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "sample_extractions_total",
}, []string{"outcome"})
var IngestTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name: "sample_ingest_time_seconds",
}, []string{"route"})
var DatastoreOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "sample_datastore_operations_total",
}, []string{"type", "operation"})
var IndexCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "sample_index_cache_lookups_total",
}, []string{"result"})
var QueueRunningWorkers = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Name: "sample_queue_running_workers",
}, []string{"queue"})

func init() {
	prometheus.MustRegister(HttpRequests)
	prometheus.MustRegister(HttpResponses)
	prometheus.MustRegister(SamplesIngested)
	prometheus.MustRegister(SampleDuplicates)
	prometheus.MustRegister(BatchSkipped)
	prometheus.MustRegister(SampleExtractions)
	prometheus.MustRegister(IngestTime)
	prometheus.MustRegister(DatastoreOperations)
	prometheus.MustRegister(IndexCacheLookups)
	prometheus.MustRegister(QueueRunningWorkers)
}
