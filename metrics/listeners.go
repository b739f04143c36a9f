package metrics

import "sync"

var beforeMetricsMutex = new(sync.Mutex)
var beforeMetricsCalledFns = make([]func(), 0)

// OnBeforeMetricsRequested registers fn to refresh gauges right before a scrape.
func OnBeforeMetricsRequested(fn func()) {
	beforeMetricsMutex.Lock()
	defer beforeMetricsMutex.Unlock()
	beforeMetricsCalledFns = append(beforeMetricsCalledFns, fn)
}

func refreshBeforeScrape() {
	beforeMetricsMutex.Lock()
	fns := make([]func(), len(beforeMetricsCalledFns))
	copy(fns, beforeMetricsCalledFns)
	beforeMetricsMutex.Unlock()

	for _, fn := range fns {
		fn()
	}
}
