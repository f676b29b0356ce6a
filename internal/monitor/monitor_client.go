package monitor

import (
	"net/http"
	"time"
)

type MonitorClient interface {
	GetMetricHTTPHandler() http.Handler
	GetMetricType() MetricType
	MonitorHTTPRequestDuration(duration time.Duration, labels HTTPRequestLabels)
	MonitorDBQueryDuration(duration time.Duration, tag MetricTag, labels DBQueryLabels)
	MonitorCounters(tag MetricTag, labels map[string]string)
}
