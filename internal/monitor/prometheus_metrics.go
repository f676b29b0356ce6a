package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "photoproof"

var SummaryVecMetrics = map[MetricTag]*prometheus.SummaryVec{
	HTTPRequestDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: namespace, Subsystem: "http", Name: string(HTTPRequestDurationTag),
		Help: "HTTP requests durations, sliding window = 10m",
	},
		[]string{"status", "route", "method"},
	),
	SuccessfulQueryDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: namespace, Subsystem: "db", Name: string(SuccessfulQueryDurationTag),
		Help: "Successful DB query durations",
	},
		[]string{"query_type"},
	),
	FailureQueryDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: namespace, Subsystem: "db", Name: string(FailureQueryDurationTag),
		Help: "Failure DB query durations",
	},
		[]string{"query_type"},
	),
}

var CounterVecMetrics = map[MetricTag]*prometheus.CounterVec{
	ResolutionCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "tenant", Name: string(ResolutionCounterTag),
		Help: "Hostname resolutions by method and outcome",
	},
		ResolutionLabelNames,
	),
	VerificationChecksCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "domain", Name: string(VerificationChecksCounterTag),
		Help: "Domain ownership checks by method and resulting status",
	},
		VerificationLabelNames,
	),
}
