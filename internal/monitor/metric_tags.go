package monitor

type MetricTag string

const (
	SuccessfulQueryDurationTag MetricTag = "successful_queries_duration"
	FailureQueryDurationTag    MetricTag = "failure_queries_duration"
	HTTPRequestDurationTag     MetricTag = "requests_duration_seconds"
	// Tenant resolution:
	ResolutionCounterTag MetricTag = "resolution_total"
	// Domain verification:
	VerificationChecksCounterTag MetricTag = "verification_checks_total"
)

func (m MetricTag) ListAll() []MetricTag {
	return []MetricTag{
		SuccessfulQueryDurationTag,
		FailureQueryDurationTag,
		HTTPRequestDurationTag,
		ResolutionCounterTag,
		VerificationChecksCounterTag,
	}
}
