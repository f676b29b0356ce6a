package monitor

type HTTPRequestLabels struct {
	Status string
	Route  string
	Method string
}

type DBQueryLabels struct {
	QueryType string
}

const (
	ResolutionOutcomeResolved   = "resolved"
	ResolutionOutcomeUnresolved = "unresolved"
	ResolutionOutcomeError      = "error"
)

type ResolutionLabels struct {
	// Method is the resolution method that produced the outcome, or "none".
	Method  string
	Outcome string
}

func (r ResolutionLabels) ToMap() map[string]string {
	return map[string]string{
		"method":  r.Method,
		"outcome": r.Outcome,
	}
}

var ResolutionLabelNames = []string{"method", "outcome"}

type VerificationLabels struct {
	Method string
	Status string
}

func (v VerificationLabels) ToMap() map[string]string {
	return map[string]string{
		"method": v.Method,
		"status": v.Status,
	}
}

var VerificationLabelNames = []string{"method", "status"}
