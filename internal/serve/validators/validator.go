package validators

type Validator struct {
	Errors map[string]any
}

func NewValidator() *Validator {
	return &Validator{Errors: make(map[string]any)}
}

func (v *Validator) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *Validator) Check(ok bool, key, message string) {
	if !ok {
		v.AddError(key, message)
	}
}

// CheckError adds an error for key when err is not nil. An empty message falls back to the error text.
func (v *Validator) CheckError(err error, key, message string) *Validator {
	if err != nil && message == "" {
		message = err.Error()
	}
	v.Check(err == nil, key, message)
	return v
}

// AddError records the message for key. The first message recorded for a key is kept.
func (v *Validator) AddError(key, message string) {
	if _, exists := v.Errors[key]; !exists {
		v.Errors[key] = message
	}
}
