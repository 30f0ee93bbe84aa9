// Package domain holds verification domain types shared across modules.
package domain

// Check is an atomic, independently reportable verification test outcome.
type Check struct {
	Check       string         `json:"check"`
	Description string         `json:"description"`
	Passed      bool           `json:"passed"`
	Error       string         `json:"error,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
}

// Pass builds a passing check.
func Pass(name, description string) Check {
	return Check{Check: name, Description: description, Passed: true}
}

// Fail builds a failing check with its error message.
func Fail(name, description, errMsg string) Check {
	return Check{Check: name, Description: description, Passed: false, Error: errMsg}
}

// WithDetail returns a copy of the check with one detail attached.
func (c Check) WithDetail(key string, value any) Check {
	details := make(map[string]any, len(c.Details)+1)
	for k, v := range c.Details {
		details[k] = v
	}
	details[key] = value
	c.Details = details
	return c
}
