// Package validate holds the per-step rules that gate wizard navigation.
package validate

import "strings"

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors keeps failures in the order the fields are declared on the step,
// so the first entry is the one shown when several fields fail together.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Field+": "+fe.Message)
	}
	return strings.Join(msgs, "; ")
}

func (e FieldErrors) First() (FieldError, bool) {
	if len(e) == 0 {
		return FieldError{}, false
	}
	return e[0], true
}

// Map returns the first message per field, for templates.
func (e FieldErrors) Map() map[string]string {
	out := make(map[string]string, len(e))
	for _, fe := range e {
		if _, ok := out[fe.Field]; ok {
			continue
		}
		out[fe.Field] = fe.Message
	}
	return out
}

// Err returns nil when there are no failures so callers can use the usual
// `if err != nil` check.
func (e FieldErrors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e *FieldErrors) add(field, message string) {
	*e = append(*e, FieldError{Field: field, Message: message})
}
