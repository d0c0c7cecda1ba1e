package domain

import "fmt"

// ValidationError marks malformed or missing input on a single field. The
// server maps it to field-level feedback; everything else stays record-level.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
