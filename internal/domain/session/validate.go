package session

import "github.com/okian/facet/internal/domain/model"

// ValidationError rejects a single capture operation and names the field
// that was missing or out of range.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return "missing or invalid field: " + e.Field
}

// ValidateCapture checks the required capture fields before an append.
// No partial capture is ever stored on failure.
func ValidateCapture(c model.Capture) error {
	switch {
	case c.Emotion == "":
		return &ValidationError{Field: "emotion"}
	case c.Confidence < 0 || c.Confidence > 1:
		return &ValidationError{Field: "confidence"}
	case c.Timestamp.IsZero():
		return &ValidationError{Field: "timestamp"}
	case !c.Kind.Valid():
		return &ValidationError{Field: "capture_kind"}
	}
	return nil
}
