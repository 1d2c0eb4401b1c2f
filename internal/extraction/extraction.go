package extraction

import (
	"context"
	"errors"
)

// Fields contains the structured data extracted from a receipt photo. Any
// field the model could not determine stays nil; absence is never coerced to
// an empty string or zero.
type Fields struct {
	Vendor      *string  `json:"vendor"`
	Date        *string  `json:"date"` // YYYY-MM-DD
	Total       *float64 `json:"total"`
	Description *string  `json:"description"`
}

// Extractor analyzes a receipt image and extracts structured fields.
type Extractor interface {
	Analyze(ctx context.Context, imageData []byte, contentType string) (*Fields, error)
}

// Error is an extraction failure carrying a classified, user-facing message
// separate from the underlying cause. Handlers show Message; the cause is
// for logs only.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage returns the classified message when err is an extraction
// Error, or a generic fallback otherwise.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var xerr *Error
	if errors.As(err, &xerr) {
		return xerr.Message
	}
	return MsgGeneric
}

// receiptPrompt is the instruction sent alongside the image in both
// delivery strategies.
const receiptPrompt = `Analyze the provided image of a car maintenance receipt. Extract the vendor name, transaction date (in YYYY-MM-DD format), the total amount as a number, and a brief description of services or items. If you cannot determine a value, use null.`
