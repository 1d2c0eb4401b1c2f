package extraction

import (
	"errors"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
)

// User-facing messages for the provider's credential failures. The same
// classification is applied whether the provider was reached directly or
// through the proxy, so the UI wording stays consistent.
const (
	MsgInvalidCredential = "Authentication failed (401). The API key is likely invalid or not activated for the Gemini API."
	MsgAccessDenied      = "Access denied (403). The API may not be enabled in Google Cloud Console, or a billing limit was reached."
	MsgGeneric           = "Failed to process the receipt."
	MsgUnparseable       = "Could not parse the analysis result from the AI."
	MsgMissingCredential = "Server configuration error: API key is missing."
)

// ClassifyStatus maps an HTTP status from the provider (or proxy) to a
// user-facing message. Unrecognized statuses get the generic message with
// whatever detail text was available appended.
func ClassifyStatus(status int, detail string) string {
	switch status {
	case http.StatusUnauthorized:
		return MsgInvalidCredential
	case http.StatusForbidden:
		return MsgAccessDenied
	}
	detail = strings.TrimSpace(detail)
	if detail == "" {
		return MsgGeneric
	}
	return MsgGeneric + " " + detail
}

// classifyProviderErr converts an error from the Gemini client into a
// classified extraction Error. googleapi errors carry the HTTP status; other
// errors fall through to string matching, since the client sometimes wraps
// status codes in plain error text.
func classifyProviderErr(err error) *Error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &Error{Message: ClassifyStatus(gerr.Code, gerr.Message), Err: err}
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "401"):
		return &Error{Message: MsgInvalidCredential, Err: err}
	case strings.Contains(msg, "403"):
		return &Error{Message: MsgAccessDenied, Err: err}
	}
	return &Error{Message: MsgGeneric + " " + msg, Err: err}
}
