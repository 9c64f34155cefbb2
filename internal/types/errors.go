package types

import "errors"

// Failure taxonomy for remote interactions. Write failures are classified
// into one of these and reported to the caller; they never take down the
// subscription set.
var (
	// ErrNotReady: no active device or no authenticated principal.
	ErrNotReady = errors.New("no device selected or not signed in")

	// ErrPermissionDenied: the backend rejected the caller's authorization.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUnavailable: transient backend outage, retry is reasonable.
	ErrUnavailable = errors.New("service temporarily unavailable")

	// ErrNetwork: transport-level failure reaching the broker.
	ErrNetwork = errors.New("network error")

	// ErrInvalidPayload: the outgoing payload failed schema validation.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrWriteFailed: generic schedule/threshold write failure.
	ErrWriteFailed = errors.New("write failed")

	// ErrSubscription: a read channel failed; treated as device loss.
	ErrSubscription = errors.New("subscription error")
)

// UserMessage maps a classified error to the notification text shown to the
// user. Unknown errors get a generic message rather than leaking internals.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotReady):
		return "Select a device and sign in before sending commands."
	case errors.Is(err, ErrPermissionDenied):
		return "You are not allowed to control this device."
	case errors.Is(err, ErrUnavailable):
		return "The service is temporarily unavailable. Please try again."
	case errors.Is(err, ErrNetwork):
		return "Network error. Check your connection and try again."
	case errors.Is(err, ErrInvalidPayload):
		return "The command could not be built. Please report this."
	case errors.Is(err, ErrWriteFailed):
		return "Saving failed. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// NewErrorResponse builds a consistent API error payload.
// details can be string, map, struct, etc.
func NewErrorResponse(code, message string, details any) ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}
