package response

// Business status codes returned alongside HTTP codes so clients can
// branch on stable identifiers instead of message strings.
const (
	ErrCodeSuccess      = 20000
	ErrCodeParamInvalid = 20003

	ErrCodeAuthFailed         = 30001
	ErrCodeUserAlreadyExists  = 30002
	ErrCodeInvalidCredentials = 30003
	ErrCodeTokenInvalid       = 30004

	ErrCodeUserNotFound      = 40001
	ErrCodeItineraryNotFound = 40002
	ErrCodeNotOwner          = 40003

	ErrCodeAIUnavailable = 50001
	ErrCodeInternal      = 50002
)

// msg maps business codes to their default human-readable message.
var msg = map[int]string{
	ErrCodeSuccess:      "success",
	ErrCodeParamInvalid: "invalid request parameters",

	ErrCodeAuthFailed:         "authentication failed",
	ErrCodeUserAlreadyExists:  "user already exists",
	ErrCodeInvalidCredentials: "invalid email or password",
	ErrCodeTokenInvalid:       "invalid or expired token",

	ErrCodeUserNotFound:      "user not found",
	ErrCodeItineraryNotFound: "itinerary not found",
	ErrCodeNotOwner:          "you do not own this itinerary",

	ErrCodeAIUnavailable: "ai provider unavailable",
	ErrCodeInternal:      "internal server error",
}

// Message returns the default message for a business code.
func Message(code int) string {
	if m, ok := msg[code]; ok {
		return m
	}
	return msg[ErrCodeInternal]
}
