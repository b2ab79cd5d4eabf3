package types

// SuccessEnvelope wraps every successful JSON response body under "data".
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the wire shape of an application error. Code matches the
// errors package code strings so clients can branch without parsing Message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps an APIError under "error" for failed responses.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
