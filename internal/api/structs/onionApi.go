package structs

// MessageApi is the body of every POST /message: an onion payload for a relay, or the
// recovered plaintext for a user.
type MessageApi struct {
	Message string `json:"message"`
}

// SendMessageApi asks a user to send message to destinationUserId through a fresh circuit.
type SendMessageApi struct {
	Message           string `json:"message"`
	DestinationUserID int    `json:"destinationUserId"`
}

// ResultApi wraps the diagnostics getters' responses. A nil Result encodes as null.
type ResultApi[T any] struct {
	Result *T `json:"result"`
}

// ErrorApi is the JSON error body returned with 5xx responses.
type ErrorApi struct {
	Error string `json:"error"`
}
