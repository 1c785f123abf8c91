package advisor

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCredential = errors.New("missing api credential")
	ErrMalformedResponse = errors.New("malformed response")
	ErrUnknownProvider   = errors.New("unknown advisor provider")
)

// TransportError is any failure of the round trip itself. StatusCode is the
// HTTP status of a non-success response, or 0 when no response arrived.
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	msg := "advisor request failed"
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" with status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Err }

// maxBodyExcerpt bounds how much of an error response is kept.
const maxBodyExcerpt = 512

func excerpt(b []byte) string {
	if len(b) > maxBodyExcerpt {
		return string(b[:maxBodyExcerpt]) + "..."
	}
	return string(b)
}
