package email

import "context"

// Sender delivers one rendered email. Implementations must be safe for
// concurrent use; the dispatch consumer calls Send once per envelope.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
	Provider() string
}

// TemporaryError marks a failure that could succeed on a later attempt
// (network timeout, SMTP 4xx, provider 5xx).
type TemporaryError struct{ msg string }

func (e TemporaryError) Error() string   { return e.msg }
func (e TemporaryError) Temporary() bool { return true }

// PermanentError marks a failure no retry can fix (bad address, auth rejection).
type PermanentError struct{ msg string }

func (e PermanentError) Error() string   { return e.msg }
func (e PermanentError) Permanent() bool { return true }

// ErrorType classifies a send failure for metrics labels.
func ErrorType(err error) string {
	switch err.(type) {
	case PermanentError:
		return "permanent"
	case TemporaryError:
		return "temporary"
	default:
		return "unknown"
	}
}
