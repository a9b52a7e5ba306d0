package cache

import "github.com/cockroachdb/errors"

var (
	// ErrEncode marks failures to serialize a value or an entry.
	ErrEncode = errors.New("cache: encode failed")
	// ErrDecode marks failures to deserialize a stored entry or payload.
	ErrDecode = errors.New("cache: decode failed")
	// ErrStore marks failures reported by the persistent store.
	ErrStore = errors.New("cache: store failed")
)

var (
	// ErrCircuitOpen is returned by a BreakerStore while its circuit is open.
	ErrCircuitOpen = errors.New("cache: circuit breaker is open")
	// ErrClosed is reported to the refresh hook when a re-insertion skips the
	// persistent tier because the Manager is closed.
	ErrClosed = errors.New("cache: manager is closed")
)

// classifiedError attaches one of the sentinels above to a wrapped cause.
// It matches its kind through Is and the cause through Unwrap, which both
// the standard library and cockroachdb/errors follow.
type classifiedError struct {
	kind  error
	cause error
}

func (e *classifiedError) Error() string { return e.cause.Error() }

func (e *classifiedError) Unwrap() error { return e.cause }

func (e *classifiedError) Is(target error) bool { return target == e.kind }

func classify(kind error, err error) error {
	return &classifiedError{kind: kind, cause: err}
}

func encodeError(err error, key string) error {
	return classify(ErrEncode, errors.Wrapf(err, "cache: failed to encode %q", key))
}

func decodeError(err error, key string) error {
	return classify(ErrDecode, errors.Wrapf(err, "cache: failed to decode %q", key))
}

func storeError(err error, op string, key string) error {
	return classify(ErrStore, errors.Wrapf(err, "cache: failed to %s %q", op, key))
}
