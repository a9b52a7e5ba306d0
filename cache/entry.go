package cache

import "time"

// neverExpires is the ttl and expiry sentinel of an entry without a deadline.
const neverExpires = -1

// Entry pairs a serialized payload with its expiry bookkeeping. Entries are
// immutable: a re-insertion replaces the entry instead of updating it.
type Entry struct {
	payload string
	ttl     int
	created int64
	expires int64
}

// NewEntry stamps a new entry with the current wall clock. A ttlSeconds of
// zero or less produces an entry that never expires.
func NewEntry(payload string, ttlSeconds int) Entry {
	return newEntryAt(payload, ttlSeconds, time.Now())
}

func newEntryAt(payload string, ttlSeconds int, now time.Time) Entry {
	e := Entry{
		payload: payload,
		ttl:     neverExpires,
		created: now.Unix(),
		expires: neverExpires,
	}
	if ttlSeconds > 0 {
		e.ttl = ttlSeconds
		e.expires = e.created + int64(ttlSeconds)
	}
	return e
}

// Payload returns the serialized value.
func (e Entry) Payload() string {
	return e.payload
}

// TTL returns the time to live in seconds, or -1 for entries that never expire.
func (e Entry) TTL() int {
	return e.ttl
}

// CreationTimestamp returns the unix time in seconds the entry was created at.
func (e Entry) CreationTimestamp() int64 {
	return e.created
}

// ExpiryTimestamp returns the unix time in seconds after which the entry is
// expired, or -1 for entries that never expire.
func (e Entry) ExpiryTimestamp() int64 {
	return e.expires
}

// Expires reports whether the entry has a finite lifetime.
func (e Entry) Expires() bool {
	return e.ttl != neverExpires
}

// ExpiredAt reports whether the entry is expired at t. Only whole seconds
// count: an entry with a ttl of n stays fresh for at least n seconds.
func (e Entry) ExpiredAt(t time.Time) bool {
	return e.Expires() && t.Unix() > e.expires
}

// IsExpired reports whether the entry is expired now.
func (e Entry) IsExpired() bool {
	return e.ExpiredAt(time.Now())
}

// envelope is the persisted form of an Entry. Field names are shared with
// records written by earlier versions of the cache.
type envelope struct {
	Payload           string `json:"payload" msgpack:"payload"`
	ExpiryTimeSeconds int    `json:"expiryTimeSeconds" msgpack:"expiryTimeSeconds"`
	CreationTimestamp int64  `json:"creationTimestamp" msgpack:"creationTimestamp"`
	ExpiryTimestamp   int64  `json:"expiryTimestamp" msgpack:"expiryTimestamp"`
}

func (e Entry) envelope() envelope {
	return envelope{
		Payload:           e.payload,
		ExpiryTimeSeconds: e.ttl,
		CreationTimestamp: e.created,
		ExpiryTimestamp:   e.expires,
	}
}

// entry restores an Entry without re-stamping it. Inconsistent records are
// normalized so that ttl and expiry always agree on the sentinel.
func (env envelope) entry() Entry {
	e := Entry{
		payload: env.Payload,
		ttl:     neverExpires,
		created: env.CreationTimestamp,
		expires: neverExpires,
	}
	if env.ExpiryTimeSeconds > 0 {
		e.ttl = env.ExpiryTimeSeconds
		e.expires = env.ExpiryTimestamp
		if e.expires <= e.created {
			e.expires = e.created + int64(e.ttl)
		}
	}
	return e
}

// ttlSeconds converts a duration into the whole seconds an Entry stores.
// Partial seconds round up so a positive ttl never becomes "never expires".
func ttlSeconds(ttl time.Duration) int {
	if ttl <= 0 {
		return neverExpires
	}
	secs := int(ttl / time.Second)
	if ttl%time.Second != 0 {
		secs++
	}
	return secs
}
