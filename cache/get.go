package cache

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// Get returns the value stored under key decoded as T.
//
// The memory tier is consulted first, then the persistent tier. A fresh
// persistent entry is copied into the memory tier. An expired persistent
// entry is never returned: it is re-inserted for the rush window and the
// call reports found=false, so that one caller recomputes the value while
// the others keep reading the old one.
//
// Store and decode failures are returned as errors.
func Get[T any](ctx context.Context, m *Manager, key string) (T, bool, error) {
	ctx, span := startSpan(ctx, "cache.Get", key)
	val, found, err := get[T](ctx, m, key)
	if err != nil {
		m.cfg.metrics.failure("get")
	}
	span.SetAttributes(attribute.Bool("cache.found", found))
	endSpan(span, err)
	return val, found, err
}

func get[T any](ctx context.Context, m *Manager, key string) (T, bool, error) {
	var zero T
	now := m.now()

	if entry, ok := m.memory.get(key); ok && !entry.ExpiredAt(now) {
		val, err := decodePayload[T](m, key, entry)
		if err != nil {
			return zero, false, err
		}
		m.cfg.metrics.hit(tierMemory)
		return val, true, nil
	}

	data, ok, err := m.store.Get(ctx, key)
	if err != nil {
		return zero, false, storeError(err, "read", key)
	}
	if !ok {
		m.cfg.metrics.miss(missAbsent)
		return zero, false, nil
	}
	var env envelope
	if err := m.cfg.serializer.Decode(data, &env); err != nil {
		return zero, false, decodeError(err, key)
	}
	entry := env.entry()

	val, err := decodePayload[T](m, key, entry)
	if err != nil {
		return zero, false, err
	}
	if !entry.ExpiredAt(now) {
		m.memory.set(key, entry)
		m.cfg.metrics.hit(tierPersistent)
		return val, true, nil
	}

	m.cfg.metrics.miss(missExpired)
	m.log.Trace("%q expired at %d, refreshing for %s", key, entry.ExpiryTimestamp(), m.cfg.rushWindow)
	m.refresh(ctx, key, val)
	return zero, false, nil
}

func decodePayload[T any](m *Manager, key string, entry Entry) (T, error) {
	var val T
	if err := m.cfg.serializer.Decode(entry.Payload(), &val); err != nil {
		var zero T
		return zero, decodeError(err, key)
	}
	return val, nil
}
