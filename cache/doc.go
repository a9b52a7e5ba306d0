// Package cache provides a two-tier object cache: a process-local memory tier
// in front of a pluggable persistent [Store], with per-entry expiry and
// cache-rush mitigation.
//
// # Manager
//
// A [Manager] is created explicitly with [New] and passed to the code that
// uses it; there is no package-level instance.
//
//	store, err := cache.NewSQLiteStore(ctx, "cache.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//	m := cache.New(store, cache.WithLogger(log))
//	defer m.Close(ctx)
//
//	if err := m.Put(ctx, "user:123", user, cache.OneHour); err != nil {
//	    return err
//	}
//	user, found, err := cache.Get[User](ctx, m, "user:123")
//
// [Manager.Put] writes the memory tier first and the persistent tier second.
// When the persistent write fails the error is returned but the memory tier
// keeps the new entry.
//
// [Get] is a package-level generic function because Go does not allow
// generic methods. It checks the memory tier, then the persistent tier, and
// copies fresh persistent entries into memory.
//
// # Expiry
//
// Every value is stored inside an [Entry] that records its creation time and
// ttl in whole seconds. A ttl of zero or less never expires. A finite entry is
// expired once the current second is past its expiry second.
//
// # Cache Rush
//
// When [Get] finds an expired entry in the persistent tier it does not return
// the stale value. It re-inserts it with a short ttl ([DefaultRushWindow],
// see [WithRushWindow]) and reports a miss. The caller that saw the miss is
// expected to recompute and [Manager.Put] a fresh value, while every other
// caller keeps reading the re-inserted one instead of recomputing as well.
//
// The memory tier is updated before [Get] returns, so the very next lookup
// already sees the re-inserted value. The persistent write runs in the
// background; its error is never returned to any caller. Use
// [WithRefreshHook] or [WithMetrics] to observe it, and [Manager.Wait] or
// [Manager.Close] to wait for it.
//
// # Unset and Delete
//
// [Manager.Unset] overwrites a key with a null value that never expires. The
// key stays present: [Manager.Exists] is true and [Get] reports the zero
// value as found. [Manager.Delete] removes the key from both tiers.
//
// # Stores
//
//   - [NewMemoryStore] keeps values in a map. Useful for tests.
//   - [NewSQLiteStore] uses [modernc.org/sqlite], file-backed or ":memory:".
//   - [NewPostgresStore] uses [github.com/lib/pq].
//   - [NewRedisStore] uses [github.com/redis/go-redis/v9]. Keys carry no
//     native TTL; expiry is tracked in the stored entry.
//   - [NewCompositeStore] chains stores: reads return the first hit, writes
//     go to all of them.
//   - [NewBreakerStore] wraps a store with a circuit breaker. While open it
//     fails fast with [ErrCircuitOpen].
//
// I/O-backed stores apply a per-operation timeout ([DefaultQueryTimeout]).
//
// # Serialization
//
// Values and entries are encoded by a [Serializer]. JSON
// ([NewJSONSerializer], the default) and msgpack ([NewMsgpackSerializer]) are
// provided. The persisted record is the serialized entry whose payload field
// is itself the serialized value.
//
// # Errors
//
// Failures are wrapped with [github.com/cockroachdb/errors] and classified as
// [ErrEncode], [ErrDecode] or [ErrStore]. Both the standard library and
// cockroachdb errors.Is recognize the classification:
//
//	if errors.Is(err, cache.ErrDecode) {
//	    // the stored payload does not match T
//	}
//
// [Manager.Exists] never fails: a store error is logged and reported as
// false. [Manager.Clear] empties the memory tier even when clearing the
// store fails.
//
// # Async
//
// [Manager.PutAsync], [Manager.UnsetAsync] and [GetAsync] return a
// [future.Future] prepared over their arguments. The caller decides where it
// runs: Start runs it on a new goroutine, Await on the calling one.
package cache
