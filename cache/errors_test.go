package cache

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	cause := errors.New("disk full")
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"encode", encodeError(cause, "a"), ErrEncode},
		{"decode", decodeError(cause, "a"), ErrDecode},
		{"store", storeError(cause, "write", "a"), ErrStore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, stderrors.Is(tt.err, tt.kind))
			assert.True(t, errors.Is(tt.err, tt.kind))
			assert.True(t, stderrors.Is(tt.err, cause))
			assert.True(t, errors.Is(tt.err, cause))
			assert.Contains(t, tt.err.Error(), `"a"`)
			assert.Contains(t, tt.err.Error(), "disk full")
			for _, other := range []error{ErrEncode, ErrDecode, ErrStore} {
				if other != tt.kind {
					assert.False(t, stderrors.Is(tt.err, other))
					assert.False(t, errors.Is(tt.err, other))
				}
			}
		})
	}
}

func TestManagerErrorsMatchStandardLibrary(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	m, _ := newTestManager(t, store)

	store.fail("set", errors.New("read only"))
	err := m.Put(ctx, "a", 1, NoExpiry)
	assert.True(t, stderrors.Is(err, ErrStore))
	assert.True(t, errors.Is(err, ErrStore))

	store.fail("clear", errors.New("read only"))
	err = m.Clear(ctx)
	assert.True(t, stderrors.Is(err, ErrStore))
	assert.True(t, errors.Is(err, ErrStore))

	b := NewBreakerStore(NewMemoryStore(), BreakerConfig{MaxFailures: 1})
	b.open()
	breaking, _ := newTestManager(t, b)
	err = breaking.Put(ctx, "a", 1, NoExpiry)
	assert.True(t, stderrors.Is(err, ErrStore))
	assert.True(t, stderrors.Is(err, ErrCircuitOpen))
	assert.True(t, errors.Is(err, ErrCircuitOpen))
}
