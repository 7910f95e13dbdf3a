package integration_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"rvolution/internal/entity"
	"rvolution/internal/integration"
)

func TestReplyCache(t *testing.T) {
	t.Run("stored reply is returned for the same id", func(t *testing.T) {
		cache := integration.NewReplyCache(8, time.Minute)

		cache.Store("msg-1", entity.StatusOK)

		code, found := cache.Check("msg-1")
		assert.True(t, found)
		assert.Equal(t, entity.StatusOK, code)
	})

	t.Run("unknown id is a miss", func(t *testing.T) {
		cache := integration.NewReplyCache(8, time.Minute)

		_, found := cache.Check("msg-unknown")
		assert.False(t, found)
	})

	t.Run("empty id is never cached", func(t *testing.T) {
		cache := integration.NewReplyCache(8, time.Minute)

		cache.Store("", entity.StatusOK)

		_, found := cache.Check("")
		assert.False(t, found)
	})

	t.Run("expired reply is a miss", func(t *testing.T) {
		cache := integration.NewReplyCache(8, time.Millisecond)

		cache.Store("msg-1", entity.StatusOK)
		time.Sleep(5 * time.Millisecond)

		_, found := cache.Check("msg-1")
		assert.False(t, found)
	})

	t.Run("oldest entry is evicted at capacity", func(t *testing.T) {
		cache := integration.NewReplyCache(2, time.Minute)

		cache.Store("msg-1", entity.StatusOK)
		cache.Store("msg-2", entity.StatusOK)
		cache.Store("msg-3", entity.StatusOK)

		_, found := cache.Check("msg-1")
		assert.False(t, found)

		_, found = cache.Check("msg-3")
		assert.True(t, found)
	})
}
