package integration

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"rvolution/internal/entity"
)

// cachedReply represents a cached reply for a specific message ID
type cachedReply struct {
	Code      entity.StatusCode
	Timestamp time.Time
}

// ReplyCache deduplicates command messages by message ID. Clients that
// retransmit a command after a dropped reply get the original status code
// back instead of triggering the IR command twice.
type ReplyCache struct {
	cache      *lru.Cache[string, *cachedReply]
	expiration time.Duration
}

// NewReplyCache creates a new reply cache
func NewReplyCache(maxSize int, expiration time.Duration) *ReplyCache {
	if maxSize <= 0 {
		maxSize = 256
	}
	if expiration <= 0 {
		expiration = time.Minute
	}

	cache, _ := lru.New[string, *cachedReply](maxSize)
	return &ReplyCache{
		cache:      cache,
		expiration: expiration,
	}
}

// Check returns the cached status code for a message ID, if one exists
// and has not expired. An empty message ID is never cached.
func (rc *ReplyCache) Check(messageID string) (entity.StatusCode, bool) {
	if messageID == "" {
		return 0, false
	}

	reply, found := rc.cache.Get(messageID)
	if !found {
		return 0, false
	}
	if time.Since(reply.Timestamp) > rc.expiration {
		rc.cache.Remove(messageID)
		return 0, false
	}

	return reply.Code, true
}

// Store records the reply for a message ID
func (rc *ReplyCache) Store(messageID string, code entity.StatusCode) {
	if messageID == "" {
		return
	}

	rc.cache.Add(messageID, &cachedReply{
		Code:      code,
		Timestamp: time.Now(),
	})
}
