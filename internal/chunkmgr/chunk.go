package chunkmgr

import (
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"

	"voxelrealm/internal/spatial"
)

// Subscriber is the opaque session handle a chunk broadcasts to. The
// session package implements it; chunkmgr never imports session
// (session imports chunkmgr) to avoid a cycle.
type Subscriber interface {
	SubscriberID() string
	// Send delivers a message. It must not block: implementations
	// enforce the drop-slowest-subscriber policy internally and report
	// false when the message could not be delivered. chunkmgr ignores
	// the result; the periodic sweep prunes a subscriber once its
	// IsAlive reports false.
	Send(msg any) bool
	// IsAlive reports whether the underlying session is still
	// connected. A subscriber set must contain only live sessions;
	// the periodic sweep prunes dead ones.
	IsAlive() bool
}

// Chunk is a fixed spatial cell within a layer.
type Chunk struct {
	Key spatial.Key

	Members map[string]struct{}
	Loaded  bool
	Grid    *Grid // optional

	Subscribers map[string]Subscriber

	Version uint64

	LastAccessed time.Time
	LastModified time.Time
}

func newChunk(key spatial.Key) *Chunk {
	return &Chunk{
		Key:         key,
		Members:     map[string]struct{}{},
		Subscribers: map[string]Subscriber{},
		Version:     1,
	}
}

func (c *Chunk) MemberIDs() []string {
	out := make([]string, 0, len(c.Members))
	for id := range c.Members {
		out = append(out, id)
	}
	return out
}

// membershipDigest hashes the sorted member set so subscribers can
// detect membership drift (e.g. after a reconnect) by comparing a
// single value instead of diffing id lists.
func (c *Chunk) membershipDigest() uint64 {
	ids := c.MemberIDs()
	sort.Strings(ids)
	h := xxhash.New()
	for _, id := range ids {
		_, _ = h.WriteString(id)
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}
