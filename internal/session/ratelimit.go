package session

import "time"

// tokenBucket enforces max_messages_per_second per session. It is
// deliberately simple: refill is computed lazily from elapsed wall
// time rather than a background ticker, since the whole session
// package runs on the single simulation executor.
type tokenBucket struct {
	capacity   float64
	refillRate float64 // tokens per second
	tokens     float64
	last       time.Time
}

func newTokenBucket(perSecond int) *tokenBucket {
	if perSecond <= 0 {
		perSecond = 60
	}
	return &tokenBucket{
		capacity:   float64(perSecond),
		refillRate: float64(perSecond),
		tokens:     float64(perSecond),
		last:       time.Now(),
	}
}

// Allow reports whether one message may be admitted now, consuming a
// token if so. A session that exhausts its budget has its excess
// messages dropped rather than the connection torn down. Dropped
// messages still count as activity for the liveness check, so a
// client that keeps flooding is never disconnected for it.
func (b *tokenBucket) Allow() bool {
	now := time.Now()
	elapsed := now.Sub(b.last).Seconds()
	b.last = now
	b.tokens += elapsed * b.refillRate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
