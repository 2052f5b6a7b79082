package security

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterTTL             = 30 * time.Minute
)

// RateLimiter keeps one token bucket per client IP
type RateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	rps      rate.Limit
	burst    int
	stop     chan struct{}
	once     sync.Once
}

type visitor struct {
	limiter *rate.Limiter
	lastUse time.Time
}

// NewRateLimiter creates a rate limiter allowing rps requests per second with
// the given burst per client, and starts its cleanup goroutine
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		stop:     make(chan struct{}),
	}
	go rl.cleanupVisitors()
	return rl
}

// Allow checks if a request from an IP should be allowed
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	v, exists := rl.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastUse = time.Now()
	rl.mu.Unlock()

	return v.limiter.Allow()
}

// Stop ends the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

// cleanupVisitors removes idle visitor entries to prevent memory leaks
func (rl *RateLimiter) cleanupVisitors() {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.prune(time.Now())
		}
	}
}

func (rl *RateLimiter) prune(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, v := range rl.visitors {
		if now.Sub(v.lastUse) > limiterTTL {
			delete(rl.visitors, ip)
		}
	}
}

// GetClientIP extracts the client IP from the request
func GetClientIP(r *http.Request) string {
	// First hop of X-Forwarded-For is the original client
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
