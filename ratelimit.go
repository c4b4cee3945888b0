package ftpserver

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig describes a sliding-window budget. It is approximated with
// a continuously-refilled token bucket (golang.org/x/time/rate), which for
// the defaults this server ships (30 connects/60s, 300 commands/60s) behaves
// close enough to a true sliding window: bursts are capped at the window's
// full budget and the refill rate matches the window average.
type RateLimitConfig struct {
	Limit  int           // number of events allowed per Window
	Window time.Duration // 0 disables the limiter
}

func (c RateLimitConfig) limiter() *rate.Limiter {
	if c.Window <= 0 || c.Limit <= 0 {
		return nil
	}

	perSecond := rate.Limit(float64(c.Limit) / c.Window.Seconds())

	return rate.NewLimiter(perSecond, c.Limit)
}

// connectRateLimiter is the process-global, per-source-IP connection limiter
// (C4). One *rate.Limiter is kept per IP; idle entries are never actively
// evicted here, the server is expected to run for bounded uptime windows
// between restarts, matching the teacher's process-lifetime-scoped state.
type connectRateLimiter struct {
	mu      sync.Mutex
	cfg     RateLimitConfig
	byIP    map[string]*rate.Limiter
}

func newConnectRateLimiter(cfg RateLimitConfig) *connectRateLimiter {
	return &connectRateLimiter{cfg: cfg, byIP: make(map[string]*rate.Limiter)}
}

// Allow reports whether a new connection from ip may proceed.
func (l *connectRateLimiter) Allow(ip string) bool {
	if l.cfg.Window <= 0 || l.cfg.Limit <= 0 {
		return true
	}

	l.mu.Lock()
	lim, ok := l.byIP[ip]
	if !ok {
		lim = l.cfg.limiter()
		l.byIP[ip] = lim
	}
	l.mu.Unlock()

	return lim.Allow()
}

// sessionRateLimiter is the per-session command limiter.
type sessionRateLimiter struct {
	limiter *rate.Limiter
}

func newSessionRateLimiter(cfg RateLimitConfig) *sessionRateLimiter {
	return &sessionRateLimiter{limiter: cfg.limiter()}
}

// Allow reports whether another command may be processed right now.
func (l *sessionRateLimiter) Allow() bool {
	if l.limiter == nil {
		return true
	}

	return l.limiter.Allow()
}
