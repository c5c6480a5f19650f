package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter holds rate limiters for each client IP address
type IPRateLimiter struct {
	limiters map[string]*clientLimiter
	mu       sync.Mutex
	rps      rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time

	// Forwarded заголовки учитываются только от этих адресов
	trustedProxies []netip.Prefix

	stop     chan struct{}
	stopOnce sync.Once
}

// NewIPRateLimiter creates a new IP-based rate limiter
// rps: requests per second allowed per IP
// burst: maximum burst size
// trustedProxies: прокси, которым разрешено передавать X-Forwarded-For / X-Real-IP
func NewIPRateLimiter(rps float64, burst int, trustedProxies []netip.Prefix) *IPRateLimiter {
	limiter := &IPRateLimiter{
		limiters:       make(map[string]*clientLimiter),
		rps:            rate.Limit(rps),
		burst:          burst,
		idleTTL:        10 * time.Minute,
		now:            time.Now,
		trustedProxies: trustedProxies,
		stop:           make(chan struct{}),
	}

	go limiter.cleanupRoutine(5 * time.Minute)

	return limiter
}

// Allow сообщает, можно ли обслужить очередной запрос клиента
func (i *IPRateLimiter) Allow(ip string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	item, exists := i.limiters[ip]
	if !exists {
		item = &clientLimiter{limiter: rate.NewLimiter(i.rps, i.burst)}
		i.limiters[ip] = item
	}
	item.lastSeen = i.now()

	return item.limiter.Allow()
}

// Close останавливает фоновую очистку
func (i *IPRateLimiter) Close() {
	i.stopOnce.Do(func() { close(i.stop) })
}

// cleanupRoutine periodically removes idle limiters to prevent memory leaks
func (i *IPRateLimiter) cleanupRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			i.cleanup()
		case <-i.stop:
			return
		}
	}
}

func (i *IPRateLimiter) cleanup() {
	threshold := i.now().Add(-i.idleTTL)

	i.mu.Lock()
	defer i.mu.Unlock()

	for ip, item := range i.limiters {
		if item.lastSeen.Before(threshold) {
			delete(i.limiters, ip)
		}
	}
}

func (i *IPRateLimiter) size() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.limiters)
}

// RateLimit middleware limits requests per IP address
func RateLimit(limiter *IPRateLimiter, onDrop ...func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(limiter.ClientIP(r)) {
				for _, fn := range onDrop {
					fn()
				}
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP возвращает адрес клиента. Если соединение пришло не от
// доверенного прокси, заголовки X-Forwarded-For и X-Real-IP игнорируются.
func (i *IPRateLimiter) ClientIP(r *http.Request) string {
	remote, ok := parseRemoteAddr(r.RemoteAddr)
	if !ok {
		return r.RemoteAddr
	}
	if !i.isTrusted(remote) {
		return remote.String()
	}

	// Идем по цепочке справа налево: первый недоверенный адрес и есть клиент
	if forwardedFor := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwardedFor != "" {
		hops := strings.Split(forwardedFor, ",")
		client := remote
		for idx := len(hops) - 1; idx >= 0; idx-- {
			hop, err := netip.ParseAddr(strings.TrimSpace(hops[idx]))
			if err != nil {
				break
			}
			client = hop.Unmap()
			if !i.isTrusted(client) {
				break
			}
		}
		return client.String()
	}

	if realIP, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return realIP.Unmap().String()
	}

	return remote.String()
}

func (i *IPRateLimiter) isTrusted(addr netip.Addr) bool {
	for _, prefix := range i.trustedProxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func parseRemoteAddr(remoteAddr string) (netip.Addr, bool) {
	remoteAddr = strings.TrimSpace(remoteAddr)
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
