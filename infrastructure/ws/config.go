package ws

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config tunes every realtime connection.
type Config struct {
	SendBufferSize int
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	MaxFrameBytes  int64
	RateLimitRPS   float64
	RateLimitBurst int
	AllowedOrigins []string
}

// pingPeriod must stay below PongTimeout so a healthy peer always answers in time.
func (c Config) pingPeriod() time.Duration {
	return c.PongTimeout * 9 / 10
}

// originPolicy is the normalized allow-list checked during the upgrade.
type originPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
}

func newOriginPolicy(origins []string) originPolicy {
	p := originPolicy{allowed: make(map[string]struct{})}
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			p.allowAll = true
			continue
		}
		if normalized, ok := normalizeOrigin(trimmed); ok {
			p.allowed[normalized] = struct{}{}
		}
	}
	return p
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

// check rejects a missing or unlisted Origin header unless "*" is allowed.
func (p originPolicy) check(r *http.Request) bool {
	if p.allowAll {
		return true
	}
	normalized, ok := normalizeOrigin(r.Header.Get("Origin"))
	if !ok {
		return false
	}
	_, exists := p.allowed[normalized]
	return exists
}
