package webapi

import (
	"net/http"
	"time"

	"github.com/go-pkgz/rest"

	"github.com/umputun/spamdash/lib/gateway"
)

// Config defines server parameters
type Config struct {
	Version        string                     // version to show in app info headers
	ListenAddr     string                     // listen address
	Gateways       map[string]gateway.Gateway // available backends by name
	DefaultBackend string                     // backend used when request doesn't set one, and by /predict
	AuthUser       string                     // basic auth user, "spamdash" by default
	AuthPasswd     string                     // basic auth password, auth disabled if empty
	SessionTTL     time.Duration              // idle time after which session and its history are dropped
	MaxSessions    int                        // max number of live sessions
	HistorySize    int                        // max entries in session history, 0 for unlimited
	MaxBatch       int                        // max messages in a single batch, 0 for unlimited
	MaxBodySize    int64                      // max request body size
	RateLimit      float64                    // requests per second per client ip
	WriteTimeout   time.Duration              // response write timeout, bounds batch duration
	OnDetect       DetectionFunc              // optional, called for each successful check
}

func (c Config) withDefaults() Config {
	if c.AuthUser == "" {
		c.AuthUser = "spamdash"
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 30 * time.Minute
	}
	if c.MaxSessions <= 0 {
		c.MaxSessions = 1000
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = 10 * 1024 * 1024
	}
	if c.RateLimit <= 0 {
		c.RateLimit = 50
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Minute
	}
	if c.Gateways == nil {
		c.Gateways = map[string]gateway.Gateway{}
	}
	if _, ok := c.Gateways[c.DefaultBackend]; !ok {
		// fall back to the first available backend in name order
		c.DefaultBackend = ""
		for name := range c.Gateways {
			if c.DefaultBackend == "" || name < c.DefaultBackend {
				c.DefaultBackend = name
			}
		}
	}
	return c
}

// configHandler handles GET /config request.
// It returns runtime settings without secrets.
func (s *Server) configHandler(w http.ResponseWriter, _ *http.Request) {
	rest.RenderJSON(w, rest.JSON{
		"version":         s.Version,
		"backends":        s.backendNames(),
		"default_backend": s.DefaultBackend,
		"auth_enabled":    s.AuthPasswd != "",
		"session_ttl":     s.SessionTTL.String(),
		"history_size":    s.HistorySize,
		"max_batch":       s.MaxBatch,
		"max_body_size":   s.MaxBodySize,
		"rate_limit":      s.RateLimit,
	})
}
