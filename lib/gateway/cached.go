package gateway

import (
	"context"
	"time"

	cache "github.com/go-pkgz/expirable-cache/v3"

	"github.com/umputun/spamdash/lib/msgcheck"
)

// Cached wraps a gateway and keeps successful results for repeated messages. Errors are not cached.
type Cached struct {
	Gateway
	cache cache.Cache[string, msgcheck.Result]
	ttl   time.Duration
}

// NewCached makes a caching decorator, ttl and maxKeys of 0 mean no expiration and no size limit
func NewCached(gw Gateway, ttl time.Duration, maxKeys int) *Cached {
	c := cache.NewCache[string, msgcheck.Result]().WithLRU()
	if ttl > 0 {
		c = c.WithTTL(ttl)
	}
	if maxKeys > 0 {
		c = c.WithMaxKeys(maxKeys)
	}
	return &Cached{Gateway: gw, cache: c, ttl: ttl}
}

// Infer returns cached result or calls the wrapped gateway
func (c *Cached) Infer(ctx context.Context, msg string) (msgcheck.Result, error) {
	if res, ok := c.cache.Get(msg); ok {
		return res, nil
	}
	res, err := c.Gateway.Infer(ctx, msg)
	if err != nil {
		return msgcheck.Result{}, err
	}
	c.cache.Set(msg, res, c.ttl)
	return res, nil
}

// Len returns number of cached results
func (c *Cached) Len() int {
	return c.cache.Len()
}
