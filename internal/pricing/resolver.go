package pricing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cloudsweep-io/cloudsweep/internal/models"
)

// Key identifies one unit price: a resource kind, its pricing dimension
// (volume type, load balancer type, or empty for single-SKU kinds), and the
// region the resource lives in.
type Key struct {
	Kind      models.ResourceType
	Dimension string
	Region    string
}

// Source resolves a unit price from a live pricing backend. An error means
// the lookup failed or the SKU is unknown; the resolver then falls back to
// the static table.
type Source interface {
	UnitPrice(ctx context.Context, key Key) (float64, error)
}

// sourceTimeout bounds a single live lookup so a slow pricing backend can
// never stall a scan.
const sourceTimeout = 10 * time.Second

// entry is one cache slot. done is closed once price and fallback are set,
// so concurrent lookups for the same key block on the single in-flight
// fetch instead of duplicating it.
type entry struct {
	done     chan struct{}
	started  time.Time
	price    float64
	fallback bool
}

// Resolver caches unit prices per Key for the lifetime of one scan (or
// longer when a TTL is set). It never fails the caller: every lookup
// returns a usable price, falling back to the static table on any error.
type Resolver struct {
	source Source
	ttl    time.Duration
	log    zerolog.Logger

	mu      sync.Mutex
	entries map[Key]*entry
}

// NewResolver returns a Resolver over source. ttl <= 0 caches entries for
// the resolver's whole lifetime.
func NewResolver(source Source, ttl time.Duration, log zerolog.Logger) *Resolver {
	return &Resolver{
		source:  source,
		ttl:     ttl,
		log:     log,
		entries: make(map[Key]*entry),
	}
}

// Price resolves the unit price for key and reports whether the static
// fallback was used. Repeated lookups for the same key invoke the live
// source at most once per TTL window; concurrent lookups collapse into a
// single backend call.
func (r *Resolver) Price(ctx context.Context, key Key) (price float64, fallback bool) {
	if staticOnly(key.Kind) {
		return StaticPrice(key), false
	}

	r.mu.Lock()
	e, ok := r.entries[key]
	if ok && (r.ttl <= 0 || time.Since(e.started) < r.ttl) {
		r.mu.Unlock()
		<-e.done
		return e.price, e.fallback
	}

	// Miss or expired: this caller owns the fetch.
	e = &entry{done: make(chan struct{}), started: time.Now()}
	r.entries[key] = e
	r.mu.Unlock()

	r.fetch(ctx, key, e)
	return e.price, e.fallback
}

// fetch resolves key from the live source, falling back to the static table
// on any error, then releases all waiters.
func (r *Resolver) fetch(ctx context.Context, key Key, e *entry) {
	defer close(e.done)

	fctx, cancel := context.WithTimeout(ctx, sourceTimeout)
	defer cancel()

	price, err := r.source.UnitPrice(fctx, key)
	if err != nil {
		e.price = StaticPrice(key)
		e.fallback = true
		r.log.Warn().
			Str("kind", string(key.Kind)).
			Str("dimension", key.Dimension).
			Str("region", key.Region).
			Err(err).
			Float64("fallback_price", e.price).
			Msg("pricing lookup failed, using static fallback")
		return
	}
	e.price = price
}

// Fallbacks returns the keys that resolved via the static table, sorted for
// deterministic warning output.
func (r *Resolver) Fallbacks() []Key {
	r.mu.Lock()
	var keys []Key
	for k, e := range r.entries {
		select {
		case <-e.done:
			if e.fallback {
				keys = append(keys, k)
			}
		default:
			// Fetch still in flight; skip.
		}
	}
	r.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Kind != keys[j].Kind {
			return keys[i].Kind < keys[j].Kind
		}
		if keys[i].Region != keys[j].Region {
			return keys[i].Region < keys[j].Region
		}
		return keys[i].Dimension < keys[j].Dimension
	})
	return keys
}
