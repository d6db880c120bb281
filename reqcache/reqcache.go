package reqcache

import (
	"context"
	"sync"
	"time"

	"github.com/casedesk/go-casedesk/logger"
	"github.com/cockroachdb/errors"
)

// DefaultTTL is the TTL used by Call when the caller passes ttl <= 0.
const DefaultTTL = 30 * time.Second

// DefaultSweepInterval is how often the background sweeper runs.
const DefaultSweepInterval = time.Minute

// DefaultOrphanThreshold is how old an in-flight registration may get before
// the sweeper forgets it.
const DefaultOrphanThreshold = 30 * time.Second

// config holds the resolved configuration for a Cache.
type config struct {
	defaultTTL      time.Duration
	sweepInterval   time.Duration
	orphanThreshold time.Duration
	clock           func() time.Time
	log             logger.Logger
}

// Option configures a Cache.
type Option func(*config)

func defaultConfig() config {
	return config{
		defaultTTL:      DefaultTTL,
		sweepInterval:   DefaultSweepInterval,
		orphanThreshold: DefaultOrphanThreshold,
		clock:           time.Now,
		log:             logger.NewConsoleLogger(logger.GetLevelFromEnv()),
	}
}

// WithDefaultTTL sets the TTL used when Call is given ttl <= 0.
// Defaults to DefaultTTL (30 seconds).
func WithDefaultTTL(d time.Duration) Option {
	return func(c *config) { c.defaultTTL = d }
}

// WithSweepInterval sets the interval for the background expiry sweep.
// Defaults to DefaultSweepInterval (1 minute).
func WithSweepInterval(d time.Duration) Option {
	return func(c *config) { c.sweepInterval = d }
}

// WithOrphanThreshold sets how old an in-flight registration may get before
// the sweeper forgets it. Defaults to DefaultOrphanThreshold (30 seconds).
func WithOrphanThreshold(d time.Duration) Option {
	return func(c *config) { c.orphanThreshold = d }
}

// WithClock overrides the time source. Useful in tests.
func WithClock(clock func() time.Time) Option {
	return func(c *config) { c.clock = clock }
}

// WithLogger sets the logger used by the cache.
func WithLogger(log logger.Logger) Option {
	return func(c *config) { c.log = log }
}

// Cache is a process-wide request cache. Construct one with New and inject
// it into every service that issues cacheable reads; there is no package
// level instance.
type Cache struct {
	store     *store
	pending   *pending
	cfg       config
	ctx       context.Context
	cancel    context.CancelFunc
	waitGroup sync.WaitGroup
	once      sync.Once
}

// New returns a started Cache. The parent context and Close both stop the
// background sweeper.
func New(parent context.Context, opts ...Option) *Cache {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	ctx, cancel := context.WithCancel(parent)
	c := &Cache{
		store:   newStore(),
		pending: newPending(),
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
	}
	c.waitGroup.Add(1)
	go c.run()
	return c
}

// Call is the untyped cached-call facade. On a live cache hit it returns the
// stored value without invoking fetch. On a miss it joins the in-flight
// fetch for the same key if one exists, otherwise invokes fetch exactly once
// and stores the result on success. A failed fetch propagates its error to
// every waiter and leaves the store untouched.
//
// fetch receives the cache's own context rather than ctx, so one caller
// cancelling its wait never cancels the fetch for the others.
func (c *Cache) Call(ctx context.Context, command string, args any, ttl time.Duration, fetch func(ctx context.Context) (any, error)) (any, error) {
	if ttl <= 0 {
		ttl = c.cfg.defaultTTL
	}
	key := makeKey(command, args)
	if val, ok := c.store.get(key, c.cfg.clock()); ok {
		c.cfg.log.Trace("cache hit %s", key)
		return val, nil
	}
	return c.pending.do(ctx, key, c.cfg.clock(), func() (any, error) {
		val, err := fetch(c.ctx)
		if err != nil {
			return nil, err
		}
		c.store.set(key, val, ttl, c.cfg.clock())
		return val, nil
	})
}

// Do is the typed form of [Cache.Call].
func Do[T any](ctx context.Context, c *Cache, command string, args any, ttl time.Duration, fetch func(ctx context.Context) (T, error)) (T, error) {
	val, err := c.Call(ctx, command, args, ttl, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := val.(T)
	if !ok {
		var zero T
		return zero, errors.Errorf("reqcache: cached value for %s is %T, want %T", command, val, zero)
	}
	return typed, nil
}

// Evict removes cached entries. With no arguments it empties the store;
// otherwise it removes every entry whose key was generated from one of the
// given command names. In-flight fetches are not affected.
func (c *Cache) Evict(commands ...string) {
	if len(commands) == 0 {
		n := c.store.evictAll()
		c.cfg.log.Debug("evicted all %d cache entries", n)
		return
	}
	for _, command := range commands {
		if n := c.store.evictPrefix(commandPrefix(command)); n > 0 {
			c.cfg.log.Debug("evicted %d cache entries for %s", n, command)
		}
	}
}

// Stats describes the cache contents for diagnostics and tests.
type Stats struct {
	EntryCount   int
	PendingCount int
	Keys         []string
}

// Stats returns a snapshot of the cache contents.
func (c *Cache) Stats() Stats {
	return Stats{
		EntryCount:   c.store.len(),
		PendingCount: c.pending.len(),
		Keys:         c.store.keys(),
	}
}

// Close stops the background sweeper and waits for it to exit. The cache
// itself remains usable; Close is idempotent.
func (c *Cache) Close() {
	c.once.Do(func() {
		c.cancel()
		c.waitGroup.Wait()
	})
}

func (c *Cache) run() {
	defer c.waitGroup.Done()
	ticker := time.NewTicker(c.cfg.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			now := c.cfg.clock()
			expired := c.store.sweep(now)
			orphaned := c.pending.sweepOrphans(now, c.cfg.orphanThreshold)
			if expired > 0 || orphaned > 0 {
				c.cfg.log.Trace("sweep evicted %d expired entries, forgot %d orphaned calls", expired, orphaned)
			}
		}
	}
}
