package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/kanghoo/kanghoo/internal/pkg/logger"
)

const (
	// DefaultMaxItems bounds the memory tier
	DefaultMaxItems = 100
	// DefaultTTL applies when Set is called with a non-positive TTL
	DefaultTTL = 5 * time.Minute
	// DefaultSweepInterval is how often the janitor prunes expired entries
	DefaultSweepInterval = 5 * time.Minute
)

// defaultPersistPatterns is the allow-list of key substrings that are
// mirrored into the durable tier
var defaultPersistPatterns = []string{"user:", "stats:", "settings", "theme"}

// entry wraps a cached payload with its TTL metadata
type entry struct {
	data       []byte
	createdAt  time.Time
	ttl        time.Duration
	expiresAt  time.Time
	lastAccess time.Time
}

// Config holds cache manager construction options
type Config struct {
	MaxItems        int
	DefaultTTL      time.Duration
	SweepInterval   time.Duration
	Durable         DurableStore // nil disables the durable tier
	PersistPatterns []string     // nil selects the default allow-list
}

// Manager is a two-tier TTL cache: a bounded in-process memory tier with
// least-recently-accessed eviction, and an optional durable tier for keys
// matching the persist allow-list. Get and Set never return errors; failures
// degrade to a miss or a logged warning. Close stops the janitor.
type Manager struct {
	mu              sync.Mutex
	items           map[string]*entry
	maxItems        int
	defaultTTL      time.Duration
	durable         DurableStore
	persistPatterns []string

	// now is swappable so TTL behavior can be tested without sleeping
	now func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// Stats reports per-tier entry counts and the approximate memory footprint
type Stats struct {
	MemoryItems  int   `json:"memory_items"`
	DurableItems int   `json:"durable_items"`
	MemoryBytes  int64 `json:"memory_bytes"`
}

// NewManager creates a cache manager and starts its janitor
func NewManager(cfg Config) *Manager {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = DefaultMaxItems
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.PersistPatterns == nil {
		cfg.PersistPatterns = defaultPersistPatterns
	}

	m := &Manager{
		items:           make(map[string]*entry),
		maxItems:        cfg.MaxItems,
		defaultTTL:      cfg.DefaultTTL,
		durable:         cfg.Durable,
		persistPatterns: cfg.PersistPatterns,
		now:             time.Now,
		stopCh:          make(chan struct{}),
	}

	m.wg.Add(1)
	go m.janitor(cfg.SweepInterval)

	return m
}

// Set stores a value under key. A non-positive ttl selects the default.
// Persist-eligible keys are mirrored into the durable tier; durable write
// failures are logged, never propagated.
func (m *Manager) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		logger.Warn("Cache set skipped, value not serializable",
			logger.String("key", key),
			logger.Err(err))
		return
	}

	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	now := m.now()
	e := &entry{
		data:      data,
		createdAt: now,
		ttl:       ttl,
		expiresAt: now.Add(ttl),
		// lastAccess starts at creation so eviction ordering is uniform
		// for entries that were never read
		lastAccess: now,
	}

	m.mu.Lock()
	if _, exists := m.items[key]; !exists && len(m.items) >= m.maxItems {
		m.evictOldestLocked()
	}
	m.items[key] = e
	m.mu.Unlock()

	if m.persistEligible(key) && m.durable != nil {
		persisted := PersistedEntry{
			Data:       data,
			Timestamp:  now,
			TTLMillis:  ttl.Milliseconds(),
			Expires:    e.expiresAt,
			LastAccess: now,
		}
		if err := m.durable.Set(ctx, key, persisted); err != nil {
			logger.Warn("Durable cache write failed",
				logger.String("key", key),
				logger.Err(err))
		}
	}
}

// Get loads the value under key into dest and reports whether it was found.
// Expired entries are removed from both tiers and reported as a miss.
func (m *Manager) Get(ctx context.Context, key string, dest interface{}) bool {
	now := m.now()

	m.mu.Lock()
	e, ok := m.items[key]
	if ok {
		if now.After(e.expiresAt) {
			delete(m.items, key)
			m.mu.Unlock()
			m.deleteDurable(ctx, key)
			return false
		}
		e.lastAccess = now
		data := e.data
		m.mu.Unlock()
		return m.decode(key, data, dest)
	}
	m.mu.Unlock()

	// Memory miss; persist-eligible keys fall back to the durable tier
	if !m.persistEligible(key) || m.durable == nil {
		return false
	}

	persisted, err := m.durable.Get(ctx, key)
	if err != nil {
		logger.Warn("Durable cache read failed",
			logger.String("key", key),
			logger.Err(err))
		return false
	}
	if persisted == nil {
		return false
	}
	if now.After(persisted.Expires) {
		m.deleteDurable(ctx, key)
		return false
	}

	// Repopulate the memory tier
	m.mu.Lock()
	if _, exists := m.items[key]; !exists && len(m.items) >= m.maxItems {
		m.evictOldestLocked()
	}
	m.items[key] = &entry{
		data:       persisted.Data,
		createdAt:  persisted.Timestamp,
		ttl:        time.Duration(persisted.TTLMillis) * time.Millisecond,
		expiresAt:  persisted.Expires,
		lastAccess: now,
	}
	m.mu.Unlock()

	return m.decode(key, persisted.Data, dest)
}

// Delete removes key from both tiers
func (m *Manager) Delete(ctx context.Context, key string) {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	m.deleteDurable(ctx, key)
}

// Clear empties the memory tier and removes every durable key under the
// cache namespace
func (m *Manager) Clear(ctx context.Context) {
	m.mu.Lock()
	m.items = make(map[string]*entry)
	m.mu.Unlock()

	if m.durable != nil {
		if err := m.durable.Clear(ctx); err != nil {
			logger.Warn("Durable cache clear failed", logger.Err(err))
		}
	}
}

// GetStats reports entry counts per tier and the approximate footprint of
// the memory tier
func (m *Manager) GetStats(ctx context.Context) Stats {
	m.mu.Lock()
	stats := Stats{MemoryItems: len(m.items)}
	for key, e := range m.items {
		stats.MemoryBytes += int64(len(key) + len(e.data))
	}
	m.mu.Unlock()

	if m.durable != nil {
		count, err := m.durable.Count(ctx)
		if err != nil {
			logger.Warn("Durable cache count failed", logger.Err(err))
		} else {
			stats.DurableItems = count
		}
	}

	return stats
}

// Close stops the janitor and waits for it to exit
func (m *Manager) Close() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
	m.wg.Wait()
}

func (m *Manager) persistEligible(key string) bool {
	for _, pattern := range m.persistPatterns {
		if strings.Contains(key, pattern) {
			return true
		}
	}
	return false
}

// evictOldestLocked removes the entry with the oldest last access.
// Callers must hold m.mu.
func (m *Manager) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, e := range m.items {
		if oldestKey == "" || e.lastAccess.Before(oldest) {
			oldestKey = key
			oldest = e.lastAccess
		}
	}
	if oldestKey != "" {
		delete(m.items, oldestKey)
	}
}

func (m *Manager) deleteDurable(ctx context.Context, key string) {
	if !m.persistEligible(key) || m.durable == nil {
		return
	}
	if err := m.durable.Delete(ctx, key); err != nil {
		logger.Warn("Durable cache delete failed",
			logger.String("key", key),
			logger.Err(err))
	}
}

func (m *Manager) decode(key string, data []byte, dest interface{}) bool {
	if dest == nil {
		return true
	}
	if err := json.Unmarshal(data, dest); err != nil {
		logger.Warn("Cache entry not decodable into destination",
			logger.String("key", key),
			logger.Err(err))
		return false
	}
	return true
}

// janitor prunes expired memory entries on a fixed interval. The durable
// tier self-expires via storage TTLs. The sweep is advisory; expiry is
// re-checked on every read.
func (m *Manager) janitor(interval time.Duration) {
	defer m.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := m.now()
			m.mu.Lock()
			for key, e := range m.items {
				if now.After(e.expiresAt) {
					delete(m.items, key)
				}
			}
			m.mu.Unlock()
		case <-m.stopCh:
			return
		}
	}
}
