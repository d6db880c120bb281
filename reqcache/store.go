package reqcache

import (
	"strings"
	"sync"
	"time"
)

type entry struct {
	value     any
	writtenAt time.Time
	ttl       time.Duration
}

func (e *entry) valid(now time.Time) bool {
	return now.Sub(e.writtenAt) < e.ttl
}

// store is the key → entry map. It does no I/O and holds no references to
// the rest of the cache; expiry on read keeps it correct even if the sweeper
// never runs.
type store struct {
	mutex   sync.Mutex
	entries map[string]*entry
}

func newStore() *store {
	return &store{entries: make(map[string]*entry)}
}

// get returns the live value for key. An expired entry is removed and
// reported as a miss.
func (s *store) get(key string, now time.Time) (any, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if !e.valid(now) {
		delete(s.entries, key)
		return nil, false
	}
	return e.value, true
}

func (s *store) set(key string, value any, ttl time.Duration, now time.Time) {
	s.mutex.Lock()
	s.entries[key] = &entry{value: value, writtenAt: now, ttl: ttl}
	s.mutex.Unlock()
}

func (s *store) evictPrefix(prefix string) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	var n int
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
			n++
		}
	}
	return n
}

func (s *store) evictAll() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	n := len(s.entries)
	s.entries = make(map[string]*entry)
	return n
}

// sweep removes expired entries and returns how many were evicted.
func (s *store) sweep(now time.Time) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	var n int
	for key, e := range s.entries {
		if !e.valid(now) {
			delete(s.entries, key)
			n++
		}
	}
	return n
}

func (s *store) len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.entries)
}

func (s *store) keys() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	return keys
}
