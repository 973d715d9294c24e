package store

import (
	"sort"
	"sync"
)

// subscriberBuffer is the channel capacity handed to each subscriber.
const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// Regions are keyed by ID. An update from an older round than the stored one
// is dropped; anything else replaces the stored rendering and is fanned out to
// subscribers without blocking.
type MemoryStore struct {
	mu          sync.RWMutex
	regions     map[string]Region
	subscribers map[chan Region]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory [Store] implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		regions:     make(map[string]Region),
		subscribers: make(map[chan Region]struct{}),
	}
}

// Update stores a [Region] and notifies all subscribers.
//
// Returns false if the stored rendering for the same ID comes from a newer
// round; the update is then neither stored nor published.
func (m *MemoryStore) Update(region Region) bool {
	m.mu.Lock()
	if current, ok := m.regions[region.ID]; ok && current.Round > region.Round {
		m.mu.Unlock()
		return false
	}
	m.regions[region.ID] = region
	m.mu.Unlock()

	m.notifySubscribers(region)
	return true
}

// Get returns the latest rendering for id.
func (m *MemoryStore) Get(id string) (Region, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	region, ok := m.regions[id]
	return region, ok
}

// GetAll returns a snapshot of all regions sorted by ID.
func (m *MemoryStore) GetAll() []Region {
	m.mu.RLock()
	results := make([]Region, 0, len(m.regions))
	for _, region := range m.regions {
		results = append(results, region)
	}
	m.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results
}

// Subscribe creates a new subscription and returns a channel for receiving
// updates.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent leaks.
func (m *MemoryStore) Subscribe() <-chan Region {
	ch := make(chan Region, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Region) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends the region to all active subscribers, dropping it
// for any subscriber whose buffer is full.
func (m *MemoryStore) notifySubscribers(region Region) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- region:
		default:
		}
	}
}
