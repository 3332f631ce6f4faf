package ml

import "sync"

// Cache holds the currently active Model per api_id. Each lookup takes a
// pointer snapshot under a read lock, and a retrain swaps the pointer under
// the write lock rather than mutating a shared Model in place.
type Cache struct {
	mu       sync.RWMutex
	models   map[string]*Model
	training sync.Map // api_id -> struct{}, marks an in-flight training run
}

// NewCache builds an empty Cache.
func NewCache() *Cache {
	return &Cache{models: make(map[string]*Model)}
}

// Get returns the active model for an api_id, or nil if none has been
// trained yet.
func (c *Cache) Get(apiID string) *Model {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.models[apiID]
}

// Set hot-swaps the active model for an api_id.
func (c *Cache) Set(apiID string, m *Model) {
	c.mu.Lock()
	c.models[apiID] = m
	c.mu.Unlock()
}

// TryBeginTraining marks apiID as having a training run in flight and
// reports whether this call won the race to start one. A concurrent second
// trigger for the same api_id returns false and must not start another run.
func (c *Cache) TryBeginTraining(apiID string) bool {
	_, alreadyRunning := c.training.LoadOrStore(apiID, struct{}{})
	return !alreadyRunning
}

// EndTraining clears the in-flight marker for apiID, allowing a future
// trigger to start a new run.
func (c *Cache) EndTraining(apiID string) {
	c.training.Delete(apiID)
}
