// internal/device/container.go
package device

import (
	"errors"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/tamzrod/simply/internal/call"
)

// DefaultContainerCapacity is the number of results a container keeps.
const DefaultContainerCapacity = 10

type timedResult struct {
	result *call.Result
	at     time.Time
}

// ResultsContainer keeps the most recent results fetched by an object.
// Entries are evicted least recently used first and, when maxAge is set,
// once they are older than maxAge.
type ResultsContainer struct {
	mu     sync.Mutex
	cache  *lru.Cache
	maxAge time.Duration
	now    func() time.Time
}

// NewResultsContainer returns a container of the given capacity. A zero
// maxAge keeps entries until they are evicted by newer ones.
func NewResultsContainer(capacity int, maxAge time.Duration) (*ResultsContainer, error) {
	if capacity <= 0 {
		return nil, errors.New("device: container capacity must be > 0")
	}
	if maxAge < 0 {
		return nil, errors.New("device: container max age must be >= 0")
	}
	cache, err := lru.New(capacity)
	if err != nil {
		return nil, err
	}
	return &ResultsContainer{cache: cache, maxAge: maxAge, now: time.Now}, nil
}

// Put stores the result of id.
func (c *ResultsContainer) Put(id call.ID, res *call.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(id, timedResult{result: res, at: c.now()})
}

// Get returns the stored result of id.
func (c *ResultsContainer) Get(id call.ID) (*call.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.cache.Get(id)
	if !ok {
		return nil, false
	}
	tr := v.(timedResult)
	if c.maxAge > 0 && c.now().Sub(tr.at) > c.maxAge {
		c.cache.Remove(id)
		return nil, false
	}
	return tr.result, true
}

// Remove forgets id.
func (c *ResultsContainer) Remove(id call.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Remove(id)
}

// Len returns the number of stored results, expired ones included.
func (c *ResultsContainer) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}
