package cache

import "time"

// Cache is a generic key-value cache.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Sweeper periodically evicts expired entries from registered caches.
type Sweeper struct {
	caches []Cleaner
	stop   chan struct{}
	done   chan struct{}
}

// NewSweeper creates a sweeper with no registered caches.
func NewSweeper() *Sweeper {
	return &Sweeper{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Register adds a cache to the sweep rotation. Not safe to call after Start.
func (s *Sweeper) Register(c Cleaner) {
	s.caches = append(s.caches, c)
}

// Start begins periodic cleanup in a background goroutine.
func (s *Sweeper) Start(interval time.Duration) {
	go s.run(interval)
}

func (s *Sweeper) run(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, c := range s.caches {
				c.CleanExpired()
			}
		case <-s.stop:
			return
		}
	}
}

// Stop halts the cleanup goroutine and waits for it to exit.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}
